package auth

import "testing"

func TestDomainPolicy_Allow(t *testing.T) {
	policy := NewDomainPolicy("@morgan.edu")

	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"許可ドメインのメール", "alice@morgan.edu", true},
		{"大文字のメールも許可", "Alice@Morgan.EDU", true},
		{"別ドメインは拒否", "bob@example.com", false},
		{"サブ文字列一致では許可しない", "evil@morgan.edu.attacker.com", false},
		{"空メールは拒否", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Allow(tt.email); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestDomainPolicy_EmptySuffix(t *testing.T) {
	policy := NewDomainPolicy("")
	if policy.Allow("alice@morgan.edu") {
		t.Error("空のドメイン設定では全て拒否されるべき")
	}
}
