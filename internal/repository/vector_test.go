package repository

import "testing"

func TestVectorToString(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want string
	}{
		{"empty", []float32{}, "[]"},
		{"single", []float32{1}, "[1]"},
		{"mixed", []float32{0.5, -2, 3.25}, "[0.5,-2,3.25]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vectorToString(tt.in)
			if got != tt.want {
				t.Errorf("vectorToString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVector_RoundTrip(t *testing.T) {
	in := []float32{0.125, -1.5, 0, 42}
	got, err := parseVector(vectorToString(in))
	if err != nil {
		t.Fatalf("parseVector error = %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], in[i])
		}
	}
}

func TestParseVector_Invalid(t *testing.T) {
	for _, s := range []string{"", "1,2,3", "[1,2", "[a,b]"} {
		if _, err := parseVector(s); err == nil {
			t.Errorf("parseVector(%q) should fail", s)
		}
	}
}

func TestParseVector_Whitespace(t *testing.T) {
	got, err := parseVector(" [1, 2.5 ,3] ")
	if err != nil {
		t.Fatalf("parseVector error = %v", err)
	}
	if len(got) != 3 || got[1] != 2.5 {
		t.Errorf("got = %v", got)
	}
}
