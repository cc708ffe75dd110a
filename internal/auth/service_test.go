package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/bearfolio/bearfolio/internal/model"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFunc func(ctx context.Context, rawToken string) (*GoogleIdentity, error)
}

func (m *mockVerifier) Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error) {
	return m.verifyFunc(ctx, rawToken)
}

type mockUserRepo struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.User, error)
	findByGoogleIDFunc func(ctx context.Context, googleID string) (*model.User, error)
	createFunc         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return m.findByGoogleIDFunc(ctx, googleID)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

type mockAdminRepo struct {
	hasActiveGrantFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *mockAdminRepo) HasActiveGrant(ctx context.Context, userID string) (bool, error) {
	return m.hasActiveGrantFunc(ctx, userID)
}

// --- テスト ---

func newTestService(verifier IDTokenVerifier, userRepo *mockUserRepo, adminRepo *mockAdminRepo) *Service {
	return NewService(
		verifier,
		NewDomainPolicy("@morgan.edu"),
		NewSessionIssuer(testSecret, testIssuer, testAudience, []string{"admin@morgan.edu"}),
		userRepo,
		adminRepo,
	)
}

func TestService_Exchange_ExistingUser(t *testing.T) {
	existing := testUser()
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*GoogleIdentity, error) {
			return &GoogleIdentity{Subject: "google-sub-1", Email: "alice@morgan.edu", Name: "Alice Lee"}, nil
		},
	}
	created := false
	userRepo := &mockUserRepo{
		findByGoogleIDFunc: func(_ context.Context, googleID string) (*model.User, error) {
			if googleID != "google-sub-1" {
				t.Errorf("unexpected googleID: %q", googleID)
			}
			return existing, nil
		},
		createFunc: func(_ context.Context, _ *model.User) error {
			created = true
			return nil
		},
	}

	svc := newTestService(verifier, userRepo, &mockAdminRepo{})

	token, user, err := svc.Exchange(context.Background(), "raw-id-token")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if token == "" {
		t.Error("token is empty")
	}
	if user.ID != existing.ID {
		t.Errorf("user.ID = %q, want %q", user.ID, existing.ID)
	}
	if created {
		t.Error("既存ユーザーに対してCreateが呼ばれている")
	}
}

func TestService_Exchange_NewUserCreated(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*GoogleIdentity, error) {
			// nameが空の場合はメールのローカル部が使われる
			return &GoogleIdentity{Subject: "google-sub-2", Email: "bob@morgan.edu"}, nil
		},
	}
	var createdUser *model.User
	userRepo := &mockUserRepo{
		findByGoogleIDFunc: func(_ context.Context, _ string) (*model.User, error) {
			return nil, nil
		},
		createFunc: func(_ context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}

	svc := newTestService(verifier, userRepo, &mockAdminRepo{})

	_, user, err := svc.Exchange(context.Background(), "raw-id-token")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if createdUser == nil {
		t.Fatal("新規ユーザーが作成されていない")
	}
	if createdUser.Name != "bob" {
		t.Errorf("Name = %q, want %q", createdUser.Name, "bob")
	}
	if createdUser.GoogleID != "google-sub-2" {
		t.Errorf("GoogleID = %q, want %q", createdUser.GoogleID, "google-sub-2")
	}
	if user.ID == "" {
		t.Error("user.ID is empty")
	}
}

func TestService_Exchange_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*GoogleIdentity, error) {
			return nil, errors.New("signature mismatch")
		},
	}

	svc := newTestService(verifier, &mockUserRepo{}, &mockAdminRepo{})

	_, _, err := svc.Exchange(context.Background(), "bad-token")
	if !model.IsCode(err, model.ErrCodeNotAuthorized) {
		t.Errorf("error = %v, want NOT_AUTHORIZED", err)
	}
}

func TestService_Exchange_OutOfDomain(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*GoogleIdentity, error) {
			return &GoogleIdentity{Subject: "google-sub-3", Email: "carol@example.com", Name: "Carol"}, nil
		},
	}

	svc := newTestService(verifier, &mockUserRepo{}, &mockAdminRepo{})

	_, _, err := svc.Exchange(context.Background(), "raw-id-token")
	if !model.IsCode(err, model.ErrCodeNotAuthorized) {
		t.Errorf("error = %v, want NOT_AUTHORIZED", err)
	}
}

func TestService_IsAdmin(t *testing.T) {
	adminRepo := &mockAdminRepo{
		hasActiveGrantFunc: func(_ context.Context, userID string) (bool, error) {
			return userID == "user-1", nil
		},
	}

	svc := newTestService(&mockVerifier{}, &mockUserRepo{}, adminRepo)

	granted, err := svc.IsAdmin(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IsAdmin failed: %v", err)
	}
	if !granted {
		t.Error("有効な権限付与があるのにfalseが返った")
	}

	granted, err = svc.IsAdmin(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("IsAdmin failed: %v", err)
	}
	if granted {
		t.Error("権限付与がないのにtrueが返った")
	}
}
