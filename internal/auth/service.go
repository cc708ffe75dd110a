package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bearfolio/bearfolio/internal/model"
	"github.com/bearfolio/bearfolio/internal/repository"
)

// Service はトークン交換と管理者判定のビジネスロジックを提供する。
type Service struct {
	verifier  IDTokenVerifier
	domain    *DomainPolicy
	issuer    *SessionIssuer
	userRepo  repository.UserRepository
	adminRepo repository.AdminRepository
}

// NewService はServiceを生成する。
func NewService(
	verifier IDTokenVerifier,
	domain *DomainPolicy,
	issuer *SessionIssuer,
	userRepo repository.UserRepository,
	adminRepo repository.AdminRepository,
) *Service {
	return &Service{
		verifier:  verifier,
		domain:    domain,
		issuer:    issuer,
		userRepo:  userRepo,
		adminRepo: adminRepo,
	}
}

// Exchange はGoogle IDトークンをセッショントークンに交換する。
// 検証失敗・ドメイン外メールはいずれもNOT_AUTHORIZEDとなる。
// 未登録ユーザーの場合はusersレコードを自動作成する。
func (s *Service) Exchange(ctx context.Context, idToken string) (string, *model.User, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		slog.Debug("ID token verification failed", slog.String("error", err.Error()))
		return "", nil, model.NewNotAuthorizedError()
	}

	if !s.domain.Allow(identity.Email) {
		slog.Info("sign-in rejected by domain policy", slog.String("email", identity.Email))
		return "", nil, model.NewNotAuthorizedError()
	}

	user, err := s.getOrCreateUser(ctx, identity)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return token, user, nil
}

// getOrCreateUser はGoogleのsubjectでユーザーを検索し、存在しなければ作成する。
// 名前が空の場合はメールアドレスのローカル部をフォールバックとして使う。
func (s *Service) getOrCreateUser(ctx context.Context, identity *GoogleIdentity) (*model.User, error) {
	user, err := s.userRepo.FindByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	name := identity.Name
	if name == "" {
		name = identity.Email[:strings.Index(identity.Email, "@")]
	}

	now := time.Now()
	user = &model.User{
		Auditable: model.Auditable{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: "system",
			UpdatedBy: "system",
		},
		GoogleID: identity.Subject,
		Email:    identity.Email,
		Name:     name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// IsAdmin は指定ユーザーが現在有効な管理者権限を持つかを返す。
// トークンのroleクレームとは独立に、呼び出しのたびにadminsテーブルを参照する。
// 権限付与が取り消された場合、既存トークンの有効期間内でも昇格操作は失敗する。
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	granted, err := s.adminRepo.HasActiveGrant(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin grant: %w", err)
	}
	return granted, nil
}
