package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bearfolio/bearfolio/internal/model"
)

// SessionTokenTTL はセッショントークンの有効期間。
const SessionTokenTTL = 8 * time.Hour

// RoleAdmin は管理者ロールのclaim値。
const RoleAdmin = "admin"

// sessionClaims はセッショントークンのclaims。
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// SessionIssuer はHS256署名のセッショントークンを発行する。
type SessionIssuer struct {
	secret      []byte
	issuer      string
	audience    string
	adminEmails map[string]bool
}

// NewSessionIssuer はSessionIssuerを生成する。
// adminEmails に含まれるメールアドレスのユーザーには発行時にadminロールを付与する。
// 比較は大文字小文字を区別しない。
func NewSessionIssuer(secret, issuer, audience string, adminEmails []string) *SessionIssuer {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e != "" {
			admins[strings.ToLower(e)] = true
		}
	}
	return &SessionIssuer{
		secret:      []byte(secret),
		issuer:      issuer,
		audience:    audience,
		adminEmails: admins,
	}
}

// Issue はユーザーのセッショントークンを発行する。
func (i *SessionIssuer) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
		},
		Email: user.Email,
		Name:  user.Name,
	}
	if i.adminEmails[strings.ToLower(user.Email)] {
		claims.Role = RoleAdmin
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// SessionValidator はセッショントークンを検証しPrincipalを復元する。
type SessionValidator struct {
	secret   []byte
	issuer   string
	audience string
	domain   *DomainPolicy
}

// NewSessionValidator はSessionValidatorを生成する。
// 検証時にもメールドメインのポリシーを再適用する。発行後に許可ドメインが
// 変更された場合、古いトークンは無効となる。
func NewSessionValidator(secret, issuer, audience string, domain *DomainPolicy) *SessionValidator {
	return &SessionValidator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		domain:   domain,
	}
}

// Validate はトークンを検証し、成功時はPrincipalを返す。
// 署名不正、期限切れ、issuer/audience不一致、ドメイン外メールはすべて
// NOT_AUTHORIZEDエラーとなる。
func (v *SessionValidator) Validate(rawToken string) (*model.Principal, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil || !token.Valid {
		return nil, model.NewNotAuthorizedError()
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, model.NewNotAuthorizedError()
	}
	if !v.domain.Allow(claims.Email) {
		return nil, model.NewNotAuthorizedError()
	}

	return &model.Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.Role == RoleAdmin,
	}, nil
}
