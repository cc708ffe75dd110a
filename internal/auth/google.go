package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleJWKSURL はGoogleの公開鍵セットのエンドポイント。
const GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Googleが発行するIDトークンのissuerは歴史的に2種類ある。
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIdentity はIDトークン検証後に得られるユーザー情報。
type GoogleIdentity struct {
	Subject string // Googleのユーザー識別子（sub claim）
	Email   string
	Name    string
}

// IDTokenVerifier はGoogle IDトークンの署名・クレーム検証を行う。
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error)
}

// googleIDTokenClaims はGoogle IDトークンのclaims。
type googleIDTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleVerifier はJWKS経由でGoogle IDトークンを検証する。
type GoogleVerifier struct {
	jwks     keyfunc.Keyfunc
	clientID string
	logger   *slog.Logger
}

// NewGoogleVerifier はGoogleVerifierを生成する。
// jwksURL は通常GoogleJWKSURL。テストでは差し替え可能。
// JWKSはバックグラウンドで定期更新され、起動時にGoogleへ到達できなくても
// エラーにはしない（初回検証時に取得を試みる）。
func NewGoogleVerifier(ctx context.Context, jwksURL, clientID string, logger *slog.Logger) (*GoogleVerifier, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Ctx:                       ctx,
		Client:                    &http.Client{Timeout: 10 * time.Second},
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("failed to refresh Google JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyfunc: %w", err)
	}

	return &GoogleVerifier{
		jwks:     k,
		clientID: clientID,
		logger:   logger.With(slog.String("component", "google_verifier")),
	}, nil
}

// Verify はIDトークンの署名とclaimsを検証し、ユーザー情報を返す。
// 署名不正、期限切れ、audience不一致、issuer不一致はすべてエラーとなる。
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error) {
	claims := &googleIDTokenClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, v.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithAudience(v.clientID),
	)
	if err != nil {
		v.logger.Debug("ID token validation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("invalid ID token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid ID token")
	}

	// issuerは2種類あるため手動で検証する
	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("ID token missing sub claim")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("ID token missing email claim")
	}

	return &GoogleIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

// compile-time interface check
var _ IDTokenVerifier = (*GoogleVerifier)(nil)
