// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bearfolio/bearfolio/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "bf_auth"

// contextKey はコンテキストキーの衝突を避けるための型。
type contextKey string

const principalContextKey contextKey = "principal"

// TokenValidator はセッショントークンを検証するインターフェース。
type TokenValidator interface {
	Validate(rawToken string) (*model.Principal, error)
}

// ContextWithPrincipal はPrincipalをコンテキストに格納する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext はコンテキストからPrincipalを取り出す。
// 未認証の場合はnilを返す。
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(principalContextKey).(*model.Principal)
	return p
}

// extractToken はリクエストからセッショントークンを取り出す。
// Bearerトークンが空でない場合のみCookieより優先される。空白のみの
// Bearerは資格情報未提示として扱い、Cookieにフォールバックする。
// どちらも無い場合は空文字列を返す。
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
			if len(parts) == 2 {
				if token := strings.TrimSpace(parts[1]); token != "" {
					return token
				}
			}
		} else {
			// Bearer以外のAuthorizationヘッダーは提示された不正な資格情報として扱う
			return authHeader
		}
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// NewSessionMiddleware はセッショントークンを検証しPrincipalをコンテキストに
// 格納するミドルウェアを返す。
//
// 資格情報が提示されていないリクエストは匿名として通過させる（各操作側で
// 認可を判定する）。資格情報が提示されたが不正な場合は、リクエスト全体を
// 401で拒否する。
func NewSessionMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthorizedError())
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth は認証済みPrincipalを必須とするミドルウェアを返す。
// NewSessionMiddlewareの後段に配置する。
func RequireAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
