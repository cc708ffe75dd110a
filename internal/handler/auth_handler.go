// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bearfolio/bearfolio/internal/auth"
	"github.com/bearfolio/bearfolio/internal/middleware"
	"github.com/bearfolio/bearfolio/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Exchange(ctx context.Context, idToken string) (string, *model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はトークン交換関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// exchangeRequest はトークン交換リクエストのボディ。
type exchangeRequest struct {
	IDToken string `json:"idToken"`
}

// exchangeResponse はトークン交換成功時のレスポンス。
type exchangeResponse struct {
	Token string `json:"token"`
}

// Exchange はGoogle IDトークンをセッショントークンに交換する。
// POST /auth/exchange
//
// 成功時はbf_auth Cookieを設定し、ボディでもトークンを返す
// （Cookieを使えないクライアントはAuthorization: Bearerで送る）。
// IDトークン欠落は400、検証失敗・ドメイン外は401。
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("idToken required"))
		return
	}

	token, user, err := h.service.Exchange(r.Context(), req.IDToken)
	if err != nil {
		if model.IsCode(err, model.ErrCodeNotAuthorized) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthorizedError())
			return
		}
		slog.Error("token exchange failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(auth.SessionTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("session issued", slog.String("user_id", user.ID))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(exchangeResponse{Token: token})
}

// Logout はセッションCookieを削除する。
// POST /auth/logout
//
// セッショントークンはステートレスなため、サーバー側の失効処理はない。
// Cookieの有無にかかわらず常に200を返す。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// meResponse は現在のユーザー情報のレスポンス。
type meResponse struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// Me は現在のセッションのユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(meResponse{
		UserID:  p.Subject,
		Email:   p.Email,
		Name:    p.Name,
		IsAdmin: p.IsAdmin,
	})
}
