package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bearfolio/bearfolio/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

// StatusForError はエラーコードに対応するHTTPステータスコードを返す。
func StatusForError(err error) int {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case model.ErrCodeNotAuthorized:
		return http.StatusUnauthorized
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeNotConfigured:
		return http.StatusServiceUnavailable
	case model.ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はAPIErrorをHTTPレスポンスとして書き込む。
// APIError以外のエラーは詳細を漏らさず500として扱う。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForError(err), apiErr)
		return
	}
	WriteInternalServerError(w)
}
