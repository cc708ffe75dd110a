// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Codeで機械判定、Messageで人間向けの説明を提供する。
// 認証エラーは攻撃者へのオラクルとなるため常に同一メッセージを返す。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotAuthorized = "NOT_AUTHORIZED"
	ErrCodeValidation    = "VALIDATION"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeUpstream      = "UPSTREAM"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
)

// NewNotAuthorizedError は認可エラーを生成する。
// どの検査で失敗したかは意図的に伝えない（ドメイン所属の推測を防ぐ）。
func NewNotAuthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeNotAuthorized,
		Message: "not authorized",
	}
}

// NewValidationError は入力検証エラーを生成する。
// 認可エラーと異なり、欠落フィールド等の具体的な理由を伝える。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: reason,
	}
}

// NewNotFoundError はエンティティ未検出エラーを生成する。
// ソフトデリート済みのエンティティも未検出として扱う。
func NewNotFoundError(kind string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", kind),
	}
}

// NewConflictError は楽観的排他制御の競合エラーを生成する。
func NewConflictError(kind string) *APIError {
	return &APIError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf("%s was modified concurrently; reload and retry", kind),
	}
}

// NewUpstreamError は外部プロバイダー起因のエラーを生成する。
func NewUpstreamError(provider string, err error) *APIError {
	return &APIError{
		Code:    ErrCodeUpstream,
		Message: fmt.Sprintf("%s unavailable: %v", provider, err),
	}
}

// NewNotConfiguredError は必要な設定が欠落している場合のエラーを生成する。
func NewNotConfiguredError(feature string) *APIError {
	return &APIError{
		Code:    ErrCodeNotConfigured,
		Message: fmt.Sprintf("%s not configured", feature),
	}
}

// IsCode はerrが指定コードのAPIErrorかを判定する。
func IsCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
