package upload

import (
	"context"

	"github.com/bearfolio/bearfolio/internal/model"
)

// NotConfiguredService はストレージ設定が欠落している場合のService。
// 全ての呼び出しにNOT_CONFIGUREDエラーを返す。
type NotConfiguredService struct{}

// Presign は常にNOT_CONFIGUREDエラーを返す。
func (NotConfiguredService) Presign(_ context.Context, _ Kind, _ string, _ int64) (*PresignedUpload, error) {
	return nil, model.NewNotConfiguredError("uploads")
}

// compile-time interface check
var _ Service = NotConfiguredService{}
