// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/bearfolio/bearfolio/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByGoogleID はGoogleのsubjectでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。
	// 新規ユーザーの作成はトークン交換時のget-or-createのみで行われる。
	Create(ctx context.Context, user *model.User) error
}

// AdminRepository は管理者権限付与の永続化インターフェース。
type AdminRepository interface {
	// HasActiveGrant は指定ユーザーに削除されていない権限付与行があるかを返す。
	// 昇格操作のたびに呼び出され、結果はキャッシュしない。
	HasActiveGrant(ctx context.Context, userID string) (bool, error)
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByUserID はユーザーIDでプロフィールを検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// ListPublic は公開状態のプロフィール一覧を返す。
	ListPublic(ctx context.Context) ([]*model.Profile, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// Update はプロフィールを更新する。
	// profile.Versionと保存済みversionのcompare-and-swapで楽観的排他制御を行い、
	// 不一致の場合はCONFLICTエラーを返す。成功時はprofile.Versionを更新後の値にする。
	Update(ctx context.Context, profile *model.Profile) error
}

// EmbeddingUpdate はバックフィルで書き戻すembeddingの1件分。
type EmbeddingUpdate struct {
	ItemID    string
	Embedding []float32
}

// PortfolioItemRepository はポートフォリオアイテムの永続化インターフェース。
// 検索クエリ（全文検索・ベクトル近傍検索）もここで実行する。
type PortfolioItemRepository interface {
	// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PortfolioItem, error)

	// ListByProfileID はプロフィールのアイテム一覧を返す。
	ListByProfileID(ctx context.Context, profileID string) ([]*model.PortfolioItem, error)

	// ListPublished は公開状態の全アイテムを返す。バックフィルワーカーが使用する。
	ListPublished(ctx context.Context) ([]*model.PortfolioItem, error)

	// ListPublishedFiltered は公開アイテム一覧を返す（一般公開クエリ用）。
	ListPublishedFiltered(ctx context.Context) ([]*model.PortfolioItem, error)

	// Create はアイテムを作成する。
	Create(ctx context.Context, item *model.PortfolioItem) error

	// Update はアイテムを更新する。versionのcompare-and-swapで楽観的排他制御を行う。
	Update(ctx context.Context, item *model.PortfolioItem) error

	// SoftDelete はアイテムをソフトデリートする。対象が存在しない場合はNOT_FOUNDを返す。
	SoftDelete(ctx context.Context, id, updatedBy string) error

	// FullTextSearch は公開・未削除アイテムに対して全文検索を実行する。
	// search_tsv列（title+summary、english stemming）とplainto_tsqueryのマッチで、
	// 明示的なランキングや件数制限は行わない。
	FullTextSearch(ctx context.Context, text string) ([]*model.PortfolioItem, error)

	// SemanticSearch はクエリベクトルとの距離の昇順で公開・未削除アイテムを返す。
	// 最大limit件。
	SemanticSearch(ctx context.Context, query []float32, limit int) ([]*model.PortfolioItem, error)

	// UpdateEmbeddings は複数アイテムのembeddingを単一トランザクションで書き戻す。
	UpdateEmbeddings(ctx context.Context, updates []EmbeddingUpdate) error
}

// OpportunityRepository は募集情報の永続化インターフェース。
type OpportunityRepository interface {
	// FindByID は指定IDの募集情報を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Opportunity, error)

	// List は未削除の募集情報一覧を返す。
	List(ctx context.Context) ([]*model.Opportunity, error)

	// Create は募集情報を作成する。
	Create(ctx context.Context, opp *model.Opportunity) error

	// Update は募集情報を更新する。versionのcompare-and-swapを行う。
	Update(ctx context.Context, opp *model.Opportunity) error
}
