// Package model はドメインモデルを定義する。
package model

import "time"

// EmbeddingDim はembeddingベクトルの次元数。
const EmbeddingDim = 384

// ProfileState はプロフィールの公開状態を表す。
type ProfileState string

const (
	ProfileStateDraft  ProfileState = "draft"
	ProfileStatePublic ProfileState = "public"
)

// ItemState はポートフォリオアイテムの公開状態を表す。
type ItemState string

const (
	ItemStateDraft     ItemState = "draft"
	ItemStatePublished ItemState = "published"
)

// Auditable は全エンティティ共通の監査フィールド。
// 削除は物理削除ではなくIsDeletedフラグによるソフトデリート。
type Auditable struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
	IsDeleted bool
}

// User はGoogle SSOで認証された利用者を表す。
// 初回のトークン交換時に遅延作成され、サインアウトでは削除されない。
type User struct {
	Auditable
	GoogleID string
	Email    string
	Name     string
}

// AdminGrant はユーザーへの管理者権限の付与を表す。
// 付与はシード/設定経由で行われ、取り消しはソフトデリートで表現する。
type AdminGrant struct {
	Auditable
	UserID string
}

// Profile は学生プロフィールを表す。
// Versionは楽観的排他制御用で、更新のたびにインクリメントされる。
type Profile struct {
	Auditable
	UserID    string
	Name      string
	Headline  string
	Bio       string
	Location  string
	Year      int
	Fields    []string
	Interests []string
	Strengths []string
	LinksJSON string
	SkillsJSON string
	AvatarURL string
	State     ProfileState
	Onboarded bool
	Version   int
}

// PortfolioItem はポートフォリオアイテムを表す。
// Embeddingはサマリーテキストから生成した384次元ベクトル。
// embedding プロバイダーが利用できなかった場合はゼロベクトルのまま保存され、
// バックフィルワーカーが非同期に補正する。
type PortfolioItem struct {
	Auditable
	ProfileID      string
	Type           string
	Format         string
	Title          string
	Summary        string
	Tags           []string
	ContentJSON    string
	DetailTemplate string
	HeroImageURL   string
	LinksJSON      string
	State          ItemState
	Embedding      []float32
	Version        int
}

// Opportunity は企業・団体からの募集情報を表す。
type Opportunity struct {
	Auditable
	Title          string
	Org            string
	Category       string
	Fields         []string
	Tags           []string
	DesiredFormats []string
	Status         string
	Version        int
}

// Principal は検証済みセッションから得られた認証主体を表す。
type Principal struct {
	Subject string
	Email   string
	Name    string
	IsAdmin bool
}

// ZeroEmbedding は384次元のゼロベクトルを返す。
// モックモードおよび新規アイテムの初期値として使用する。
func ZeroEmbedding() []float32 {
	return make([]float32, EmbeddingDim)
}
