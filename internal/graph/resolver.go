// Package graph はGraphQL APIのスキーマとリゾルバーを提供する。
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bearfolio/bearfolio/internal/embedding"
	"github.com/bearfolio/bearfolio/internal/mail"
	"github.com/bearfolio/bearfolio/internal/middleware"
	"github.com/bearfolio/bearfolio/internal/model"
	"github.com/bearfolio/bearfolio/internal/repository"
	"github.com/bearfolio/bearfolio/internal/security"
	"github.com/bearfolio/bearfolio/internal/upload"
)

// AdminChecker は現在有効な管理者権限の確認を行うインターフェース。
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// TokenIssuer はセッショントークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// SearchService は検索のインターフェース。
type SearchService interface {
	FullText(ctx context.Context, text string) ([]*model.PortfolioItem, error)
	Semantic(ctx context.Context, text string) ([]*model.PortfolioItem, error)
}

// MailEnqueuer は通知メールをキューに追加するインターフェース。
type MailEnqueuer interface {
	Enqueue(msg mail.Message) bool
}

// Resolver はGraphQL操作のビジネスロジックを提供する。
type Resolver struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	itemRepo    repository.PortfolioItemRepository
	oppRepo     repository.OpportunityRepository
	search      SearchService
	embedder    embedding.Client
	sanitizer   security.ContentSanitizerService
	mailer      MailEnqueuer
	uploads     upload.Service
	admin       AdminChecker
	issuer      TokenIssuer
	logger      *slog.Logger
}

// ResolverDeps はResolverの依存関係をまとめた構造体。
type ResolverDeps struct {
	UserRepo    repository.UserRepository
	ProfileRepo repository.ProfileRepository
	ItemRepo    repository.PortfolioItemRepository
	OppRepo     repository.OpportunityRepository
	Search      SearchService
	Embedder    embedding.Client
	Sanitizer   security.ContentSanitizerService
	Mailer      MailEnqueuer
	Uploads     upload.Service
	Admin       AdminChecker
	Issuer      TokenIssuer
	Logger      *slog.Logger
}

// NewResolver はResolverを生成する。
func NewResolver(deps ResolverDeps) *Resolver {
	return &Resolver{
		userRepo:    deps.UserRepo,
		profileRepo: deps.ProfileRepo,
		itemRepo:    deps.ItemRepo,
		oppRepo:     deps.OppRepo,
		search:      deps.Search,
		embedder:    deps.Embedder,
		sanitizer:   deps.Sanitizer,
		mailer:      deps.Mailer,
		uploads:     deps.Uploads,
		admin:       deps.Admin,
		issuer:      deps.Issuer,
		logger:      deps.Logger.With(slog.String("component", "graph")),
	}
}

// requirePrincipal は認証済みPrincipalを取得する。未認証はNOT_AUTHORIZED。
func requirePrincipal(ctx context.Context) (*model.Principal, error) {
	p := middleware.PrincipalFromContext(ctx)
	if p == nil {
		return nil, model.NewNotAuthorizedError()
	}
	return p, nil
}

// requireAdmin は昇格操作のための二重チェックを行う。
// トークンのroleクレームに加えて、adminsテーブルの有効な権限付与を
// 呼び出しのたびに確認する。
func (r *Resolver) requireAdmin(ctx context.Context) (*model.Principal, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		return nil, model.NewNotAuthorizedError()
	}
	granted, err := r.admin.IsAdmin(ctx, p.Subject)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, model.NewNotAuthorizedError()
	}
	return p, nil
}

// canManageProfile はプロフィールの所有者または管理者かを返す。
func canManageProfile(p *model.Principal, profile *model.Profile) bool {
	return p != nil && (p.Subject == profile.UserID || p.IsAdmin)
}

// --- クエリ ---

// Students は公開状態のプロフィール一覧を返す。誰でも閲覧できる。
func (r *Resolver) Students(ctx context.Context) ([]*model.Profile, error) {
	return r.profileRepo.ListPublic(ctx)
}

// Student は指定IDのプロフィールを返す。
// 下書き状態のプロフィールは所有者と管理者のみ閲覧でき、
// それ以外には存在自体を知らせない（NOT_FOUND）。
func (r *Resolver) Student(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := r.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewNotFoundError("profile")
	}
	if profile.State != model.ProfileStatePublic && !canManageProfile(middleware.PrincipalFromContext(ctx), profile) {
		return nil, model.NewNotFoundError("profile")
	}
	return profile, nil
}

// Me は現在のユーザー自身のプロフィールを返す。未作成の場合はnil。
func (r *Resolver) Me(ctx context.Context) (*model.Profile, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return r.profileRepo.FindByUserID(ctx, p.Subject)
}

// PortfolioItems は指定プロフィールのアイテム一覧を返す。
// 所有者と管理者は下書きも含めた全アイテム、それ以外は公開済みのみ。
func (r *Resolver) PortfolioItems(ctx context.Context, profileID string) ([]*model.PortfolioItem, error) {
	profile, err := r.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewNotFoundError("profile")
	}

	items, err := r.itemRepo.ListByProfileID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if canManageProfile(middleware.PrincipalFromContext(ctx), profile) {
		return items, nil
	}

	published := make([]*model.PortfolioItem, 0, len(items))
	for _, item := range items {
		if item.State == model.ItemStatePublished {
			published = append(published, item)
		}
	}
	return published, nil
}

// PortfolioItem は指定IDのアイテムを返す。
// 下書きは所有者と管理者のみ閲覧できる。
func (r *Resolver) PortfolioItem(ctx context.Context, id string) (*model.PortfolioItem, error) {
	item, err := r.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewNotFoundError("portfolio item")
	}
	if item.State == model.ItemStatePublished {
		return item, nil
	}

	profile, err := r.profileRepo.FindByID(ctx, item.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || !canManageProfile(middleware.PrincipalFromContext(ctx), profile) {
		return nil, model.NewNotFoundError("portfolio item")
	}
	return item, nil
}

// Opportunities は募集情報一覧を返す。誰でも閲覧できる。
func (r *Resolver) Opportunities(ctx context.Context) ([]*model.Opportunity, error) {
	return r.oppRepo.List(ctx)
}

// Search はキーワード検索を実行する。誰でも利用できる。
func (r *Resolver) Search(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	return r.search.FullText(ctx, text)
}

// SemanticSearch はベクトル近傍検索を実行する。誰でも利用できる。
func (r *Resolver) SemanticSearch(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	return r.search.Semantic(ctx, text)
}

// --- ミューテーション ---

// ProfileInput はプロフィール作成・更新の入力。
type ProfileInput struct {
	Name       string
	Headline   string
	Bio        string
	Location   string
	Year       int
	Fields     []string
	Interests  []string
	Strengths  []string
	LinksJSON  string
	SkillsJSON string
	AvatarURL  string
}

// applyProfileInput は入力をサニタイズしてプロフィールに反映する。
func (r *Resolver) applyProfileInput(profile *model.Profile, input ProfileInput) {
	profile.Name = r.sanitizer.SanitizePlainText(input.Name)
	profile.Headline = r.sanitizer.SanitizePlainText(input.Headline)
	profile.Bio = r.sanitizer.SanitizeRichText(input.Bio)
	profile.Location = r.sanitizer.SanitizePlainText(input.Location)
	profile.Year = input.Year
	profile.Fields = input.Fields
	profile.Interests = input.Interests
	profile.Strengths = input.Strengths
	profile.LinksJSON = input.LinksJSON
	profile.SkillsJSON = input.SkillsJSON
	profile.AvatarURL = input.AvatarURL
}

// CreateProfile は現在のユーザーのプロフィールを作成する。
// ユーザーにつき1件のみで、既存の場合はCONFLICT。作成直後は下書き状態。
func (r *Resolver) CreateProfile(ctx context.Context, input ProfileInput) (*model.Profile, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, model.NewValidationError("name required")
	}

	existing, err := r.profileRepo.FindByUserID(ctx, p.Subject)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewConflictError("profile")
	}

	now := time.Now()
	profile := &model.Profile{
		Auditable: model.Auditable{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: p.Subject,
			UpdatedBy: p.Subject,
		},
		UserID:    p.Subject,
		State:     model.ProfileStateDraft,
		Onboarded: true,
		Version:   1,
	}
	r.applyProfileInput(profile, input)

	if err := r.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	r.logger.Info("profile created", slog.String("profile_id", profile.ID), slog.String("user_id", p.Subject))
	return profile, nil
}

// UpdateProfile はプロフィールを更新する。所有者または管理者のみ。
// versionが保存済みの値と一致しない場合はCONFLICT。
func (r *Resolver) UpdateProfile(ctx context.Context, id string, version int, input ProfileInput) (*model.Profile, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := r.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewNotFoundError("profile")
	}
	if !canManageProfile(p, profile) {
		return nil, model.NewNotAuthorizedError()
	}

	r.applyProfileInput(profile, input)
	profile.Version = version
	profile.UpdatedAt = time.Now()
	profile.UpdatedBy = p.Subject

	if err := r.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// PublishProfile はプロフィールを公開状態にする。所有者または管理者のみ。
func (r *Resolver) PublishProfile(ctx context.Context, id string, version int) (*model.Profile, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := r.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewNotFoundError("profile")
	}
	if !canManageProfile(p, profile) {
		return nil, model.NewNotAuthorizedError()
	}

	profile.State = model.ProfileStatePublic
	profile.Version = version
	profile.UpdatedAt = time.Now()
	profile.UpdatedBy = p.Subject

	if err := r.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	r.logger.Info("profile published", slog.String("profile_id", profile.ID))
	return profile, nil
}

// PortfolioItemInput はアイテム作成・更新の入力。
type PortfolioItemInput struct {
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
}

// SubmitPortfolioItem はアイテムを提出する。プロフィールの所有者のみ。
// サマリーのベクトル化に失敗した場合はアイテムを保存せずエラーを返す。
// 提出に成功すると所有者に通知メールを送る（ベストエフォート）。
func (r *Resolver) SubmitPortfolioItem(ctx context.Context, input PortfolioItemInput) (*model.PortfolioItem, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, model.NewValidationError("title required")
	}

	profile, err := r.profileRepo.FindByID(ctx, input.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewNotFoundError("profile")
	}
	if !canManageProfile(p, profile) {
		return nil, model.NewNotAuthorizedError()
	}

	title := r.sanitizer.SanitizePlainText(input.Title)
	summary := r.sanitizer.SanitizeRichText(input.Summary)

	vector, err := r.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item := &model.PortfolioItem{
		Auditable: model.Auditable{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: p.Subject,
			UpdatedBy: p.Subject,
		},
		ProfileID:      input.ProfileID,
		Type:           input.Type,
		Format:         input.Format,
		Title:          title,
		Summary:        summary,
		Tags:           input.Tags,
		ContentJSON:    input.ContentJSON,
		DetailTemplate: input.DetailTemplate,
		HeroImageURL:   input.HeroImageURL,
		LinksJSON:      input.LinksJSON,
		State:          model.ItemStateDraft,
		Embedding:      vector,
		Version:        1,
	}

	if err := r.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	r.notifyOwner(ctx, profile, mail.SubmittedMessage("", item.Title))
	r.logger.Info("portfolio item submitted",
		slog.String("item_id", item.ID),
		slog.String("profile_id", profile.ID),
	)
	return item, nil
}

// UpdatePortfolioItem はアイテムを更新する。所有者または管理者のみ。
// サマリーが変更された場合は再ベクトル化し、失敗した場合は保存しない。
func (r *Resolver) UpdatePortfolioItem(ctx context.Context, id string, version int, input PortfolioItemInput) (*model.PortfolioItem, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	item, err := r.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewNotFoundError("portfolio item")
	}

	profile, err := r.profileRepo.FindByID(ctx, item.ProfileID)
	if err != nil {
		return nil, err
	}
	if profile == nil || !canManageProfile(p, profile) {
		return nil, model.NewNotAuthorizedError()
	}

	summary := r.sanitizer.SanitizeRichText(input.Summary)
	if summary != item.Summary {
		vector, err := r.embedder.Embed(ctx, summary)
		if err != nil {
			return nil, err
		}
		item.Embedding = vector
	}

	item.Type = input.Type
	item.Format = input.Format
	item.Title = r.sanitizer.SanitizePlainText(input.Title)
	item.Summary = summary
	item.Tags = input.Tags
	item.ContentJSON = input.ContentJSON
	item.DetailTemplate = input.DetailTemplate
	item.HeroImageURL = input.HeroImageURL
	item.LinksJSON = input.LinksJSON
	item.Version = version
	item.UpdatedAt = time.Now()
	item.UpdatedBy = p.Subject

	if err := r.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// PublishPortfolioItem はアイテムを公開状態にする。管理者のみ。
// 公開に成功すると所有者に通知メールを送る（ベストエフォート）。
func (r *Resolver) PublishPortfolioItem(ctx context.Context, id string, version int) (*model.PortfolioItem, error) {
	p, err := r.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	item, err := r.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewNotFoundError("portfolio item")
	}

	item.State = model.ItemStatePublished
	item.Version = version
	item.UpdatedAt = time.Now()
	item.UpdatedBy = p.Subject

	if err := r.itemRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	profile, err := r.profileRepo.FindByID(ctx, item.ProfileID)
	if err == nil && profile != nil {
		r.notifyOwner(ctx, profile, mail.PublishedMessage("", item.Title))
	}

	r.logger.Info("portfolio item published", slog.String("item_id", item.ID))
	return item, nil
}

// DeletePortfolioItem はアイテムをソフトデリートする。所有者または管理者のみ。
func (r *Resolver) DeletePortfolioItem(ctx context.Context, id string) (bool, error) {
	p, err := requirePrincipal(ctx)
	if err != nil {
		return false, err
	}

	item, err := r.itemRepo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, model.NewNotFoundError("portfolio item")
	}

	profile, err := r.profileRepo.FindByID(ctx, item.ProfileID)
	if err != nil {
		return false, err
	}
	if profile == nil || !canManageProfile(p, profile) {
		return false, model.NewNotAuthorizedError()
	}

	if err := r.itemRepo.SoftDelete(ctx, id, p.Subject); err != nil {
		return false, err
	}
	return true, nil
}

// OpportunityInput は募集情報作成の入力。
type OpportunityInput struct {
	Title          string
	Org            string
	Category       string
	Fields         []string
	Tags           []string
	DesiredFormats []string
	Status         string
}

// CreateOpportunity は募集情報を作成する。管理者のみ。
func (r *Resolver) CreateOpportunity(ctx context.Context, input OpportunityInput) (*model.Opportunity, error) {
	p, err := r.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, model.NewValidationError("title required")
	}

	now := time.Now()
	opp := &model.Opportunity{
		Auditable: model.Auditable{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: p.Subject,
			UpdatedBy: p.Subject,
		},
		Title:          r.sanitizer.SanitizePlainText(input.Title),
		Org:            r.sanitizer.SanitizePlainText(input.Org),
		Category:       input.Category,
		Fields:         input.Fields,
		Tags:           input.Tags,
		DesiredFormats: input.DesiredFormats,
		Status:         input.Status,
		Version:        1,
	}

	if err := r.oppRepo.Create(ctx, opp); err != nil {
		return nil, err
	}

	r.logger.Info("opportunity created", slog.String("opportunity_id", opp.ID))
	return opp, nil
}

// RequestUploadURL はアップロード用の署名付きURLを発行する。認証必須。
func (r *Resolver) RequestUploadURL(ctx context.Context, kind, contentType string, size int64) (*upload.PresignedUpload, error) {
	if _, err := requirePrincipal(ctx); err != nil {
		return nil, err
	}
	return r.uploads.Presign(ctx, upload.Kind(kind), contentType, size)
}

// ImpersonateUser は指定ユーザーとして有効なセッショントークンを発行する。
// 管理者のみ。サポート調査用で、発行は監査ログに記録される。
func (r *Resolver) ImpersonateUser(ctx context.Context, userID string) (string, error) {
	p, err := r.requireAdmin(ctx)
	if err != nil {
		return "", err
	}

	user, err := r.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", model.NewNotFoundError("user")
	}

	token, err := r.issuer.Issue(user)
	if err != nil {
		return "", fmt.Errorf("failed to issue impersonation token: %w", err)
	}

	r.logger.Warn("impersonation token issued",
		slog.String("admin_id", p.Subject),
		slog.String("target_user_id", userID),
	)
	return token, nil
}

// notifyOwner はプロフィール所有者に通知メールをキューイングする。
// 所有者が見つからない場合は黙って諦める（通知はベストエフォート）。
func (r *Resolver) notifyOwner(ctx context.Context, profile *model.Profile, msg mail.Message) {
	owner, err := r.userRepo.FindByID(ctx, profile.UserID)
	if err != nil || owner == nil {
		r.logger.Warn("could not resolve profile owner for notification",
			slog.String("profile_id", profile.ID),
		)
		return
	}
	msg.To = owner.Email
	r.mailer.Enqueue(msg)
}
