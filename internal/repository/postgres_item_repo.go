package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bearfolio/bearfolio/internal/model"
)

// PostgresItemRepo はPostgreSQLを使用したポートフォリオアイテムリポジトリ。
// 全文検索（search_tsv）とpgvector近傍検索のクエリもここで実行する。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

const itemColumns = `id, profile_id, type, format, title, summary, tags,
	content_json, detail_template, hero_image_url, links_json, state,
	embedding::text, version, created_at, updated_at, created_by, updated_by, is_deleted`

func scanItem(row rowScanner) (*model.PortfolioItem, error) {
	item := &model.PortfolioItem{}
	var state, embeddingStr string
	err := row.Scan(
		&item.ID, &item.ProfileID, &item.Type, &item.Format, &item.Title, &item.Summary,
		pq.Array(&item.Tags),
		&item.ContentJSON, &item.DetailTemplate, &item.HeroImageURL, &item.LinksJSON, &state,
		&embeddingStr, &item.Version,
		&item.CreatedAt, &item.UpdatedAt, &item.CreatedBy, &item.UpdatedBy, &item.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	item.State = model.ItemState(state)

	embedding, err := parseVector(embeddingStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored embedding: %w", err)
	}
	item.Embedding = embedding
	return item, nil
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id string) (*model.PortfolioItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items WHERE id = $1 AND NOT is_deleted`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find portfolio item by ID: %w", err)
	}
	return item, nil
}

// queryItems は複数行クエリの共通処理。
func (r *PostgresItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]*model.PortfolioItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.PortfolioItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByProfileID はプロフィールのアイテム一覧を返す。
func (r *PostgresItemRepo) ListByProfileID(ctx context.Context, profileID string) ([]*model.PortfolioItem, error) {
	items, err := r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items
		 WHERE profile_id = $1 AND NOT is_deleted
		 ORDER BY created_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by profile: %w", err)
	}
	return items, nil
}

// ListPublished は公開状態の全アイテムを返す。バックフィルワーカーが使用する。
func (r *PostgresItemRepo) ListPublished(ctx context.Context) ([]*model.PortfolioItem, error) {
	items, err := r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items
		 WHERE state = $1 AND NOT is_deleted`,
		string(model.ItemStatePublished),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list published items: %w", err)
	}
	return items, nil
}

// ListPublishedFiltered は公開アイテム一覧を作成日時の降順で返す。
func (r *PostgresItemRepo) ListPublishedFiltered(ctx context.Context) ([]*model.PortfolioItem, error) {
	items, err := r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items
		 WHERE state = $1 AND NOT is_deleted
		 ORDER BY created_at DESC`,
		string(model.ItemStatePublished),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list published items: %w", err)
	}
	return items, nil
}

// Create はアイテムを作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.PortfolioItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO portfolio_items (id, profile_id, type, format, title, summary, tags,
			content_json, detail_template, hero_image_url, links_json, state,
			embedding, version, created_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::vector, $14, $15, $16, $17, $18)`,
		item.ID, item.ProfileID, item.Type, item.Format, item.Title, item.Summary,
		pq.Array(item.Tags),
		item.ContentJSON, item.DetailTemplate, item.HeroImageURL, item.LinksJSON,
		string(item.State), vectorToString(item.Embedding), item.Version,
		item.CreatedAt, item.UpdatedAt, item.CreatedBy, item.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio item: %w", err)
	}
	return nil
}

// Update はアイテムを更新する。versionのcompare-and-swapで楽観的排他制御を行う。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.PortfolioItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE portfolio_items SET
			type = $1, format = $2, title = $3, summary = $4, tags = $5,
			content_json = $6, detail_template = $7, hero_image_url = $8, links_json = $9,
			state = $10, embedding = $11::vector,
			version = version + 1, updated_at = $12, updated_by = $13
		 WHERE id = $14 AND version = $15 AND NOT is_deleted`,
		item.Type, item.Format, item.Title, item.Summary, pq.Array(item.Tags),
		item.ContentJSON, item.DetailTemplate, item.HeroImageURL, item.LinksJSON,
		string(item.State), vectorToString(item.Embedding),
		item.UpdatedAt, item.UpdatedBy,
		item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		existing, findErr := r.FindByID(ctx, item.ID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			return model.NewNotFoundError("portfolio item")
		}
		return model.NewConflictError("portfolio item")
	}

	item.Version++
	return nil
}

// SoftDelete はアイテムをソフトデリートする。
func (r *PostgresItemRepo) SoftDelete(ctx context.Context, id, updatedBy string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE portfolio_items SET is_deleted = TRUE, updated_at = now(), updated_by = $1
		 WHERE id = $2 AND NOT is_deleted`,
		updatedBy, id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete portfolio item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return model.NewNotFoundError("portfolio item")
	}
	return nil
}

// FullTextSearch は公開・未削除アイテムに対して全文検索を実行する。
func (r *PostgresItemRepo) FullTextSearch(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	items, err := r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items
		 WHERE state = $1 AND NOT is_deleted
		   AND search_tsv @@ plainto_tsquery('english', $2)`,
		string(model.ItemStatePublished), text,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute full-text search: %w", err)
	}
	return items, nil
}

// SemanticSearch はクエリベクトルとの距離の昇順で公開・未削除アイテムを返す。
func (r *PostgresItemRepo) SemanticSearch(ctx context.Context, query []float32, limit int) ([]*model.PortfolioItem, error) {
	items, err := r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM portfolio_items
		 WHERE state = $1 AND NOT is_deleted
		 ORDER BY embedding <-> $2::vector
		 LIMIT $3`,
		string(model.ItemStatePublished), vectorToString(query), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute semantic search: %w", err)
	}
	return items, nil
}

// UpdateEmbeddings は複数アイテムのembeddingを単一トランザクションで書き戻す。
// 途中で失敗した場合は全件ロールバックされる。
func (r *PostgresItemRepo) UpdateEmbeddings(ctx context.Context, updates []EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE portfolio_items SET embedding = $1::vector, updated_at = now() WHERE id = $2`)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, vectorToString(u.Embedding), u.ItemID); err != nil {
			return fmt.Errorf("failed to update embedding for item %s: %w", u.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embedding updates: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PortfolioItemRepository = (*PostgresItemRepo)(nil)
