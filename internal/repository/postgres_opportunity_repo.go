package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bearfolio/bearfolio/internal/model"
)

// PostgresOpportunityRepo はPostgreSQLを使用した募集情報リポジトリ。
type PostgresOpportunityRepo struct {
	db *sql.DB
}

// NewPostgresOpportunityRepo はPostgresOpportunityRepoを生成する。
func NewPostgresOpportunityRepo(db *sql.DB) *PostgresOpportunityRepo {
	return &PostgresOpportunityRepo{db: db}
}

const opportunityColumns = `id, title, org, category, fields, tags, desired_formats,
	status, version, created_at, updated_at, created_by, updated_by, is_deleted`

func scanOpportunity(row rowScanner) (*model.Opportunity, error) {
	o := &model.Opportunity{}
	err := row.Scan(
		&o.ID, &o.Title, &o.Org, &o.Category,
		pq.Array(&o.Fields), pq.Array(&o.Tags), pq.Array(&o.DesiredFormats),
		&o.Status, &o.Version,
		&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy, &o.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindByID は指定IDの募集情報を取得する。見つからない場合はnilを返す。
func (r *PostgresOpportunityRepo) FindByID(ctx context.Context, id string) (*model.Opportunity, error) {
	o, err := scanOpportunity(r.db.QueryRowContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1 AND NOT is_deleted`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find opportunity by ID: %w", err)
	}
	return o, nil
}

// List は未削除の募集情報一覧を返す。
func (r *PostgresOpportunityRepo) List(ctx context.Context) ([]*model.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities
		 WHERE NOT is_deleted
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []*model.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// Create は募集情報を作成する。
func (r *PostgresOpportunityRepo) Create(ctx context.Context, opp *model.Opportunity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, title, org, category, fields, tags, desired_formats,
			status, version, created_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		opp.ID, opp.Title, opp.Org, opp.Category,
		pq.Array(opp.Fields), pq.Array(opp.Tags), pq.Array(opp.DesiredFormats),
		opp.Status, opp.Version,
		opp.CreatedAt, opp.UpdatedAt, opp.CreatedBy, opp.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}
	return nil
}

// Update は募集情報を更新する。versionのcompare-and-swapを行う。
func (r *PostgresOpportunityRepo) Update(ctx context.Context, opp *model.Opportunity) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opportunities SET
			title = $1, org = $2, category = $3,
			fields = $4, tags = $5, desired_formats = $6, status = $7,
			version = version + 1, updated_at = $8, updated_by = $9
		 WHERE id = $10 AND version = $11 AND NOT is_deleted`,
		opp.Title, opp.Org, opp.Category,
		pq.Array(opp.Fields), pq.Array(opp.Tags), pq.Array(opp.DesiredFormats), opp.Status,
		opp.UpdatedAt, opp.UpdatedBy,
		opp.ID, opp.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		existing, findErr := r.FindByID(ctx, opp.ID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			return model.NewNotFoundError("opportunity")
		}
		return model.NewConflictError("opportunity")
	}

	opp.Version++
	return nil
}

// compile-time interface check
var _ OpportunityRepository = (*PostgresOpportunityRepo)(nil)
