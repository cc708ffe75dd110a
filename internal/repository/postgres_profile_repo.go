package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bearfolio/bearfolio/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, user_id, name, headline, bio, location, year,
	fields, interests, strengths, links_json, skills_json, avatar_url,
	state, onboarded, version, created_at, updated_at, created_by, updated_by, is_deleted`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var state string
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Headline, &p.Bio, &p.Location, &p.Year,
		pq.Array(&p.Fields), pq.Array(&p.Interests), pq.Array(&p.Strengths),
		&p.LinksJSON, &p.SkillsJSON, &p.AvatarURL,
		&state, &p.Onboarded, &p.Version,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy, &p.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	p.State = model.ProfileState(state)
	return p, nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1 AND NOT is_deleted`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}
	return p, nil
}

// FindByUserID はユーザーIDでプロフィールを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 AND NOT is_deleted`,
		userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by user ID: %w", err)
	}
	return p, nil
}

// ListPublic は公開状態のプロフィール一覧を返す。
func (r *PostgresProfileRepo) ListPublic(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE state = $1 AND NOT is_deleted
		 ORDER BY created_at DESC`,
		string(model.ProfileStatePublic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, name, headline, bio, location, year,
			fields, interests, strengths, links_json, skills_json, avatar_url,
			state, onboarded, version, created_at, updated_at, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		profile.ID, profile.UserID, profile.Name, profile.Headline, profile.Bio,
		profile.Location, profile.Year,
		pq.Array(profile.Fields), pq.Array(profile.Interests), pq.Array(profile.Strengths),
		profile.LinksJSON, profile.SkillsJSON, profile.AvatarURL,
		string(profile.State), profile.Onboarded, profile.Version,
		profile.CreatedAt, profile.UpdatedAt, profile.CreatedBy, profile.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Update はプロフィールを更新する。
// versionのcompare-and-swapにより、並行編集による上書き消失をCONFLICTとして検出する。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET
			name = $1, headline = $2, bio = $3, location = $4, year = $5,
			fields = $6, interests = $7, strengths = $8,
			links_json = $9, skills_json = $10, avatar_url = $11,
			state = $12, onboarded = $13,
			version = version + 1, updated_at = $14, updated_by = $15
		 WHERE id = $16 AND version = $17 AND NOT is_deleted`,
		profile.Name, profile.Headline, profile.Bio, profile.Location, profile.Year,
		pq.Array(profile.Fields), pq.Array(profile.Interests), pq.Array(profile.Strengths),
		profile.LinksJSON, profile.SkillsJSON, profile.AvatarURL,
		string(profile.State), profile.Onboarded,
		profile.UpdatedAt, profile.UpdatedBy,
		profile.ID, profile.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// 行が存在しないのか、versionが競合したのかを区別する
		existing, findErr := r.FindByID(ctx, profile.ID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			return model.NewNotFoundError("profile")
		}
		return model.NewConflictError("profile")
	}

	profile.Version++
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
