package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresAdminRepo はPostgreSQLを使用した管理者権限リポジトリ。
type PostgresAdminRepo struct {
	db *sql.DB
}

// NewPostgresAdminRepo はPostgresAdminRepoを生成する。
func NewPostgresAdminRepo(db *sql.DB) *PostgresAdminRepo {
	return &PostgresAdminRepo{db: db}
}

// HasActiveGrant は指定ユーザーに削除されていない権限付与行があるかを返す。
// 権限付与はトークン発行後に取り消される可能性があるため、呼び出しごとに照会する。
func (r *PostgresAdminRepo) HasActiveGrant(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE user_id = $1 AND NOT is_deleted)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin grant: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ AdminRepository = (*PostgresAdminRepo)(nil)
