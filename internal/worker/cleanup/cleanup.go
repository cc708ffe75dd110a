// Package cleanup は論理削除済みデータの物理削除ジョブを提供する。
// 保持期間（デフォルト180日）を超過した論理削除済み行を
// 定期バッチで物理削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bearfolio/bearfolio/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// purgeTables は物理削除の対象テーブル。
// portfolio_itemsはprofilesより先に削除し、外部キー違反を避ける。
var purgeTables = []string{"portfolio_items", "profiles", "opportunities"}

// CleanupJob は保持期間を超過した論理削除済み行の物理削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	RetentionDays int // 論理削除後の保持日数（デフォルト: 180）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は180日。
func NewCleanupJob(db Executor, collector metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		metrics:       collector,
		logger:        logger,
		RetentionDays: 180,
	}
}

// Run は保持期間を超過した論理削除済み行を物理削除する。
// is_deletedかつupdated_atがRetentionDays日前より古い行をDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)
	var total int64

	for _, table := range purgeTables {
		query := fmt.Sprintf(
			`DELETE FROM %s WHERE is_deleted AND updated_at < now() - $1::interval`, table)
		result, err := j.db.ExecContext(ctx, query, interval)
		if err != nil {
			j.logger.Error("クリーンアップジョブの実行に失敗しました",
				slog.String("table", table),
				slog.String("error", err.Error()),
				slog.Int("retention_days", j.RetentionDays),
			)
			return fmt.Errorf("%s のクリーンアップに失敗: %w", table, err)
		}

		deleted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("削除件数の取得に失敗: %w", err)
		}
		total += deleted
	}

	j.metrics.RecordCleanupPurged(int(total))

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", total),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでジョブを定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
