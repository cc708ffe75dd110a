// Package embedbackfill は公開アイテムのembeddingを定期的に再計算する
// バックフィルワーカーを提供する。プロバイダー切り替え後のベクトル再生成と、
// 提出時の失敗で欠落したベクトルの補完を兼ねる。
package embedbackfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bearfolio/bearfolio/internal/embedding"
	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/repository"
)

// Worker は公開アイテムのembeddingバックフィルを行う。
type Worker struct {
	itemRepo repository.PortfolioItemRepository
	embedder embedding.Client
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewWorker はWorkerの新しいインスタンスを生成する。
func NewWorker(
	itemRepo repository.PortfolioItemRepository,
	embedder embedding.Client,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		itemRepo: itemRepo,
		embedder: embedder,
		metrics:  collector,
		logger:   logger,
	}
}

// Start は指定間隔のティッカーでワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("embeddingバックフィルワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("バックフィルサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("embeddingバックフィルワーカーを停止しました")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("バックフィルサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は公開アイテム全件のembeddingを再計算し、単一トランザクションで
// 書き戻す。途中でエラーが発生した場合はサイクル全体を中断し、
// 既存のベクトルは変更しない。次のサイクルで最初からやり直す。
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()

	items, err := w.itemRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("公開アイテムの取得に失敗: %w", err)
	}

	if len(items) == 0 {
		w.logger.Info("バックフィル対象のアイテムはありません")
		return nil
	}

	updates := make([]repository.EmbeddingUpdate, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.metrics.RecordEmbedding()
		vec, err := w.embedder.Embed(ctx, item.Summary)
		if err != nil {
			w.metrics.RecordEmbeddingFailure()
			return fmt.Errorf("アイテム %s のベクトル化に失敗: %w", item.ID, err)
		}

		updates = append(updates, repository.EmbeddingUpdate{
			ItemID:    item.ID,
			Embedding: vec,
		})
	}

	if err := w.itemRepo.UpdateEmbeddings(ctx, updates); err != nil {
		return fmt.Errorf("embeddingの書き戻しに失敗: %w", err)
	}

	w.metrics.RecordBackfillItems(len(updates))

	w.logger.Info("バックフィルサイクルが完了しました",
		slog.Int("item_count", len(updates)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
