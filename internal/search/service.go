// Package search はポートフォリオアイテムの全文検索とベクトル近傍検索を提供する。
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bearfolio/bearfolio/internal/embedding"
	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/model"
	"github.com/bearfolio/bearfolio/internal/repository"
)

// SemanticSearchLimit はベクトル近傍検索の最大取得件数。
const SemanticSearchLimit = 20

// 検索モード（メトリクスのラベル値）
const (
	modeFullText = "fulltext"
	modeSemantic = "semantic"
)

// Service は検索のビジネスロジックを提供する。
type Service struct {
	itemRepo repository.PortfolioItemRepository
	embedder embedding.Client
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	itemRepo repository.PortfolioItemRepository,
	embedder embedding.Client,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		itemRepo: itemRepo,
		embedder: embedder,
		metrics:  collector,
		logger:   logger.With(slog.String("component", "search")),
	}
}

// FullText は公開・未削除アイテムに対してキーワード検索を実行する。
// 空白のみのクエリは空の結果を返す（DBには問い合わせない）。
func (s *Service) FullText(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	start := time.Now()
	items, err := s.itemRepo.FullTextSearch(ctx, text)
	s.metrics.RecordSearchLatency(modeFullText, time.Since(start))
	if err != nil {
		s.metrics.RecordSearchFailure(modeFullText)
		s.logger.Error("full-text search failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}

	s.metrics.RecordSearch(modeFullText)
	return items, nil
}

// Semantic はクエリをベクトル化し、距離の昇順で近いアイテムを返す。
// 最大SemanticSearchLimit件。ベクトル化に失敗した場合は検索自体が失敗する。
func (s *Service) Semantic(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.metrics.RecordEmbedding()
	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.metrics.RecordEmbeddingFailure()
		s.metrics.RecordSearchFailure(modeSemantic)
		s.logger.Error("query embedding failed", slog.String("error", err.Error()))
		return nil, err
	}

	start := time.Now()
	items, err := s.itemRepo.SemanticSearch(ctx, query, SemanticSearchLimit)
	s.metrics.RecordSearchLatency(modeSemantic, time.Since(start))
	if err != nil {
		s.metrics.RecordSearchFailure(modeSemantic)
		s.logger.Error("semantic search failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	s.metrics.RecordSearch(modeSemantic)
	return items, nil
}
