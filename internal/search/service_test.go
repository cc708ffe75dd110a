package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/model"
	"github.com/bearfolio/bearfolio/internal/repository"
)

// --- モック定義 ---

type mockItemRepo struct {
	repository.PortfolioItemRepository
	fullTextSearchFunc func(ctx context.Context, text string) ([]*model.PortfolioItem, error)
	semanticSearchFunc func(ctx context.Context, query []float32, limit int) ([]*model.PortfolioItem, error)
}

func (m *mockItemRepo) FullTextSearch(ctx context.Context, text string) ([]*model.PortfolioItem, error) {
	return m.fullTextSearchFunc(ctx, text)
}

func (m *mockItemRepo) SemanticSearch(ctx context.Context, query []float32, limit int) ([]*model.PortfolioItem, error) {
	return m.semanticSearchFunc(ctx, query, limit)
}

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFunc(ctx, text)
}

// --- テスト ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testItems() []*model.PortfolioItem {
	return []*model.PortfolioItem{
		{Auditable: model.Auditable{ID: "item-1"}, Title: "Robotics project"},
		{Auditable: model.Auditable{ID: "item-2"}, Title: "Poetry collection"},
	}
}

func TestService_FullText(t *testing.T) {
	repo := &mockItemRepo{
		fullTextSearchFunc: func(_ context.Context, text string) ([]*model.PortfolioItem, error) {
			if text != "robotics" {
				t.Errorf("text = %q, want %q", text, "robotics")
			}
			return testItems(), nil
		},
	}
	svc := NewService(repo, &mockEmbedder{}, metrics.NopCollector{}, testLogger())

	items, err := svc.FullText(context.Background(), "  robotics  ")
	if err != nil {
		t.Fatalf("FullText failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
}

func TestService_FullText_BlankQuery(t *testing.T) {
	repo := &mockItemRepo{
		fullTextSearchFunc: func(_ context.Context, _ string) ([]*model.PortfolioItem, error) {
			t.Error("空クエリでDBに問い合わせている")
			return nil, nil
		},
	}
	svc := NewService(repo, &mockEmbedder{}, metrics.NopCollector{}, testLogger())

	items, err := svc.FullText(context.Background(), "   ")
	if err != nil {
		t.Fatalf("FullText failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestService_Semantic(t *testing.T) {
	vec := []float32{0.1, 0.2, 0.3}
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, text string) ([]float32, error) {
			if text != "robotics" {
				t.Errorf("text = %q, want %q", text, "robotics")
			}
			return vec, nil
		},
	}
	repo := &mockItemRepo{
		semanticSearchFunc: func(_ context.Context, query []float32, limit int) ([]*model.PortfolioItem, error) {
			if limit != SemanticSearchLimit {
				t.Errorf("limit = %d, want %d", limit, SemanticSearchLimit)
			}
			if len(query) != 3 || query[0] != 0.1 {
				t.Errorf("unexpected query vector: %v", query)
			}
			return testItems(), nil
		},
	}
	svc := NewService(repo, embedder, metrics.NopCollector{}, testLogger())

	items, err := svc.Semantic(context.Background(), "robotics")
	if err != nil {
		t.Fatalf("Semantic failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
}

func TestService_Semantic_EmbedFailure(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, _ string) ([]float32, error) {
			return nil, model.NewUpstreamError("embeddings", errors.New("connection refused"))
		},
	}
	repo := &mockItemRepo{
		semanticSearchFunc: func(_ context.Context, _ []float32, _ int) ([]*model.PortfolioItem, error) {
			t.Error("ベクトル化失敗後に検索が実行されている")
			return nil, nil
		},
	}
	svc := NewService(repo, embedder, metrics.NopCollector{}, testLogger())

	_, err := svc.Semantic(context.Background(), "robotics")
	if !model.IsCode(err, model.ErrCodeUpstream) {
		t.Errorf("error = %v, want UPSTREAM", err)
	}
}

func TestService_Semantic_BlankQuery(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(_ context.Context, _ string) ([]float32, error) {
			t.Error("空クエリでベクトル化している")
			return nil, nil
		},
	}
	svc := NewService(&mockItemRepo{}, embedder, metrics.NopCollector{}, testLogger())

	items, err := svc.Semantic(context.Background(), "")
	if err != nil {
		t.Fatalf("Semantic failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}
