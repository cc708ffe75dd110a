// Package embedding はテキストのベクトル化クライアントを提供する。
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bearfolio/bearfolio/internal/model"
)

// Client はテキストをベクトル化するインターフェース。
type Client interface {
	// Embed はテキストをベクトル化する。
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MockClient はゼロベクトルを返すクライアント。
// エンドポイント未設定時やローカル開発で使用し、決して失敗しない。
// 全アイテムが同一ベクトルとなるため近傍検索の順序は安定するが意味を持たない。
type MockClient struct{}

// Embed はゼロベクトルを返す。
func (c *MockClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return model.ZeroEmbedding(), nil
}

// HTTPClient はOpenAI互換の/embeddingsエンドポイントを呼び出すクライアント。
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient はHTTPClientを生成する。
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Data []float32 `json:"data"`
}

// Embed はエンドポイントにテキストを送信しベクトルを取得する。
// 接続エラー、非2xx応答、不正なレスポンスはUPSTREAMエラーとなる。
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("embeddings", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 本文はログ・エラーに含めない（プロバイダー依存の内容のため）
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, model.NewUpstreamError("embeddings", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, model.NewUpstreamError("embeddings", fmt.Errorf("invalid response: %w", err))
	}
	if len(parsed.Data) != model.EmbeddingDim {
		// 次元違いはDBのvector(384)カラムまで届く前にここで弾く
		return nil, model.NewUpstreamError("embeddings",
			fmt.Errorf("embedding has %d dimensions, want %d", len(parsed.Data), model.EmbeddingDim))
	}

	return parsed.Data, nil
}

// compile-time interface check
var (
	_ Client = (*MockClient)(nil)
	_ Client = (*HTTPClient)(nil)
)
