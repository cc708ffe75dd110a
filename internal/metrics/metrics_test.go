package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定カウンタの値を取得するテストヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSearch_IncrementsCounter は検索カウンタがモード別に増加することを検証する。
func TestRecordSearch_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearch("fulltext")
	c.RecordSearch("fulltext")
	c.RecordSearch("semantic")

	if got := counterValue(t, reg, "bearfolio_search_total"); got != 3 {
		t.Errorf("search_total = %v, want 3", got)
	}
}

// TestRecordSearchFailure_IncrementsCounter は検索失敗カウンタが増加することを検証する。
func TestRecordSearchFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearchFailure("semantic")

	if got := counterValue(t, reg, "bearfolio_search_fail_total"); got != 1 {
		t.Errorf("search_fail_total = %v, want 1", got)
	}
}

// TestRecordMailDropped_IncrementsCounter はメール破棄カウンタが増加することを検証する。
func TestRecordMailDropped_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMailDropped()
	c.RecordMailDropped()

	if got := counterValue(t, reg, "bearfolio_mail_dropped_total"); got != 2 {
		t.Errorf("mail_dropped_total = %v, want 2", got)
	}
}

// TestRecordBackfillItems_AddsCount はバックフィルカウンタが件数分増加することを検証する。
func TestRecordBackfillItems_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackfillItems(5)
	c.RecordBackfillItems(3)

	if got := counterValue(t, reg, "bearfolio_backfill_items_total"); got != 8 {
		t.Errorf("backfill_items_total = %v, want 8", got)
	}
}

// TestRecordHTTPRequest_IncrementsCounter はHTTPリクエストカウンタが増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, 200)
	c.RecordHTTPRequest(http.MethodPost, 401)

	if got := counterValue(t, reg, "bearfolio_http_requests_total"); got != 2 {
		t.Errorf("bearfolio_http_requests_total = %v, want 2", got)
	}
}

// TestRecordMailQueueDepth_SetsGauge はキュー滞留数ゲージが設定されることを検証する。
func TestRecordMailQueueDepth_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMailQueueDepth(5)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == "bearfolio_mail_queue_depth" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 5 {
				t.Errorf("bearfolio_mail_queue_depth = %v, want 5", got)
			}
			return
		}
	}
	t.Fatal("metric bearfolio_mail_queue_depth not found")
}

// TestRecordSearchLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordSearchLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearchLatency("fulltext", 150*time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "bearfolio_search_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("bearfolio_search_latency_seconds metric not found")
	}
}

// TestHandler_ServesMetrics は/metricsハンドラーがメトリクスを出力することを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSearch("fulltext")

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to GET metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "bearfolio_search_total") {
		t.Error("response does not contain bearfolio_search_total")
	}
}
