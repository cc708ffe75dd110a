package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// --- モック定義 ---

type mockPinger struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.pingFunc(ctx)
}

func TestLive(t *testing.T) {
	h := NewHealthHandler(&mockPinger{pingFunc: func(_ context.Context) error {
		t.Error("LiveがDBにアクセスしている")
		return nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "db reachable", pingErr: nil, wantStatus: http.StatusOK},
		{name: "db unreachable", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&mockPinger{pingFunc: func(_ context.Context) error {
				return tt.pingErr
			}})

			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()
			h.Ready(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.pingErr != nil && !strings.Contains(rec.Body.String(), "database unreachable") {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}
