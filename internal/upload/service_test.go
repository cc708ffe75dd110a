package upload

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bearfolio/bearfolio/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		contentType string
		size        int64
		wantErr     bool
	}{
		{"プロフィール画像", KindProfileImage, "image/jpeg", 1024, false},
		{"ヒーロー画像の上限ちょうど", KindHeroImage, "image/png", 10 * 1024 * 1024, false},
		{"PDF", KindGalleryImage, "application/pdf", 1024, false},
		{"動画", KindVideo, "video/mp4", 40 * 1024 * 1024, false},
		{"webm動画", KindVideo, "video/webm", 1024, false},
		{"プロフィール画像のサイズ超過", KindProfileImage, "image/jpeg", 6 * 1024 * 1024, true},
		{"動画のサイズ超過", KindVideo, "video/mp4", 51 * 1024 * 1024, true},
		{"許可されないContent-Type", KindGalleryImage, "application/zip", 1024, true},
		{"SVGは許可しない", KindProfileImage, "image/svg+xml", 1024, true},
		{"サイズ0", KindProfileImage, "image/jpeg", 0, true},
		{"未知の用途", Kind("banner"), "image/jpeg", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.kind, tt.contentType, tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !model.IsCode(err, model.ErrCodeValidation) {
				t.Errorf("error code = %v, want VALIDATION", err)
			}
		})
	}
}

func TestValidate_FileTooLargeMessage(t *testing.T) {
	err := validate(KindProfileImage, "image/jpeg", 6*1024*1024)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "file too large") {
		t.Errorf("error = %v, want message containing %q", err, "file too large")
	}
}

func TestMockService_Presign(t *testing.T) {
	s := NewMockService(testLogger())

	result, err := s.Presign(context.Background(), KindProfileImage, "image/jpeg", 1024)
	if err != nil {
		t.Fatalf("Presign failed: %v", err)
	}
	if !strings.HasPrefix(result.Key, "mock/") {
		t.Errorf("Key = %q, want prefix %q", result.Key, "mock/")
	}
	if result.URL == "" {
		t.Error("URL is empty")
	}

	// キーは呼び出しごとに一意
	result2, err := s.Presign(context.Background(), KindProfileImage, "image/jpeg", 1024)
	if err != nil {
		t.Fatalf("Presign failed: %v", err)
	}
	if result.Key == result2.Key {
		t.Error("キーが使い回されている")
	}
}

func TestMockService_RejectsInvalidInput(t *testing.T) {
	s := NewMockService(testLogger())

	_, err := s.Presign(context.Background(), KindVideo, "video/mp4", 100*1024*1024)
	if !model.IsCode(err, model.ErrCodeValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
}
