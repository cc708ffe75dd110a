// Package upload はオブジェクトストレージへの署名付きアップロードURL発行を提供する。
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/model"
)

// PresignTTL は署名付きURLの有効期間。
const PresignTTL = 10 * time.Minute

// Kind はアップロードの用途。用途ごとにサイズ上限が異なる。
type Kind string

const (
	KindProfileImage Kind = "profile"
	KindHeroImage    Kind = "hero"
	KindGalleryImage Kind = "gallery"
	KindVideo        Kind = "video"
)

// 用途別のサイズ上限（バイト）
var sizeLimits = map[Kind]int64{
	KindProfileImage: 5 * 1024 * 1024,
	KindHeroImage:    10 * 1024 * 1024,
	KindGalleryImage: 10 * 1024 * 1024,
	KindVideo:        50 * 1024 * 1024,
}

// 許可するContent-Type
var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
	"video/mp4":       true,
	"video/webm":      true,
}

// PresignedUpload は発行された署名付きアップロードURL。
type PresignedUpload struct {
	URL string // PUT先のURL
	Key string // オブジェクトキー
}

// Service は署名付きURL発行のインターフェース。
type Service interface {
	// Presign はアップロード用の署名付きPUT URLを発行する。
	Presign(ctx context.Context, kind Kind, contentType string, size int64) (*PresignedUpload, error)
}

// validate は用途・Content-Type・サイズの検証を行う。
func validate(kind Kind, contentType string, size int64) error {
	limit, ok := sizeLimits[kind]
	if !ok {
		return model.NewValidationError(fmt.Sprintf("unknown upload kind: %s", kind))
	}
	if !allowedContentTypes[contentType] {
		return model.NewValidationError(fmt.Sprintf("content type not allowed: %s", contentType))
	}
	if size <= 0 {
		return model.NewValidationError("size must be positive")
	}
	if size > limit {
		return model.NewValidationError("file too large")
	}
	return nil
}

// MockService は固定URLを返すService。ストレージ未設定のローカル開発で使用する。
type MockService struct {
	logger *slog.Logger
}

// NewMockService はMockServiceを生成する。
func NewMockService(logger *slog.Logger) *MockService {
	return &MockService{logger: logger.With(slog.String("component", "upload_mock"))}
}

// Presign は検証のみ行い、ダミーのURLとキーを返す。
func (s *MockService) Presign(_ context.Context, kind Kind, contentType string, size int64) (*PresignedUpload, error) {
	if err := validate(kind, contentType, size); err != nil {
		return nil, err
	}
	key := "mock/" + uuid.New().String()
	s.logger.Info("mock upload URL issued", slog.String("key", key))
	return &PresignedUpload{
		URL: "https://uploads.invalid/" + key,
		Key: key,
	}, nil
}

// S3Service はS3互換ストレージ（Cloudflare R2）の署名付きURLを発行する。
type S3Service struct {
	presigner *s3.PresignClient
	bucket    string
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewS3Service はS3Serviceを生成する。
// accountID はR2アカウントID。エンドポイントは<accountID>.r2.cloudflarestorage.comとなる。
func NewS3Service(accessKey, secretKey, bucket, accountID string, collector metrics.MetricsCollector, logger *slog.Logger) *S3Service {
	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)),
		Credentials:  aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		UsePathStyle: true,
	})

	return &S3Service{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		metrics:   collector,
		logger:    logger.With(slog.String("component", "upload")),
	}
}

// Presign はアップロード用の署名付きPUT URLを発行する。
// キーはuploads/配下のUUIDで、呼び出しごとに新規生成される。
func (s *S3Service) Presign(ctx context.Context, kind Kind, contentType string, size int64) (*PresignedUpload, error) {
	if err := validate(kind, contentType, size); err != nil {
		return nil, err
	}

	key := "uploads/" + uuid.New().String()
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return nil, model.NewUpstreamError("storage", err)
	}

	s.metrics.RecordUploadPresigned()
	s.logger.Info("upload URL issued",
		slog.String("key", key),
		slog.String("kind", string(kind)),
		slog.Int64("size", size),
	)

	return &PresignedUpload{URL: req.URL, Key: key}, nil
}

// compile-time interface check
var (
	_ Service = (*MockService)(nil)
	_ Service = (*S3Service)(nil)
)
