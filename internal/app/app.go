// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bearfolio/bearfolio/internal/auth"
	"github.com/bearfolio/bearfolio/internal/config"
	"github.com/bearfolio/bearfolio/internal/database"
	"github.com/bearfolio/bearfolio/internal/embedding"
	"github.com/bearfolio/bearfolio/internal/graph"
	"github.com/bearfolio/bearfolio/internal/handler"
	"github.com/bearfolio/bearfolio/internal/logger"
	"github.com/bearfolio/bearfolio/internal/mail"
	"github.com/bearfolio/bearfolio/internal/metrics"
	"github.com/bearfolio/bearfolio/internal/middleware"
	"github.com/bearfolio/bearfolio/internal/repository"
	"github.com/bearfolio/bearfolio/internal/search"
	"github.com/bearfolio/bearfolio/internal/security"
	"github.com/bearfolio/bearfolio/internal/upload"
	"github.com/bearfolio/bearfolio/internal/worker/cleanup"
	"github.com/bearfolio/bearfolio/internal/worker/embedbackfill"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、JSON構造化ログをセットアップしたうえで
// 環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// .envはローカル開発用。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newEmbedder は設定に応じてembeddingクライアントを選択する。
// モックモードまたはプロバイダー未設定時はゼロベクトルのモックを返す。
func newEmbedder(cfg *config.Config) embedding.Client {
	if cfg.UseMocks || !cfg.EmbeddingsConfigured() {
		if !cfg.UseMocks {
			slog.Warn("embeddings provider not configured, using zero-vector mock")
		}
		return &embedding.MockClient{}
	}
	return embedding.NewHTTPClient(cfg.EmbeddingsEndpoint, cfg.EmbeddingsAPIKey)
}

// newMailSender は設定に応じてメール送信の実装を選択する。
func newMailSender(cfg *config.Config) mail.Sender {
	if cfg.UseMocks || cfg.MailAPIKey == "" {
		return mail.NewMockSender(slog.Default())
	}
	return mail.NewHTTPSender(cfg.MailAPIKey, cfg.MailFrom)
}

// newUploadService は設定に応じてアップロードサービスを選択する。
// ストレージ未設定時は全操作がNOT_CONFIGUREDを返す実装になる。
func newUploadService(cfg *config.Config, collector metrics.MetricsCollector) upload.Service {
	if cfg.UseMocks {
		return upload.NewMockService(slog.Default())
	}
	if !cfg.StorageConfigured() {
		slog.Warn("object storage not configured, upload requests will be rejected")
		return upload.NotConfiguredService{}
	}
	return upload.NewS3Service(
		cfg.StorageAccessKey, cfg.StorageSecretKey,
		cfg.StorageBucket, cfg.StorageAccountID,
		collector, slog.Default(),
	)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	adminRepo := repository.NewPostgresAdminRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	itemRepo := repository.NewPostgresItemRepo(db)
	oppRepo := repository.NewPostgresOpportunityRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証サービスの初期化
	domain := auth.NewDomainPolicy(cfg.AllowedEmailDomain)
	issuer := auth.NewSessionIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AdminEmails)
	validator := auth.NewSessionValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, domain)

	verifier, err := auth.NewGoogleVerifier(ctx, auth.GoogleJWKSURL, cfg.GoogleClientID, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize google verifier: %w", err)
	}
	authService := auth.NewService(verifier, domain, issuer, userRepo, adminRepo)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()
	embedder := newEmbedder(cfg)
	searchService := search.NewService(itemRepo, embedder, collector, slog.Default())

	dispatcher := mail.NewDispatcher(newMailSender(cfg), cfg.MailQueueSize, collector, slog.Default())
	go dispatcher.Run(ctx)

	uploads := newUploadService(cfg, collector)

	// 6. GraphQLスキーマの構築
	resolver := graph.NewResolver(graph.ResolverDeps{
		UserRepo:    userRepo,
		ProfileRepo: profileRepo,
		ItemRepo:    itemRepo,
		OppRepo:     oppRepo,
		Search:      searchService,
		Embedder:    embedder,
		Sanitizer:   sanitizer,
		Mailer:      dispatcher,
		Uploads:     uploads,
		Admin:       authService,
		Issuer:      issuer,
		Logger:      slog.Default(),
	})
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		return fmt.Errorf("failed to build graphql schema: %w", err)
	}

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		TokenValidator:     validator,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		Logger:             slog.Default(),
		Metrics:            collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		Schema:         schema,
		EnableGraphiQL: cfg.UseMocks,

		DB:       db,
		Gatherer: registry,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// embeddingバックフィルワーカーとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 依存関係の初期化
	itemRepo := repository.NewPostgresItemRepo(db)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	embedder := newEmbedder(cfg)

	// 3. クリーンアップジョブをバックグラウンドで起動
	cleanupJob := cleanup.NewCleanupJob(db, collector, slog.Default())
	cleanupJob.RetentionDays = cfg.RetentionDays
	go cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker starting",
		slog.Duration("embed_interval", cfg.EmbedInterval),
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// 4. バックフィルワーカーをメインgoroutineで実行（ブロッキング）
	backfill := embedbackfill.NewWorker(itemRepo, embedder, collector, slog.Default())
	backfill.Start(ctx, cfg.EmbedInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
