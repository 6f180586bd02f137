// Package app はサブコマンドごとの依存関係の組み立てと起動を行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/hackorsnooze/internal/auth"
	"github.com/hitoshi/hackorsnooze/internal/catalog"
	"github.com/hitoshi/hackorsnooze/internal/config"
	"github.com/hitoshi/hackorsnooze/internal/database"
	"github.com/hitoshi/hackorsnooze/internal/handler"
	"github.com/hitoshi/hackorsnooze/internal/logger"
	"github.com/hitoshi/hackorsnooze/internal/metrics"
	"github.com/hitoshi/hackorsnooze/internal/middleware"
	"github.com/hitoshi/hackorsnooze/internal/repository"
	"github.com/hitoshi/hackorsnooze/internal/security"
	"github.com/hitoshi/hackorsnooze/internal/worker/cleanup"
)

// ErrUnknownCommand はサポート外のサブコマンドが指定された場合のエラー。
var ErrUnknownCommand = errors.New("unknown command")

// InitLogger はJSON構造化ログをセットアップする。
// ログレベルはLOG_LEVEL環境変数で指定する。
func InitLogger(w io.Writer) *slog.Logger {
	return logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。コマンドの結果はoutに、ログはlogwに出力する。
func Run(out, logw io.Writer, args []string) error {
	cmd := ParseCommand(args)
	if cmd == CommandUnknown {
		return fmt.Errorf("%w: %q\n%s", ErrUnknownCommand, args[0], Usage())
	}

	var rest []string
	if len(args) > 0 {
		rest = args[1:]
	}
	if err := checkArgs(cmd, rest); err != nil {
		return err
	}

	envFile := os.Getenv("HNS_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	log := InitLogger(logw)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if isServerCommand(cmd) {
		cfg, err := config.LoadServer()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		slog.Info("starting application",
			slog.String("command", string(cmd)),
			slog.String("port", cfg.ServerPort),
		)
		if cmd == CommandMigrate {
			return runMigrate(cfg)
		}
		return runServe(ctx, cfg)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return runClientCommand(ctx, newClientEnv(cfg, log, out), cmd, rest)
}

// runServe はリファレンスAPIサーバーを起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.ServerConfig) error {
	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)
	storyRepo := repository.NewPostgresStoryRepo(db)
	favRepo := repository.NewPostgresFavoriteRepo(db)

	// 3. セキュリティサービスの初期化
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewTextSanitizer()

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo, tokenRepo, storyRepo, favRepo, sanitizer,
		auth.ServiceConfig{BcryptCost: cfg.BcryptCost},
	)
	catalogService := catalog.NewService(storyRepo, favRepo, urlGuard, sanitizer)

	// 5. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HTTPMetrics:       collector,
		HealthChecker:     db,
		MetricsHandler:    metrics.Handler(reg),
		AccountService:    authService,
		CatalogService:    catalogService,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 8. ログイントークンの定期クリーンアップ
	cleanupJob := cleanup.NewTokenCleanupJob(db, slog.Default(), cfg.TokenRetentionDays)
	go cleanupJob.Start(ctx, cfg.TokenCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.ServerConfig) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
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
