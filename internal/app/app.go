package app

import (
	"context"
	"database/sql"
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
	"golang.org/x/time/rate"

	"github.com/AnhPhix3405/bpsclub-web/internal/admin"
	"github.com/AnhPhix3405/bpsclub-web/internal/blog"
	"github.com/AnhPhix3405/bpsclub-web/internal/config"
	"github.com/AnhPhix3405/bpsclub-web/internal/contact"
	"github.com/AnhPhix3405/bpsclub-web/internal/database"
	"github.com/AnhPhix3405/bpsclub-web/internal/event"
	"github.com/AnhPhix3405/bpsclub-web/internal/handler"
	"github.com/AnhPhix3405/bpsclub-web/internal/logger"
	"github.com/AnhPhix3405/bpsclub-web/internal/metrics"
	"github.com/AnhPhix3405/bpsclub-web/internal/middleware"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
	"github.com/AnhPhix3405/bpsclub-web/internal/security"
	"github.com/AnhPhix3405/bpsclub-web/internal/validation"
	"github.com/AnhPhix3405/bpsclub-web/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .env と環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .env を読み込む（存在しなければ無視）
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info", slog.String("error", err.Error()))
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

	// browse はAPIクライアントとして動作し、DB設定を必要としない
	if cmd == CommandBrowse {
		return runBrowse(w, args[1:])
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
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

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// rateLimiterConfig は設定値（req/min）をレートリミッターの設定（req/sec）に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rl.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitForm > 0 {
		rl.FormRate = rate.Limit(float64(cfg.RateLimitForm) / 60.0)
		rl.FormBurst = cfg.RateLimitForm
	}
	rl.TrustProxy = cfg.TrustProxy
	return rl
}

// feedInfo はRSSチャンネル情報を設定から組み立てる。
func feedInfo(cfg *config.Config) blog.FeedInfo {
	return blog.FeedInfo{
		Title:       cfg.FeedTitle,
		Link:        cfg.BaseURL,
		Description: cfg.FeedDescription,
		Language:    cfg.FeedLanguage,
	}
}

// newMetrics はプロセス・ランタイムのメトリクスを含むレジストリとCollectorを生成する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	eventRepo := repository.NewPostgresEventRepo(db)
	eventCategoryRepo := repository.NewPostgresEventCategoryRepo(db)
	blogRepo := repository.NewPostgresBlogRepo(db)
	blogCategoryRepo := repository.NewPostgresBlogCategoryRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)
	adminRepo := repository.NewPostgresAdminRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. 共通コンポーネントの初期化
	sanitizer := security.NewContentSanitizer()
	validator := validation.New()
	reg, collector := newMetrics()
	log := slog.Default()

	// 4. ドメインサービスの初期化
	eventService := event.NewService(eventRepo, eventCategoryRepo, sanitizer, validator, collector, log)
	blogService := blog.NewService(blogRepo, blogCategoryRepo, tagRepo, sanitizer, validator, collector, feedInfo(cfg), log)
	contactService := contact.NewService(contactRepo, validator, collector, log)
	adminService := admin.NewService(adminRepo, sessionRepo, admin.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	}, log)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg), log)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:             log,
		HealthChecker:      db,
		SessionFinder:      sessionRepo,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HTTPMetrics:    collector,
		MetricsHandler: metrics.Handler(reg),
		EnableHSTS:     cfg.EnableHSTS,

		AuthService: adminService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		EventService:   eventService,
		BlogService:    blogService,
		ContactService: contactService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、cron式に従って保守ジョブを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. 保守ジョブとスケジューラの初期化
	_, collector := newMetrics()
	job := cleanup.NewCleanupJob(db, slog.Default(), collector)
	scheduler := cleanup.NewScheduler(job, cfg.CleanupSchedule, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	<-ctx.Done()
	slog.Info("shutting down worker...")
	scheduler.Stop()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用し、
// 管理者が存在しなければ設定の初期管理者を作成する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))

	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	adminService := admin.NewService(
		repository.NewPostgresAdminRepo(db),
		repository.NewPostgresSessionRepo(db),
		admin.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		slog.Default(),
	)
	return bootstrapAdmin(context.Background(), adminService, cfg)
}

// AdminBootstrapper は初期管理者の作成操作。
type AdminBootstrapper interface {
	Bootstrap(ctx context.Context, in admin.BootstrapInput) (bool, error)
}

// bootstrapAdmin は設定の初期管理者を作成する。既に管理者がいる場合は何もしない。
func bootstrapAdmin(ctx context.Context, b AdminBootstrapper, cfg *config.Config) error {
	created, err := b.Bootstrap(ctx, admin.BootstrapInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		FullName: cfg.AdminFullName,
	})
	if err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}
	if created {
		slog.Info("initial admin created", slog.String("username", cfg.AdminUsername))
	}
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
