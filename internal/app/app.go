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
	"golang.org/x/time/rate"

	"github.com/hitoshi/clubdesk/internal/announcement"
	"github.com/hitoshi/clubdesk/internal/auth"
	"github.com/hitoshi/clubdesk/internal/config"
	"github.com/hitoshi/clubdesk/internal/database"
	"github.com/hitoshi/clubdesk/internal/event"
	"github.com/hitoshi/clubdesk/internal/handler"
	"github.com/hitoshi/clubdesk/internal/logger"
	"github.com/hitoshi/clubdesk/internal/member"
	"github.com/hitoshi/clubdesk/internal/metrics"
	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/presence"
	"github.com/hitoshi/clubdesk/internal/project"
	"github.com/hitoshi/clubdesk/internal/repository"
	"github.com/hitoshi/clubdesk/internal/ride"
	"github.com/hitoshi/clubdesk/internal/security"
	"github.com/hitoshi/clubdesk/internal/servicelog"
	"github.com/hitoshi/clubdesk/internal/worker/sweeper"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルがあれば環境変数に取り込む（ローカル開発用、なければ無視）
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env file")
	}

	// 3. 環境変数から設定を読み込む
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

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
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
	memberRepo := repository.NewPostgresMemberRepo(db)
	presenceRepo := repository.NewPostgresPresenceRepo(db)
	announcementRepo := repository.NewPostgresAnnouncementRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	rideRepo := repository.NewPostgresRideRepo(db)
	serviceLogRepo := repository.NewPostgresServiceLogRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewContentSanitizer()
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.SessionMaxAge)*time.Second)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(memberRepo, tokens)
	ledger := presence.NewLedger(presenceRepo, memberRepo)
	history := presence.NewHistoryReader(presenceRepo, memberRepo)
	announcementService := announcement.NewService(announcementRepo, sanitizer)
	eventService := event.NewService(eventRepo, sanitizer)
	rideService := ride.NewService(rideRepo, eventRepo)
	serviceLogService := servicelog.NewService(serviceLogRepo)
	projectService := project.NewService(projectRepo)
	memberService := member.NewService(memberRepo)

	// 6. 在室台帳のメトリクス計測アダプタ
	instrumentedLedger := handler.NewInstrumentedLedger(ledger, collector)

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterConfig(cfg)),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:    slog.Default(),
		Collector: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PresenceService: instrumentedLedger,
		PresenceHistory: history,

		AnnouncementService: announcementService,

		EventService: eventService,
		RideService:  rideService,

		ServiceLogService: serviceLogService,
		ProjectService:    projectService,

		MemberService: memberService,
	}

	router := handler.NewRouter(deps)

	// 8. Prometheusスクレイプ用の/metricsをAPIルートと同居させる
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.Handle("/", router)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
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
// DB接続を開き、下校時刻スイープのスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
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

	// 2. リポジトリと在室台帳の初期化
	memberRepo := repository.NewPostgresMemberRepo(db)
	presenceRepo := repository.NewPostgresPresenceRepo(db)
	ledger := presence.NewLedger(presenceRepo, memberRepo)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. スイーパーの初期化
	location, err := time.LoadLocation(cfg.SweepTimezone)
	if err != nil {
		return fmt.Errorf("failed to load sweep timezone: %w", err)
	}

	sw := sweeper.NewSweeper(
		ledger, slog.Default(), collector,
		cfg.SweepTimes, location, cfg.SweepPollInterval,
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// Prometheusスクレイプ用のメトリクスサーバーをバックグラウンドで起動
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		slog.Info("worker metrics server starting",
			slog.String("addr", metricsServer.Addr),
		)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Int("sweep_slot_count", len(cfg.SweepTimes)),
		slog.String("sweep_timezone", cfg.SweepTimezone),
		slog.Duration("poll_interval", cfg.SweepPollInterval),
		slog.Time("next_sweep", sw.NextScheduledTime(time.Now())),
	)

	// スイーパーをメインgoroutineで実行（ブロッキング）
	sw.Start(ctx)

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

// rateLimiterConfig はConfigのreq/min設定をレートリミッターのreq/sec設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	limiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		limiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		limiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitAuth > 0 {
		limiterCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
		limiterCfg.AuthBurst = cfg.RateLimitAuth
	}
	return limiterCfg
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
