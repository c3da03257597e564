package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/export"
	"shareit/internal/google"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/models"
	"shareit/internal/notify"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedData(ctx, db, &logger); err != nil {
		return err
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	cache := buildProjectionCache(cfg, redisClient, &logger)
	syncWorker := initSheetsSync(ctx, cfg, db, redisClient, &logger)
	registerMetricsHandlers(eventBus)

	bookingService := service.NewBookingService(db, eventBus, syncWorker, cache, cfg.Booking.MaxBookingDays, &logger)
	itemService := service.NewItemService(db, cache, &logger)
	commentService := service.NewCommentService(db, eventBus, &logger)
	userService := service.NewUserService(db, &logger)

	initNotifications(cfg, db, eventBus, &logger)

	exporter := export.NewExcelExporter(db, &logger)
	httpServer := api.NewHTTPServer(cfg.API, userService, itemService, bookingService, commentService, exporter, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// seedData loads the optional seed file with initial users and items. The
// seed is idempotent: rows that already exist are skipped.
func seedData(ctx context.Context, db *database.DB, logger *zerolog.Logger) error {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = "configs/seed.yaml"
	}

	seedData, err := os.ReadFile(seedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed file")
		return err
	}

	var seed struct {
		Users []models.User `yaml:"users"`
		Items []models.Item `yaml:"items"`
	}
	if err := yaml.Unmarshal(seedData, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed file")
		return err
	}

	for i := range seed.Users {
		if err := db.CreateUser(ctx, &seed.Users[i]); err != nil {
			logger.Warn().Err(err).Str("email", seed.Users[i].Email).Msg("seed user skipped")
		}
	}
	for i := range seed.Items {
		if err := db.CreateItem(ctx, &seed.Items[i]); err != nil {
			logger.Warn().Err(err).Str("name", seed.Items[i].Name).Msg("seed item skipped")
		}
	}

	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Msg("seed file applied")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// buildProjectionCache prefers redis with an in-memory fallback behind the
// failover wrapper; without redis the in-memory cache serves alone.
func buildProjectionCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.ProjectionCache {
	ttl := time.Duration(cfg.Booking.ProjectionCacheTTLSeconds) * time.Second
	memory := repository.NewMemoryProjectionCache(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverProjectionCache(
		repository.NewRedisProjectionCache(redisClient, ttl),
		memory,
		logger,
	)
}

func initSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets sync")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	syncWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	go syncWorker.Start(ctx)
	return syncWorker
}

func initNotifications(cfg *config.Config, db *database.DB, eventBus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Notifications.TelegramEnabled {
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Notifications.TelegramBotToken, db, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifier init failed, continuing without notifications")
		return
	}
	notifier.Register(eventBus)
	logger.Info().Msg("telegram notifications enabled")
}

func registerMetricsHandlers(eventBus *events.EventBus) {
	count := func(operation string) events.EventHandler {
		return func(*events.Event) error {
			metrics.IncBookingOp(operation, nil)
			return nil
		}
	}
	eventBus.Subscribe(events.EventBookingCreated, count("create"))
	eventBus.Subscribe(events.EventBookingApproved, count("approve"))
	eventBus.Subscribe(events.EventBookingRejected, count("reject"))
	eventBus.Subscribe(events.EventBookingCanceled, count("cancel"))
	eventBus.Subscribe(events.EventCommentAdded, count("comment"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
