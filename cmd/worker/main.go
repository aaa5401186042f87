package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mediassist/resource-api/internal/config"
	"github.com/mediassist/resource-api/internal/email"
	"github.com/mediassist/resource-api/internal/repository/postgres"
	internalworker "github.com/mediassist/resource-api/internal/worker"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/messaging/redis"
	"github.com/mediassist/resource-api/pkg/metrics"
	"github.com/mediassist/resource-api/pkg/worker"
)

// workerConfig is read from the environment so the worker can run without
// a config file next to it.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"mediassist"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"mediassist"`
	DBName     string `envconfig:"DB_NAME" default:"mediassist"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@mediassist.local"`

	BatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`
	Retention     time.Duration `envconfig:"OUTBOX_RETENTION" default:"24h"`
	CleanupEvery  time.Duration `envconfig:"OUTBOX_CLEANUP_EVERY" default:"1h"`

	HealthPort int `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	userRepo := postgres.NewUserRepository(base)

	appMetrics := metrics.NewMetrics("mediassist", "worker")

	emailSvc := email.NewSMTPService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, appLogger)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
	}, appLogger, appMetrics)

	notifier := internalworker.NewNotifier(broker, userRepo, emailSvc, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go func() {
		if err := notifier.Start(ctx); err != nil {
			appLogger.Error(err, "notifier stopped")
		}
	}()
	go runRetentionCleanup(ctx, outboxRepo, cfg.Retention, cfg.CleanupEvery, appLogger)

	startHealthServer(cfg.HealthPort, db, appLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
	time.Sleep(time.Second)
}

// runRetentionCleanup prunes processed outbox rows so the table does not
// grow without bound.
func runRetentionCleanup(ctx context.Context, repo interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}, retention, every time.Duration, logger *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error(err, "outbox cleanup failed")
				continue
			}
			if deleted > 0 {
				logger.Info("pruned processed outbox events", "deleted", deleted)
			}
		}
	}
}

func startHealthServer(port int, db interface{ Ping() error }, logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting worker health server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(err, "health server failed")
			os.Exit(1)
		}
	}()
}
