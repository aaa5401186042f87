package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mediassist/resource-api/internal/config"
	"github.com/mediassist/resource-api/internal/email"
	appointmenthandler "github.com/mediassist/resource-api/internal/handler/appointment"
	authhandler "github.com/mediassist/resource-api/internal/handler/auth"
	facilityhandler "github.com/mediassist/resource-api/internal/handler/facility"
	healthhandler "github.com/mediassist/resource-api/internal/handler/health"
	inventoryhandler "github.com/mediassist/resource-api/internal/handler/inventory"
	providerhandler "github.com/mediassist/resource-api/internal/handler/provider"
	"github.com/mediassist/resource-api/internal/middleware"
	"github.com/mediassist/resource-api/internal/repository/postgres"
	"github.com/mediassist/resource-api/internal/router"
	authservice "github.com/mediassist/resource-api/internal/service/auth"
	"github.com/mediassist/resource-api/internal/service/directory"
	eventservice "github.com/mediassist/resource-api/internal/service/event"
	inventoryservice "github.com/mediassist/resource-api/internal/service/inventory"
	providerservice "github.com/mediassist/resource-api/internal/service/provider"
	"github.com/mediassist/resource-api/internal/service/schedule"
	"github.com/mediassist/resource-api/pkg/auth"
	"github.com/mediassist/resource-api/pkg/fanout"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/metrics"
	"github.com/mediassist/resource-api/pkg/security"
	"github.com/mediassist/resource-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	tokenRepo := postgres.NewTokenRepository(base)
	facilityRepo := postgres.NewFacilityRepository(base)
	inventoryRepo := postgres.NewInventoryRepository(base)
	providerRepo := postgres.NewProviderRepository(base)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	appMetrics := metrics.NewMetrics("mediassist", "api")
	dispatcher := fanout.NewDispatcher(&log.Logger)

	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(0)
	emailSvc := email.NewSMTPService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		BaseURL:  fmt.Sprintf("http://localhost:%d/api/v1/auth", cfg.Server.Port),
	}, appLogger)

	eventSvc := eventservice.NewService(outboxRepo, dispatcher, appLogger)
	inventorySvc := inventoryservice.NewService(inventoryRepo, eventSvc, appMetrics, appLogger)
	directorySvc := directory.NewService(facilityRepo, inventoryRepo, userRepo, dispatcher, appMetrics, appLogger)
	providerSvc := providerservice.NewService(providerRepo, appLogger)
	scheduleSvc := schedule.NewService(appointmentRepo, providerRepo, eventSvc, appMetrics, appLogger)
	authSvc := authservice.NewService(userRepo, tokenRepo, providerRepo, facilityRepo, jwtSvc, hasher, emailSvc, appLogger)

	v := validator.New()
	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authhandler.NewHandler(authSvc, v),
		facilityhandler.NewHandler(directorySvc, v),
		inventoryhandler.NewHandler(inventorySvc, directorySvc, v),
		providerhandler.NewHandler(providerSvc, v),
		appointmenthandler.NewHandler(scheduleSvc, v),
		healthhandler.NewHandler(db, appLogger),
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.RateLimit.RPS),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MetricsPrefix: "mediassist_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
	directorySvc.Close(dispatcher)
	appLogger.Info("server stopped")
}
