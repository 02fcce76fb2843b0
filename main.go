package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aetherlens/backend/internal/config"
	"github.com/aetherlens/backend/internal/db"
	"github.com/aetherlens/backend/internal/handler"
	"github.com/aetherlens/backend/internal/logger"
	"github.com/aetherlens/backend/internal/ratelimit"
	"github.com/aetherlens/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// @title AetherLens API
// @version 1.0.0
// @description Device registry behind token authentication and per-client rate admission.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := db.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	tokens, err := service.NewTokenManager(service.TokenConfig{
		Secret:     cfg.Auth.SecretKey,
		Algorithm:  cfg.Auth.Algorithm,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}

	resolver := service.NewIdentityResolver(tokens, store, cfg.Auth.StoreTimeout)
	authSvc := service.NewAuthService(store, tokens, resolver, cfg.Auth.StoreTimeout, log.Named("auth"))
	if cfg.Auth.AdminUsername != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}
	deviceSvc := service.NewDeviceService(store)

	limiter := ratelimit.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := handler.NewHTTPMetrics(reg)
	handler.RegisterRuntimeGauges(reg, store, limiter)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterDeps{
		Log:       log,
		Server:    cfg.Server,
		RateLimit: cfg.RateLimit,
		Limiter:   limiter,
		Metrics:   metrics,
		Gatherer:  reg,
		Resolver:  resolver,
		Auth:      handler.NewAuthHandler(authSvc),
		Devices:   handler.NewDeviceHandler(deviceSvc),
		Health:    handler.NewHealthHandler(store),
	})

	srv := &http.Server{
		Addr:              cfg.Server.BindAddr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			zap.String("addr", cfg.Server.BindAddr),
			zap.Int("rate_limit_per_minute", cfg.RateLimit.PerMinute),
			zap.Int("rate_limit_per_hour", cfg.RateLimit.PerHour),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("Server exited gracefully")
	return nil
}
