package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/nabha-health/telehealth-auth/internal/api/http"
	"github.com/nabha-health/telehealth-auth/internal/api/http/handlers"
	"github.com/nabha-health/telehealth-auth/internal/auth"
	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/events"
	"github.com/nabha-health/telehealth-auth/internal/notify"
	"github.com/nabha-health/telehealth-auth/internal/observability"
	"github.com/nabha-health/telehealth-auth/internal/otp"
	"github.com/nabha-health/telehealth-auth/internal/persistence"
	"github.com/nabha-health/telehealth-auth/internal/repository"
	"github.com/nabha-health/telehealth-auth/internal/service"
	"github.com/nabha-health/telehealth-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	identities, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	g, gctx := errgroup.WithContext(ctx)
	metrics := observability.NewMetrics()
	checks := map[string]handlers.Check{}

	codes, closeCodes, err := openCodeStore(ctx, g, gctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer closeCodes()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		Issuer:        cfg.Auth.Issuer,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordVerifier(cfg.Auth.BcryptCost)
	resolver := service.NewIdentityResolver(identities, passwords, cfg.Auth.StoreTimeout)
	checks["identity_store"] = resolver.Ping

	dispatcher := events.NewInMemoryDispatcher()
	delivery := notify.NewSender(cfg.Notification, logger)
	pool := worker.NewDeliveryPool(delivery, logger, metrics,
		cfg.Notification.QueueSize, cfg.Notification.Workers, cfg.Notification.SendTimeout)
	g.Go(func() error { return pool.Run(gctx) })
	service.NewNotificationService(dispatcher, pool, logger).RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		Codes:      codes,
		Resolver:   resolver,
		Tokens:     tokens,
		Passwords:  passwords,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := httptransport.NewServer(cfg.App, logger, metrics, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks, metrics),
		Auth: handlers.NewAuthHandler(authService, handlers.SessionOptions{
			Transport:     cfg.Auth.SessionTransport,
			SecureCookies: cfg.App.IsProduction(),
		}),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openCodeStore(ctx context.Context, g *errgroup.Group, gctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handlers.Check) (otp.CodeStore, func(), error) {
	opts := otp.Options{
		Length:      cfg.OTP.Length,
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}

	if cfg.OTP.Store == config.OTPStoreRedis {
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		checks["redis"] = rdb.Ping
		return otp.NewRedisStore(rdb.Client, opts), rdb.Close, nil
	}

	store := otp.NewMemoryStore(opts)
	g.Go(func() error {
		store.RunJanitor(gctx, cfg.OTP.SweepInterval)
		return nil
	})
	logger.Info("using in-memory code store", zap.Duration("sweep_interval", cfg.OTP.SweepInterval))
	return store, func() {}, nil
}
