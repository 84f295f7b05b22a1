package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/eraverse/sales-admin-service/internal/config"
	"github.com/eraverse/sales-admin-service/internal/health"
	"github.com/eraverse/sales-admin-service/internal/http/handler"
	"github.com/eraverse/sales-admin-service/internal/http/middleware"
	"github.com/eraverse/sales-admin-service/internal/http/router"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
	"github.com/eraverse/sales-admin-service/internal/service"
)

// Run wires the whole service together and blocks until the context is
// cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, loggerProvider, err := observability.InitLogging(ctx, observability.LoggingConfig{
		Enabled:     cfg.OTELLogsEnabled,
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Insecure:    cfg.OTELExporterOTLPInsecure,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
		Level:       slog.LevelInfo,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	meterProvider, err := observability.InitMetrics(ctx, observability.MetricsConfig{
		Enabled:        cfg.OTELMetricsEnabled,
		Endpoint:       cfg.OTELExporterOTLPEndpoint,
		Insecure:       cfg.OTELExporterOTLPInsecure,
		ServiceName:    cfg.OTELServiceName,
		Environment:    cfg.OTELEnvironment,
		ExportInterval: cfg.OTELMetricsExportInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	tracerProvider, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.OTELTracesEnabled,
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Insecure:    cfg.OTELExporterOTLPInsecure,
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.OTELEnvironment,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	otelRuntime := &observability.Runtime{
		MeterProvider:  meterProvider,
		TracerProvider: tracerProvider,
		LoggerProvider: loggerProvider,
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelRuntime.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown failed", "error", err)
		}
	}()

	db, err := repository.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	sales := repository.NewSaleRepository(db)

	sessionStore := service.NewRedisSessionStore(redisClient)
	loginGuard := service.NewRedisLoginGuard(redisClient, cfg.LoginGuardMaxFailures, cfg.LoginGuardWindow)
	remember := security.NewRememberTokenizer(cfg.RememberSecret, cfg.RememberLifetime)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.BotTokenSecret)

	authSvc := service.NewAuthService(users, sessionStore, loginGuard, remember,
		cfg.SessionIdleTimeout, cfg.SessionAbsoluteTimeout, cfg.SessionRegenInterval)
	saleSvc := service.NewSaleService(sales)
	productSvc := service.NewProductService(products)
	userSvc := service.NewUserService(users)
	summarySvc := service.NewSummaryService(sales)

	sessionAuth := middleware.NewSessionAuth(authSvc, cfg.SessionCookieName, cfg.RememberCookieName, cfg.CookieSecure)

	handlerMux := router.NewRouter(router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authSvc, cfg.SessionCookieName, cfg.RememberCookieName, cfg.CookieSecure),
		SaleHandler:    handler.NewSaleHandler(saleSvc),
		ProductHandler: handler.NewProductHandler(productSvc),
		UserHandler:    handler.NewUserHandler(userSvc),
		SummaryHandler: handler.NewSummaryHandler(summarySvc),
		BotHandler:     handler.NewBotHandler(users, jwtMgr, cfg.BotTokenTTL),

		SessionAuth: sessionAuth,
		JWTManager:  jwtMgr,

		CORSOrigins:      cfg.CORSOrigins,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		BodyLimitBytes:   cfg.BodyLimitBytes,

		Readiness: health.NewProbeRunner(2*time.Second,
			health.NewDatabaseChecker(db),
			health.NewRedisChecker(redisClient),
		),
		EnableOTelHTTP: cfg.EnableOTelHTTP,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlerMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
