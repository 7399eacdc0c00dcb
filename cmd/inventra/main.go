package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inventra/inventra/internal/apiclient"
	"github.com/inventra/inventra/internal/app"
	"github.com/inventra/inventra/internal/auth"
	"github.com/inventra/inventra/internal/catalog"
	"github.com/inventra/inventra/internal/dashboard"
	"github.com/inventra/inventra/internal/observability"
	"github.com/inventra/inventra/internal/pdf"
	"github.com/inventra/inventra/internal/platform/cache"
	"github.com/inventra/inventra/internal/products"
	"github.com/inventra/inventra/internal/reports"
	"github.com/inventra/inventra/internal/shared"
	"github.com/inventra/inventra/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.LoadDotEnv(); err != nil {
		slog.Default().Error("load .env", slog.Any("error", err))
		os.Exit(1)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.Open(ctx, cfg.RedisAddr, 5*time.Second)
	if err != nil {
		logger.Warn("redis unavailable at startup", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "inventra_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	apiClient := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, apiclient.WithObserver(metrics))

	authService := auth.NewService(apiClient)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	catalogService := catalog.NewService(apiClient)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	reportsService := reports.NewService(apiClient, reportsCache)

	pdfClient := pdf.NewClient(cfg.GotenbergURL, 30*time.Second)

	productsHandler := products.NewHandler(logger, catalogService, reportsService, templates, csrfManager, cfg.TablePageSize)
	authHandler.OnSessionRetired(productsHandler.ForgetSession)
	dashboardHandler := dashboard.NewHandler(logger, reportsService, pdfClient, templates, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		ProductsHandler:  productsHandler,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
