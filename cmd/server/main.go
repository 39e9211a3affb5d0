package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/brixsport/backend/internal/cache"
	"github.com/brixsport/backend/internal/config"
	"github.com/brixsport/backend/internal/database"
	"github.com/brixsport/backend/internal/domain"
	"github.com/brixsport/backend/internal/handler"
	"github.com/brixsport/backend/internal/outbox"
	"github.com/brixsport/backend/internal/repository"
	"github.com/brixsport/backend/internal/service"
	"github.com/brixsport/backend/internal/transport"
	"github.com/brixsport/backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBTimeout)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	slog.Info("database connected")

	queryCache := cache.New()
	defer queryCache.Close()

	broker := outbox.NewBroker(cfg.OutboxBuffer)
	defer broker.Close()

	hub := ws.NewHub()
	go hub.Run()

	userRepo := repository.NewUserRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	eventRepo := repository.NewEventRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	var sender transport.Sender = transport.LogSender{}
	if cfg.PushWebhookURL != "" {
		sender = transport.NewWebhookSender(cfg.PushWebhookURL)
	}

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
	})
	matchSvc := service.NewMatchService(matchRepo, queryCache, hub, cfg.MatchCacheTTL)
	statsSvc := service.NewStatsService(eventRepo, statsRepo, matchRepo, queryCache, cfg.StatsCacheTTL)
	eventSvc := service.NewEventService(eventRepo, matchRepo, statsSvc, broker, hub)
	prefsSvc := service.NewPreferencesService(prefsRepo)
	deliverySvc := service.NewDeliveryService(deliveryRepo)
	notifSvc := service.NewNotificationService(notifRepo, broker)

	dispatcher := service.NewDispatcher(
		notifRepo, prefsRepo, prefsRepo, userRepo, matchRepo, deliverySvc, sender)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Run(dispatchCtx, broker)

	authHandler := handler.NewAuthHandler(authSvc)
	matchHandler := handler.NewMatchHandler(matchSvc, statsSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	notifHandler := handler.NewNotificationHandler(notifSvc, deliverySvc)
	prefsHandler := handler.NewPreferencesHandler(prefsSvc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(handler.RequestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return handler.JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/ws/matches", func(c echo.Context) error {
		return hub.HandleWS(c.Response(), c.Request())
	})

	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.GET("/google", authHandler.GoogleRedirect)
	auth.GET("/google/callback", authHandler.GoogleCallback)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", authHandler.Me, handler.JWTAuth(authSvc))

	protected := api.Group("", handler.JWTAuth(authSvc))

	protected.GET("/matches", matchHandler.List)
	protected.GET("/matches/:id", matchHandler.Get)
	protected.POST("/matches", matchHandler.Create,
		handler.RequireCapability(domain.CapManageMatches))
	protected.PATCH("/matches/:id/status", matchHandler.UpdateStatus,
		handler.RequireCapability(domain.CapUpdateMatchState))

	protected.GET("/matches/:id/events", eventHandler.List)
	protected.POST("/matches/:id/events", eventHandler.Record,
		handler.RequireCapability(domain.CapRecordEvent))
	protected.GET("/matches/:id/events/quarantined", eventHandler.ListQuarantined,
		handler.RequireCapability(domain.CapViewQuarantine))

	protected.GET("/matches/:id/stats", matchHandler.Stats)
	protected.POST("/matches/:id/stats/recompute", matchHandler.RecomputeStats,
		handler.RequireCapability(domain.CapRecomputeStats))

	protected.GET("/notifications", notifHandler.List)
	protected.PATCH("/notifications/status", notifHandler.BatchUpdateStatus)
	protected.POST("/notifications/announcements", notifHandler.Announce,
		handler.RequireCapability(domain.CapSendAnnouncement))
	protected.GET("/notifications/:id/deliveries", notifHandler.Deliveries,
		handler.RequireCapability(domain.CapSendAnnouncement))

	protected.GET("/notification-preferences", prefsHandler.Get)
	protected.PATCH("/notification-preferences", prefsHandler.Update)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
