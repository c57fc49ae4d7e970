package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"market_chat/internal/handler"
	"market_chat/internal/middleware"
	"market_chat/internal/realtime"
	"market_chat/internal/repository"
	"market_chat/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dbPool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if cfg.Database.MigrateOnStart {
		if err := repository.RunMigrations(ctx, dbPool, appLogger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	rdb, err := connectRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	repos := repository.NewRepositories(dbPool, rdb, appLogger)
	services := service.NewServices(repos, cfg, appLogger)
	hub := realtime.NewHub(realtime.NewRegistry(), services.Chat, cfg.WebSocket.OpTimeout, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	var rateLimitMiddleware *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimitMiddleware = middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)
	}

	handlers := handler.NewHandlers(services, hub, dbPool, rdb, cfg, appLogger)
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// WriteTimeout не задаём: он обрывал бы долгоживущие websocket-соединения
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	// Shutdown не ждёт hijacked-соединения: websocket-сессии закрываем сами
	// и ждём, пока сохранятся кадры в обработке.
	if err := hub.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("websocket shutdown: %w", err)
	}

	appLogger.Info("Server exited")
	return nil
}
