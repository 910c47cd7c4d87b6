package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	adapterlogger "posadmin/internal/adapters/logger"
	"posadmin/internal/config"
	"posadmin/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		adapterlogger.New("posadmin", adapterlogger.DefaultLevel).Error(ctx, "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New("posadmin", cfg.LogLevel)
	xray.Configure(xray.Config{LogLevel: "error"})

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	go func() {
		logger.Info(ctx, "starting http server", "port", cfg.Port, "storage", cfg.StorageBackend, "cache", cfg.CacheBackend, "auth_mode", cfg.AuthMode)
		if err := srv.Echo.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Echo.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "graceful shutdown failed", "error", err)
	}
	logger.Info(shutdownCtx, "http server stopped")
}
