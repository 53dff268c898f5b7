package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"headless-cms/backend/internal/app"
	"headless-cms/backend/internal/bootstrap"
	appLogger "headless-cms/backend/internal/infra/logger"
	"headless-cms/backend/internal/infra/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := appLogger.Init(); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLogger.Sync()
	logger := appLogger.Component("server")

	metrics.MustRegister()

	resources, err := app.InitResources(ctx)
	if err != nil {
		logger.Fatalw("init resources failed", "error", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			logger.Warnw("resource cleanup error", "error", err)
		}
	}()

	application, err := bootstrap.BuildApplication(ctx, appLogger.S(), resources)
	if err != nil {
		logger.Fatalw("build application failed", "error", err)
	}
	defer application.Close()

	srv := &http.Server{
		Addr:              ":" + resources.Config.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("http server listening", "addr", srv.Addr, "mode", resources.Config.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}
}
