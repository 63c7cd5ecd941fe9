package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lambear/internal/config"
	"lambear/internal/inference"
	"lambear/internal/logging"
	"lambear/internal/server"
)

func main() {
	cfg := config.LoadGateway()
	log := logging.New(cfg.LogLevel)

	adapter := inference.NewModelAdapter(cfg.InferenceURL, &http.Client{Timeout: cfg.RequestTimeout})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adapter.CheckHealth(ctx); err != nil {
		log.Warn("inference service not reachable yet", "url", cfg.InferenceURL, "err", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(adapter, cfg.ModelDir, cfg.RequestTimeout, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("classification gateway listening", "addr", srv.Addr, "model_dir", cfg.ModelDir, "inference", cfg.InferenceURL)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}
