package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/formicag/ACEReportHub/internal/api"
	"github.com/formicag/ACEReportHub/internal/app"
	"github.com/formicag/ACEReportHub/internal/auth"
	"github.com/formicag/ACEReportHub/internal/config"
	"github.com/formicag/ACEReportHub/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("ACE_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	adminSecret, err := auth.ResolveSecret("ADMIN_SECRET", cfg.Auth.AdminSecret)
	if err != nil {
		log.Error("admin secret", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(a.Service, api.Config{
		AdminSecret: adminSecret,
		ExcludedIDs: cfg.Report.ExcludedIDs,
		Summarizer:  a.Summarizer,
		Metrics:     a.Metrics.Handler(),
		Logger:      log,
	})

	errCh := make(chan error, 1)
	go func() {
		port := strconv.Itoa(cfg.Server.Port)
		log.Info("server starting", "port", port)
		errCh <- srv.Start(port)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}
}
