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

	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/config"
	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/httpapi"
	apimw "github.com/hamed0406/siteprobe/internal/httpapi/middleware"
	"github.com/hamed0406/siteprobe/internal/logging"
	"github.com/hamed0406/siteprobe/internal/notify"
	"github.com/hamed0406/siteprobe/internal/repo"
	"github.com/hamed0406/siteprobe/internal/repo/memory"
	"github.com/hamed0406/siteprobe/internal/repo/sqlite"
	"github.com/hamed0406/siteprobe/internal/runner"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: os.Stderr})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// runs live in memory unless DATABASE_PATH is set explicitly
	var store repo.RunStore = memory.New()
	if _, ok := os.LookupEnv("DATABASE_PATH"); ok && cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			logger.Fatal("store_open_error", zap.String("path", cfg.DatabasePath), zap.Error(err))
		}
		defer st.Close()
		store = st
		logger.Info("store_sqlite", zap.String("path", cfg.DatabasePath))
	}

	run := runner.New(cfg, domain.VariantStatus, logger)
	api := httpapi.NewServer(logger, store, run, notify.FromConfig(cfg.SlackWebhookURL))
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_listen_error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("api_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	api.Close()
}
