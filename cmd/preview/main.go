// Команда preview поднимает локальный HTTP-сервер над готовым экспортом,
// чтобы страницы можно было смотреть не только через file://.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"beeper-chat-exporter/internal/pkg/config"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("preview server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var addr, dir string
	flag.StringVar(&addr, "addr", "localhost:8099", "Listen address")
	flag.StringVar(&dir, "dir", "", "Export directory (defaults to export.output_dir from config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if dir == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dir = cfg.Export.OutputDir
	}
	if dir == "" {
		return fmt.Errorf("export directory is not set: pass -dir or configure export.output_dir")
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("export directory %s does not exist, run the exporter first", dir)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)
	chiRouter.Handle("/*", http.FileServer(http.Dir(dir)))

	srv := &http.Server{
		Addr:    addr,
		Handler: chiRouter,
	}

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Serving export", "dir", dir, "addr", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	<-serverDone
	return nil
}
