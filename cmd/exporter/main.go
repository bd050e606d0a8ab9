package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"beeper-chat-exporter/internal/adapters/beeper"
	"beeper-chat-exporter/internal/adapters/exporter"
	"beeper-chat-exporter/internal/core/services"
	applog "beeper-chat-exporter/internal/log"
	"beeper-chat-exporter/internal/pkg/config"
	"beeper-chat-exporter/internal/pkg/term"
	"beeper-chat-exporter/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска экспорта.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера с маскированием токена доступа
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := applog.NewMaskedLogger(handler)
	slog.SetDefault(logger)

	// 3. Токен доступа: при отсутствии в окружении запрашиваем в терминале
	if cfg.Beeper.AccessToken == "" {
		token, err := term.NewTerminal().ReadAccessToken()
		if err != nil {
			return fmt.Errorf("access token is required: %w", err)
		}
		cfg.Beeper.AccessToken = token
	}

	// 4. Валидация конфигурации до любого сетевого вызова
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 5. Прерывание пользователем ловится на верхнем уровне
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 6. Сборка конвейера экспорта
	client := beeper.NewClient(cfg.Beeper.HostURL, cfg.Beeper.AccessToken, beeper.WithLogger(logger))
	thumbs := services.NewThumbnailService(
		services.WithThumbnailWorkers(cfg.Thumbnails.Workers),
		services.WithThumbnailQueueSize(cfg.Thumbnails.QueueSize),
		services.WithThumbnailMaxDims(cfg.Thumbnails.MaxDimJPEG, cfg.Thumbnails.MaxDimPNG),
		services.WithJPEGQuality(cfg.Thumbnails.JPEGQuality),
		services.WithThumbnailLogger(logger),
	)
	hydrator := services.NewHydrationService(client,
		services.WithHydrationPoolSize(cfg.Hydration.PoolSize),
		services.WithHydrationLogger(logger),
	)
	archiver := services.NewArchiveService(thumbs,
		services.WithThumbnailThresholds(cfg.Thumbnails.MaxDimJPEG, cfg.Thumbnails.MaxDimPNG),
		services.WithArchiveLogger(logger),
	)
	layout := exporter.NewLayout(cfg.Export.OutputDir)
	renderer := exporter.NewRenderer(cfg.Export.OutputDir, exporter.WithRendererLogger(logger))

	uc := usecase.NewExportChatsUseCase(cfg, client, hydrator, archiver, thumbs, layout, renderer)

	// 7. Запуск экспорта
	if err := uc.Export(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.New("manually aborted")
		}
		return err
	}
	return nil
}
