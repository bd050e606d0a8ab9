package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"beeper-chat-exporter/internal/domain"
	"beeper-chat-exporter/internal/ports"
)

// HydrationOption - функциональная опция для настройки HydrationService.
type HydrationOption func(*HydrationService)

// WithHydrationPoolSize устанавливает количество одновременных воркеров.
func WithHydrationPoolSize(n int) HydrationOption {
	return func(s *HydrationService) {
		if n > 0 {
			s.poolSize = n
		}
	}
}

// WithHydrationLogger устанавливает логгер для сервиса.
func WithHydrationLogger(l *slog.Logger) HydrationOption {
	return func(s *HydrationService) {
		if l != nil {
			s.log = l
		}
	}
}

// HydrationService разрешает удаленные ссылки вложений в локальные файлы
// через пул одновременных сетевых вызовов. Сервис не хранит состояние
// и безопасен для одновременного использования.
type HydrationService struct {
	client   ports.SourceClient
	poolSize int
	log      *slog.Logger
}

var _ ports.Hydrator = (*HydrationService)(nil)

// NewHydrationService создает новый HydrationService с использованием
// функциональных опций.
func NewHydrationService(client ports.SourceClient, opts ...HydrationOption) *HydrationService {
	s := &HydrationService{
		client:   client,
		poolSize: 8,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hydrateResult - вспомогательная структура для передачи результатов от воркеров.
type hydrateResult struct {
	ref  string
	path string
}

// HydrateAll разрешает все ссылки одновременно. Множество ключей результата
// всегда равно множеству входных ссылок: неудача по отдельной ссылке дает
// значение domain.Unresolved и не прерывает остальные. Ошибки наружу
// не выходят - незаполненная карта хуже, чем заглушка на странице.
func (s *HydrationService) HydrateAll(ctx context.Context, refs []string) map[string]string {
	resolved := make(map[string]string, len(refs))
	if len(refs) == 0 {
		return resolved
	}

	// Дедупликация: одна ссылка может встречаться в нескольких вложениях,
	// но скачивается ровно один раз.
	unique := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := resolved[ref]; ok {
			continue
		}
		resolved[ref] = domain.Unresolved
		unique = append(unique, ref)
	}

	s.log.InfoContext(ctx, "Starting attachment hydration",
		"refs", len(refs),
		"unique", len(unique),
		"pool_size", s.poolSize,
	)

	tasks := make(chan string, len(unique))
	results := make(chan hydrateResult, len(unique))
	var wg sync.WaitGroup

	workers := s.poolSize
	if workers > len(unique) {
		workers = len(unique)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, tasks, results)
	}

	for _, ref := range unique {
		tasks <- ref
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(results)
	}()

	failed := 0
	for res := range results {
		resolved[res.ref] = res.path
		if res.path == domain.Unresolved {
			failed++
		}
	}

	if failed > 0 {
		s.log.WarnContext(ctx, "Hydration finished with unresolved attachments", "unresolved", failed, "total", len(unique))
	} else {
		s.log.InfoContext(ctx, "Hydration finished successfully", "total", len(unique))
	}
	return resolved
}

func (s *HydrationService) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan string, results chan<- hydrateResult) {
	defer wg.Done()
	for ref := range tasks {
		if ctx.Err() != nil {
			// Контекст отменен: оставшиеся ссылки помечаем неразрешенными.
			results <- hydrateResult{ref: ref, path: domain.Unresolved}
			continue
		}

		path, err := s.hydrate(ctx, ref)
		if err != nil {
			s.log.WarnContext(ctx, "Failed to hydrate attachment", "ref", ref, "error", err)
			results <- hydrateResult{ref: ref, path: domain.Unresolved}
			continue
		}
		results <- hydrateResult{ref: ref, path: path}
	}
}

// hydrate разрешает одну ссылку. Ссылки file:// уже указывают в локальный
// кэш и проходят без сетевого вызова, остальные отдаются сервису на
// скачивание. В обоих случаях итоговый файл обязан существовать.
func (s *HydrationService) hydrate(ctx context.Context, ref string) (string, error) {
	var path string
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil || u.Path == "" {
			return "", fmt.Errorf("invalid file url %q", ref)
		}
		path = u.Path
	} else {
		p, err := s.client.DownloadAsset(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("download-asset failed: %w", err)
		}
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("hydrated file is missing: %w", err)
	}
	return path, nil
}
