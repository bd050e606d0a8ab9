package services

import (
	"context"
	"errors"
	"sync"

	"beeper-chat-exporter/internal/domain"
)

// fakeSourceClient - тестовая реализация ports.SourceClient. DownloadAsset
// отвечает по таблице ссылка -> локальный путь, остальные методы в этих
// тестах не используются.
type fakeSourceClient struct {
	mu        sync.Mutex
	assets    map[string]string // ссылка -> локальный путь
	failRefs  map[string]bool   // ссылки, на которые отвечаем ошибкой
	downloads []string          // порядок фактических вызовов DownloadAsset
}

func newFakeSourceClient() *fakeSourceClient {
	return &fakeSourceClient{
		assets:   make(map[string]string),
		failRefs: make(map[string]bool),
	}
}

func (f *fakeSourceClient) CheckVersion(ctx context.Context) error { return nil }

func (f *fakeSourceClient) ListChats(ctx context.Context) ([]domain.Chat, error) {
	return nil, errors.New("not implemented in this fake")
}

func (f *fakeSourceClient) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	return nil, errors.New("not implemented in this fake")
}

func (f *fakeSourceClient) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	return nil, errors.New("not implemented in this fake")
}

func (f *fakeSourceClient) DownloadAsset(ctx context.Context, srcURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, srcURL)

	if f.failRefs[srcURL] {
		return "", errors.New("download-asset returned status 404")
	}
	path, ok := f.assets[srcURL]
	if !ok {
		return "", errors.New("unknown asset")
	}
	return path, nil
}

func (f *fakeSourceClient) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

// thumbJob - одно запомненное задание фейковой очереди миниатюр.
type thumbJob struct {
	src string
	dst string
}

// fakeThumbnailQueue - тестовая реализация ports.ThumbnailQueue,
// запоминающая поставленные задания.
type fakeThumbnailQueue struct {
	mu   sync.Mutex
	jobs []thumbJob
}

func (q *fakeThumbnailQueue) Enqueue(srcPath, dstPath string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, thumbJob{src: srcPath, dst: dstPath})
}

func (q *fakeThumbnailQueue) Drain() error { return nil }
