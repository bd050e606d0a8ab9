package ports

import (
	"context"

	"beeper-chat-exporter/internal/domain"
)

// SourceClient определяет контракт клиента Beeper Desktop API.
type SourceClient interface {
	// CheckVersion проверяет доступность сервиса и минимальную версию.
	CheckVersion(ctx context.Context) error
	// ListChats возвращает сводки всех чатов, собирая страницы выдачи.
	// Списки участников в сводках могут быть усечены.
	ListChats(ctx context.Context) ([]domain.Chat, error)
	// GetChat возвращает полные сведения о чате, включая участников.
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	// ListMessages возвращает все сообщения чата, собирая страницы выдачи
	// в порядке получения. Дедупликация между страницами - забота модели.
	ListMessages(ctx context.Context, chatID string) ([]domain.Message, error)
	// DownloadAsset просит сервис скачать вложение в локальный кэш
	// и возвращает путь к файлу.
	DownloadAsset(ctx context.Context, srcURL string) (string, error)
}

// Hydrator определяет интерфейс разрешения удаленных ссылок вложений
// в локальные файлы.
type Hydrator interface {
	// HydrateAll разрешает все ссылки одновременно. Множество ключей
	// результата всегда равно множеству входных ссылок; неудача по одной
	// ссылке дает значение domain.Unresolved и не влияет на остальные.
	HydrateAll(ctx context.Context, refs []string) map[string]string
}

// Archiver определяет интерфейс архивации гидратированных вложений
// в постоянное хранилище экспорта.
type Archiver interface {
	// ArchiveChat копирует все разрешенные вложения чата и заполняет
	// paths.Archived. Повторный запуск ничего не перезаписывает.
	ArchiveChat(chat *domain.Chat, paths *domain.ExportPaths) error
}

// ThumbnailQueue определяет интерфейс фоновой очереди генерации миниатюр.
type ThumbnailQueue interface {
	// Enqueue ставит задание в очередь, не дожидаясь его выполнения.
	Enqueue(srcPath, dstPath string)
	// Drain блокируется до завершения всех заданий и возвращает первую
	// ошибку воркера, если она была.
	Drain() error
}
