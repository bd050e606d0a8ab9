// Package usecase содержит оркестратор экспорта: перебор чатов, конвейер
// гидратации и архивации, сборка страниц и индекса.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"beeper-chat-exporter/internal/adapters/exporter"
	"beeper-chat-exporter/internal/domain"
	"beeper-chat-exporter/internal/pkg/config"
	"beeper-chat-exporter/internal/ports"
)

// ExportChatsUseCase инкапсулирует полный цикл экспорта чатов.
type ExportChatsUseCase struct {
	cfg      *config.Config
	client   ports.SourceClient
	hydrator ports.Hydrator
	archiver ports.Archiver
	thumbs   ports.ThumbnailQueue
	layout   *exporter.Layout
	renderer *exporter.Renderer
	log      *slog.Logger
}

// NewExportChatsUseCase создает новый экземпляр ExportChatsUseCase.
func NewExportChatsUseCase(
	cfg *config.Config,
	client ports.SourceClient,
	hydrator ports.Hydrator,
	archiver ports.Archiver,
	thumbs ports.ThumbnailQueue,
	layout *exporter.Layout,
	renderer *exporter.Renderer,
) *ExportChatsUseCase {
	return &ExportChatsUseCase{
		cfg:      cfg,
		client:   client,
		hydrator: hydrator,
		archiver: archiver,
		thumbs:   thumbs,
		layout:   layout,
		renderer: renderer,
		log:      slog.Default(),
	}
}

// Export выполняет полный экспорт: проверка версии, отбор чатов, конвейер
// по каждому чату, дренаж очереди миниатюр и запись индекса.
func (uc *ExportChatsUseCase) Export(ctx context.Context) error {
	startedAt := time.Now()
	runID := uuid.NewString()
	uc.log.InfoContext(ctx, "Starting export run", "run_id", runID, "output_dir", uc.layout.Root())

	if err := uc.client.CheckVersion(ctx); err != nil {
		return fmt.Errorf("beeper version check failed: %w", err)
	}

	chats, err := uc.client.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("failed to enumerate chats: %w", err)
	}
	selected := selectChats(chats, uc.cfg.Export.Filters)
	uc.log.InfoContext(ctx, "Selected chats for export", "total", len(chats), "selected", len(selected))

	if err := exporter.WriteAssets(uc.layout.Root()); err != nil {
		return fmt.Errorf("failed to write shared assets: %w", err)
	}

	entries := make([]exporter.IndexEntry, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for i := range selected {
		chat := &selected[i]
		if _, dup := seen[chat.ID]; dup {
			// Дубликат ID чата - нарушение инварианта источника, молча
			// продолжать нельзя.
			return fmt.Errorf("duplicate chat id %s in chat list", chat.ID)
		}
		seen[chat.ID] = struct{}{}

		entry, err := uc.exportChat(ctx, chat.ID)
		if err != nil {
			return fmt.Errorf("failed to export chat %s: %w", chat.ID, err)
		}
		entries = append(entries, *entry)
	}

	// Единственный блокирующий дренаж очереди: к моменту записи индекса
	// все миниатюры существуют.
	if err := uc.thumbs.Drain(); err != nil {
		return fmt.Errorf("thumbnail generation failed: %w", err)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	meta := exporter.RunMeta{
		Host:      host,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		RunID:     runID,
	}
	if err := uc.renderer.WriteIndex(uc.layout.IndexFile(), entries, meta); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	uc.log.InfoContext(ctx, "Export run finished", "run_id", runID, "chats", len(entries), "duration", meta.Duration.Round(time.Millisecond))
	return nil
}

// exportChat проводит один чат через весь конвейер.
func (uc *ExportChatsUseCase) exportChat(ctx context.Context, chatID string) (*exporter.IndexEntry, error) {
	chat, err := uc.client.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat detail: %w", err)
	}

	msgs, err := uc.client.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	for i := range msgs {
		if msgs[i].ChatID != "" && msgs[i].ChatID != chat.ID {
			// Сообщение чужого чата в выдаче - неразрешимое противоречие
			// данных: лучше прервать запуск, чем собрать неполный экспорт.
			return nil, fmt.Errorf("message %s references unknown chat %s", msgs[i].ID, msgs[i].ChatID)
		}
	}
	chat.SetMessages(msgs)
	uc.log.InfoContext(ctx, "Exporting chat", "chat_id", chat.ID, "title", chat.Title(), "messages", len(chat.Messages))

	paths := uc.layout.PlanChat(chat)
	paths.Hydrated = uc.hydrator.HydrateAll(ctx, attachmentRefs(chat))

	if err := uc.archiver.ArchiveChat(chat, paths); err != nil {
		return nil, err
	}
	if err := uc.renderer.RenderChatPage(chat, paths); err != nil {
		return nil, err
	}
	if err := uc.renderer.RenderGalleryPage(chat, paths); err != nil {
		return nil, err
	}
	if err := exporter.StampChatPage(paths, chat.LastMessageTime()); err != nil {
		return nil, err
	}

	return &exporter.IndexEntry{
		Network:   chat.Network,
		AccountID: chat.AccountID,
		Title:     chat.Title(),
		ChatFile:  paths.ChatFile,
	}, nil
}

// attachmentRefs собирает удаленные ссылки всех вложений чата.
func attachmentRefs(chat *domain.Chat) []string {
	var refs []string
	for mi := range chat.Messages {
		for _, att := range chat.Messages[mi].Attachments {
			refs = append(refs, att.SrcURL)
		}
	}
	return refs
}

// selectChats применяет упорядоченные операции включения и исключения.
// Стартовое множество пусто, если первая операция include, и полно, если
// exclude; поздние операции могут вернуть или снова исключить чаты,
// затронутые ранними. Порядок чатов источника сохраняется.
func selectChats(chats []domain.Chat, ops []config.FilterOp) []domain.Chat {
	if len(ops) == 0 {
		return chats
	}

	selected := make(map[string]bool, len(chats))
	if ops[0].Action == "exclude" {
		for i := range chats {
			selected[chats[i].ID] = true
		}
	}

	for _, op := range ops {
		accounts := make(map[string]struct{}, len(op.AccountIDs))
		for _, id := range op.AccountIDs {
			accounts[id] = struct{}{}
		}
		ids := make(map[string]struct{}, len(op.ChatIDs))
		for _, id := range op.ChatIDs {
			ids[id] = struct{}{}
		}

		for i := range chats {
			chat := &chats[i]
			_, byAccount := accounts[chat.AccountID]
			_, byID := ids[chat.ID]
			if !byAccount && !byID {
				continue
			}
			selected[chat.ID] = op.Action == "include"
		}
	}

	kept := make([]domain.Chat, 0, len(chats))
	for i := range chats {
		if selected[chats[i].ID] {
			kept = append(kept, chats[i])
		}
	}
	return kept
}
