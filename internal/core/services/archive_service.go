package services

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"beeper-chat-exporter/internal/domain"
	"beeper-chat-exporter/internal/pkg/names"
	"beeper-chat-exporter/internal/ports"
)

// archiveTimeLayout - формат метки времени в имени заархивированного файла.
const archiveTimeLayout = "2006-01-02_15-04-05"

// ArchiveOption - функциональная опция для настройки ArchiveService.
type ArchiveOption func(*ArchiveService)

// WithArchiveLogger устанавливает логгер для сервиса.
func WithArchiveLogger(l *slog.Logger) ArchiveOption {
	return func(s *ArchiveService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithThumbnailThresholds устанавливает пороги длинной стороны изображения,
// сверх которых ставится задание на миниатюру.
func WithThumbnailThresholds(maxDimJPEG, maxDimPNG int) ArchiveOption {
	return func(s *ArchiveService) {
		if maxDimJPEG > 0 {
			s.maxDimJPEG = maxDimJPEG
		}
		if maxDimPNG > 0 {
			s.maxDimPNG = maxDimPNG
		}
	}
}

// ArchiveService копирует гидратированные вложения в постоянное хранилище
// экспорта и попутно ставит задания на миниатюры. Имена файлов
// детерминированы, повторный запуск ничего не перезаписывает.
type ArchiveService struct {
	thumbs     ports.ThumbnailQueue
	maxDimJPEG int
	maxDimPNG  int
	log        *slog.Logger
}

var _ ports.Archiver = (*ArchiveService)(nil)

// NewArchiveService создает новый ArchiveService с использованием
// функциональных опций.
func NewArchiveService(thumbs ports.ThumbnailQueue, opts ...ArchiveOption) *ArchiveService {
	s := &ArchiveService{
		thumbs:     thumbs,
		maxDimJPEG: 800,
		maxDimPNG:  1280,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ArchiveChat архивирует вложения всех сообщений чата и заполняет
// paths.Archived и paths.Thumbs. Неразрешенные ссылки остаются
// неразрешенными; фатальны только сбои файловой системы.
func (s *ArchiveService) ArchiveChat(chat *domain.Chat, paths *domain.ExportPaths) error {
	archived := 0
	for mi := range chat.Messages {
		msg := &chat.Messages[mi]
		for ai := range msg.Attachments {
			att := &msg.Attachments[ai]
			if err := s.archiveAttachment(msg, att, paths); err != nil {
				return fmt.Errorf("failed to archive attachment of message %s: %w", msg.ID, err)
			}
			if paths.Archived[att.SrcURL] != domain.Unresolved {
				archived++
			}
		}
	}
	s.log.Info("Archived chat media", "chat_id", chat.ID, "archived", archived)
	return nil
}

func (s *ArchiveService) archiveAttachment(msg *domain.Message, att *domain.Attachment, paths *domain.ExportPaths) error {
	src, ok := paths.Hydrated[att.SrcURL]
	if !ok || src == domain.Unresolved {
		paths.Archived[att.SrcURL] = domain.Unresolved
		return nil
	}

	dst, done := paths.Archived[att.SrcURL]
	if !done {
		// Одна ссылка может встречаться в нескольких вложениях,
		// но копируется ровно в один файл.
		dst = filepath.Join(paths.MediaDir, archiveFileName(msg, att, src))
		// Сбой файловой системы фатален: молча неполный архив хуже,
		// чем прерванный запуск.
		if err := copyIfAbsent(src, dst, msg); err != nil {
			return err
		}
		paths.Archived[att.SrcURL] = dst
	}

	// Источники нередко не объявляют тип вложения: уточняем его
	// по содержимому уже заархивированного файла.
	if att.Kind == domain.KindOther {
		att.Kind = sniffKind(dst)
	}

	if att.Kind == domain.KindImage {
		s.maybeEnqueueThumbnail(att, dst, paths)
	}
	return nil
}

// archiveFileName строит детерминированное имя файла в архиве:
// метка времени отправки, очищенное имя без расширения, само расширение.
func archiveFileName(msg *domain.Message, att *domain.Attachment, src string) string {
	base := att.FileName
	if base == "" {
		base = filepath.Base(src)
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return msg.Timestamp.UTC().Format(archiveTimeLayout) + "_" + names.Sanitize(stem) + ext
}

// copyIfAbsent копирует файл, если его еще нет, и ставит файлу время
// отправки сообщения. Существующий файл не трогается: архив append-only.
func copyIfAbsent(src, dst string, msg *domain.Message) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open hydrated file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst) // недокопированный файл сломал бы идемпотентность
		return fmt.Errorf("failed to copy attachment: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	if err := os.Chtimes(dst, msg.Timestamp, msg.Timestamp); err != nil {
		return fmt.Errorf("failed to set archive file time: %w", err)
	}
	return nil
}

// sniffKind определяет тип вложения по содержимому файла.
func sniffKind(path string) domain.AttachmentKind {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return domain.KindOther
	}
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		return domain.KindImage
	case strings.HasPrefix(mt.String(), "video/"):
		return domain.KindVideo
	case strings.HasPrefix(mt.String(), "audio/"):
		return domain.KindAudio
	default:
		return domain.KindOther
	}
}

// maybeEnqueueThumbnail ставит задание на миниатюру, когда изображение
// подходящего формата с известными размерами превышает порог. Решение
// принимается по объявленным размерам: очередь дренируется уже после
// рендеринга, и страницы должны знать о миниатюре заранее.
func (s *ArchiveService) maybeEnqueueThumbnail(att *domain.Attachment, dst string, paths *domain.ExportPaths) {
	if _, queued := paths.Thumbs[att.SrcURL]; queued {
		return
	}
	if !att.HasSize() {
		return
	}

	threshold := 0
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".jpg", ".jpeg":
		threshold = s.maxDimJPEG
	case ".png":
		threshold = s.maxDimPNG
	default:
		return
	}

	longer := att.Width
	if att.Height > longer {
		longer = att.Height
	}
	if longer <= threshold {
		return
	}

	thumb := filepath.Join(paths.ThumbDir, thumbFileName(filepath.Base(dst)))
	paths.Thumbs[att.SrcURL] = thumb
	s.thumbs.Enqueue(dst, thumb)
}

// thumbFileName заменяет расширение заархивированного файла на .jpg.
// Тот же детерминированный вывод делает встроенный скрипт галереи.
func thumbFileName(archivedBase string) string {
	return strings.TrimSuffix(archivedBase, filepath.Ext(archivedBase)) + ".jpg"
}
