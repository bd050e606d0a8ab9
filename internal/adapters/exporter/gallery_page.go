package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"beeper-chat-exporter/internal/domain"
)

// galleryItem - одна запись данных галереи: имя заархивированного файла,
// ID сообщения-владельца и флаг наличия миниатюры. Схема - контракт
// со встроенным скриптом gallery.js.
type galleryItem struct {
	fileName  string
	messageID string
	hasThumb  int
}

// RenderGalleryPage пишет страницу галереи чата: статическую оболочку
// и буквальный JS-массив данных для клиентского скрипта фильтрации.
func (r *Renderer) RenderGalleryPage(chat *domain.Chat, paths *domain.ExportPaths) error {
	items := collectGalleryItems(chat, paths)

	payload, err := marshalGalleryItems(items)
	if err != nil {
		return fmt.Errorf("failed to encode gallery data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(paths.GalleryFile), 0o755); err != nil {
		return fmt.Errorf("failed to create gallery dir: %w", err)
	}
	f, err := os.Create(paths.GalleryFile)
	if err != nil {
		return fmt.Errorf("failed to create gallery page: %w", err)
	}
	w := bufio.NewWriter(f)

	title := chat.Title()
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	fmt.Fprintf(w, "    <meta charset=\"UTF-8\">\n")
	fmt.Fprintf(w, "    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(w, "    <title>Gallery: %s</title>\n", html.EscapeString(title))
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(paths.GalleryFile, "water.css"))
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(paths.GalleryFile, "extra.css"))
	fmt.Fprintf(w, "    <script>\n")
	fmt.Fprintf(w, "    const mediaDir = \"%s\";\n", relHref(paths.GalleryFile, paths.MediaDir))
	fmt.Fprintf(w, "    const thumbDir = \"%s\";\n", relHref(paths.GalleryFile, paths.ThumbDir))
	fmt.Fprintf(w, "    const chatPage = \"%s\";\n", relHref(paths.GalleryFile, paths.ChatFile))
	fmt.Fprintf(w, "    const galleryItems = %s;\n", payload)
	fmt.Fprintf(w, "    </script>\n")
	fmt.Fprintf(w, "    <script src=\"%s\" defer></script>\n", r.resHref(paths.GalleryFile, "gallery.js"))
	fmt.Fprintf(w, "</head>\n<body>\n")
	fmt.Fprintf(w, "<h1>Gallery: %s</h1>\n", html.EscapeString(title))
	fmt.Fprintf(w, "<div><a href=\"%s\">Back to chat</a></div>\n", relHref(paths.GalleryFile, paths.ChatFile))
	fmt.Fprintf(w, "<div class=\"gallery-controls\"><input id=\"gallery-filter\" type=\"search\" placeholder=\"Filter by file name\"></div>\n")
	fmt.Fprintf(w, "<div id=\"gallery-grid\" class=\"gallery-grid\"></div>\n")
	fmt.Fprintf(w, "</body></html>\n")

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write gallery page: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close gallery page: %w", err)
	}

	r.log.Debug("Rendered gallery page", "chat_id", chat.ID, "items", len(items))
	return nil
}

// collectGalleryItems собирает записи галереи: по одной на каждую успешно
// заархивированную ссылку изображения, при повторении ссылки выживает
// первое вхождение.
func collectGalleryItems(chat *domain.Chat, paths *domain.ExportPaths) []galleryItem {
	var items []galleryItem
	seen := make(map[string]struct{})
	for mi := range chat.Messages {
		msg := &chat.Messages[mi]
		for _, att := range msg.Attachments {
			if att.Kind != domain.KindImage {
				continue
			}
			archived := paths.Archived[att.SrcURL]
			if archived == "" || archived == domain.Unresolved {
				continue
			}
			if _, dup := seen[att.SrcURL]; dup {
				continue
			}
			seen[att.SrcURL] = struct{}{}

			hasThumb := 0
			if _, ok := paths.Thumbs[att.SrcURL]; ok {
				hasThumb = 1
			}
			items = append(items, galleryItem{
				fileName:  filepath.Base(archived),
				messageID: msg.ID,
				hasThumb:  hasThumb,
			})
		}
	}
	return items
}

// marshalGalleryItems кодирует записи в буквальный JS-массив троек.
func marshalGalleryItems(items []galleryItem) (string, error) {
	raw := make([][]any, 0, len(items))
	for _, it := range items {
		raw = append(raw, []any{it.fileName, it.messageID, it.hasThumb})
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
