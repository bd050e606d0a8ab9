package exporter

import (
	"bufio"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"beeper-chat-exporter/internal/domain"
)

// pageTimeLayout - формат видимых и всплывающих меток времени сообщений.
const pageTimeLayout = "2006-01-02 15:04:05 MST"

// RendererOption - функциональная опция для настройки Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger устанавливает логгер для рендерера.
func WithRendererLogger(l *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// Renderer пишет HTML-страницы экспорта. Все ссылки между файлами
// относительны каталогу ссылающегося файла и используют прямые слэши.
type Renderer struct {
	outputRoot string
	log        *slog.Logger
}

// NewRenderer создает Renderer с корнем экспорта.
func NewRenderer(outputRoot string, opts ...RendererOption) *Renderer {
	r := &Renderer{
		outputRoot: outputRoot,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resHref возвращает относительную ссылку на файл общих ресурсов.
func (r *Renderer) resHref(fromFile, name string) string {
	return relHref(fromFile, filepath.Join(r.outputRoot, resDirName, name))
}

// RenderChatPage пишет страницу чата. Файл создается заново при каждом
// запуске: идемпотентность экспорта держится на архиве медиа, а не на
// пропуске страниц.
func (r *Renderer) RenderChatPage(chat *domain.Chat, paths *domain.ExportPaths) error {
	if err := os.MkdirAll(filepath.Dir(paths.ChatFile), 0o755); err != nil {
		return fmt.Errorf("failed to create chat page dir: %w", err)
	}
	f, err := os.Create(paths.ChatFile)
	if err != nil {
		return fmt.Errorf("failed to create chat page: %w", err)
	}
	w := bufio.NewWriter(f)

	r.writeChatHead(w, chat, paths)
	r.writeChatHeader(w, chat, paths)

	fmt.Fprintf(w, "<main>\n")
	knownIDs := make(map[string]struct{}, len(chat.Messages))
	for i := range chat.Messages {
		knownIDs[chat.Messages[i].ID] = struct{}{}
	}
	for i := range chat.Messages {
		if err := r.writeMessage(w, chat, &chat.Messages[i], paths, knownIDs); err != nil {
			f.Close()
			return err
		}
	}
	fmt.Fprintf(w, "</main>\n</body></html>\n")

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write chat page: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chat page: %w", err)
	}

	r.log.Debug("Rendered chat page", "chat_id", chat.ID, "file", paths.ChatFile)
	return nil
}

func (r *Renderer) writeChatHead(w *bufio.Writer, chat *domain.Chat, paths *domain.ExportPaths) {
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	fmt.Fprintf(w, "    <meta charset=\"UTF-8\">\n")
	fmt.Fprintf(w, "    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(w, "    <title>Chat: %s</title>\n", html.EscapeString(chat.Title()))
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(paths.ChatFile, "water.css"))
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(paths.ChatFile, "extra.css"))
	fmt.Fprintf(w, "</head>\n<body>\n")
}

func (r *Renderer) writeChatHeader(w *bufio.Writer, chat *domain.Chat, paths *domain.ExportPaths) {
	fmt.Fprintf(w, "<header>\n<section>\n")
	fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(chat.Title()))
	fmt.Fprintf(w, "<details>\n<summary>Chat details</summary>\n")
	fmt.Fprintf(w, "<div><span class=\"chat-details-label\">Account ID: </span><span>%s</span></div>\n", html.EscapeString(chat.AccountID))
	fmt.Fprintf(w, "<div><span class=\"chat-details-label\">Chat ID: </span><span>%s</span></div>\n", html.EscapeString(chat.ID))
	fmt.Fprintf(w, "<div><span class=\"chat-details-label\">Messages: </span><span>%d</span></div>\n", len(chat.Messages))
	fmt.Fprintf(w, "<div><span class=\"chat-details-label\">Participants:</span></div>\n")

	participants := make([]string, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		participants = append(participants, p.DisplayName())
	}
	sort.Slice(participants, func(i, j int) bool {
		return strings.ToLower(participants[i]) < strings.ToLower(participants[j])
	})
	for _, name := range participants {
		fmt.Fprintf(w, "<div>%s</div>\n", html.EscapeString(name))
	}
	fmt.Fprintf(w, "</details>\n")
	fmt.Fprintf(w, "<div><a href=\"%s\">Media gallery</a></div>\n", relHref(paths.ChatFile, paths.GalleryFile))
	fmt.Fprintf(w, "</section>\n</header>\n")
}

func (r *Renderer) writeMessage(w *bufio.Writer, chat *domain.Chat, msg *domain.Message, paths *domain.ExportPaths, knownIDs map[string]struct{}) error {
	secClass := "msg-them"
	if msg.IsSelf {
		secClass = "msg-self"
	}

	tsUTC := msg.Timestamp.UTC().Format(pageTimeLayout)
	tsLocal := msg.Timestamp.Local().Format(pageTimeLayout)

	fmt.Fprintf(w, "<section class=\"msg %s\">", secClass)
	fmt.Fprintf(w, "<div id=\"%s\" class=\"msg-header\">", html.EscapeString(msg.ID))
	fmt.Fprintf(w, "<span class=\"msg-contact-name\">%s</span>", html.EscapeString(msg.SenderName))
	fmt.Fprintf(w, "<span class=\"msg-datetime\" title=\"%s\">%s</span>", tsUTC, tsLocal)
	fmt.Fprintf(w, "<a class=\"permalink\" title=\"Message %s\" href=\"#%s\">&#x1F517;&#xFE0E;</a></div>\n",
		html.EscapeString(msg.ID), html.EscapeString(msg.ID))

	if msg.LinkedMessageID != "" {
		if _, known := knownIDs[msg.LinkedMessageID]; known {
			fmt.Fprintf(w, "<a class=\"reply-link\" href=\"#%s\">&#x21A9; in reply to</a>\n", html.EscapeString(msg.LinkedMessageID))
		}
	}

	if msg.Text != nil {
		fmt.Fprintf(w, "%s\n", escapeText(*msg.Text))
	}

	for _, att := range msg.Attachments {
		if err := r.writeAttachment(w, &att, paths); err != nil {
			return err
		}
	}

	r.writeReactions(w, chat, msg)
	fmt.Fprintf(w, "</section>\n")
	return nil
}

func (r *Renderer) writeAttachment(w *bufio.Writer, att *domain.Attachment, paths *domain.ExportPaths) error {
	archived := paths.Archived[att.SrcURL]
	if archived == "" || archived == domain.Unresolved {
		fmt.Fprintf(w, "<div class=\"attachment-missing\">&#x26A0; attachment unavailable: %s</div>\n",
			html.EscapeString(att.FileName))
		return nil
	}

	attURL := relHref(paths.ChatFile, archived)
	dimAttr := ""
	if att.HasSize() {
		dimAttr = fmt.Sprintf(" width=\"%d\" height=\"%d\"", att.Width, att.Height)
	}

	switch att.Kind {
	case domain.KindImage:
		imgURL := attURL
		if thumb, ok := paths.Thumbs[att.SrcURL]; ok {
			imgURL = relHref(paths.ChatFile, thumb)
			// Миниатюра уменьшена, объявленные размеры оригинала к ней
			// не относятся.
			dimAttr = ""
		}
		fmt.Fprintf(w, "<a href=\"%s\"><img loading=\"lazy\"%s src=\"%s\"/></a>\n", attURL, dimAttr, imgURL)
	case domain.KindVideo:
		fmt.Fprintf(w, "<video controls loop playsinline%s src=\"%s\"></video>\n", dimAttr, attURL)
	case domain.KindAudio:
		fmt.Fprintf(w, "<audio controls src=\"%s\"></audio>\n", attURL)
	case domain.KindOther:
		fmt.Fprintf(w, "<div><a href=\"%s\" download>%s</a></div>\n", attURL, html.EscapeString(filepath.Base(archived)))
	default:
		// Множество типов закрыто: неизвестное значение - дефект разбора,
		// а не повод молча пропустить вложение.
		return fmt.Errorf("unknown attachment kind %q", att.Kind)
	}
	return nil
}

// writeReactions выводит реакции, сгруппированные по ключу. Подсказка
// перечисляет имена отреагировавших в отсортированном порядке.
func (r *Renderer) writeReactions(w *bufio.Writer, chat *domain.Chat, msg *domain.Message) {
	if len(msg.Reactions) == 0 {
		return
	}

	byKey := make(map[string][]string)
	for _, re := range msg.Reactions {
		name := re.ParticipantID
		if p := chat.Participant(re.ParticipantID); p != nil {
			name = p.DisplayName()
		}
		byKey[re.Key] = append(byKey[re.Key], name)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "<div class=\"reactions\">")
	for _, k := range keys {
		reactors := byKey[k]
		sort.Strings(reactors)
		fmt.Fprintf(w, "<span class=\"reaction\" title=\"%s\">%s&nbsp;%d</span>",
			html.EscapeString(strings.Join(reactors, ", ")), html.EscapeString(k), len(reactors))
	}
	fmt.Fprintf(w, "</div>\n")
}

// StampChatPage ставит странице чата время последнего сообщения.
func StampChatPage(paths *domain.ExportPaths, lastMessage time.Time) error {
	if lastMessage.IsZero() {
		return nil
	}
	if err := os.Chtimes(paths.ChatFile, lastMessage, lastMessage); err != nil {
		return fmt.Errorf("failed to stamp chat page time: %w", err)
	}
	return nil
}
