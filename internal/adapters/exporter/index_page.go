package exporter

import (
	"bufio"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"time"
)

// IndexEntry - одна строка корневого индекса.
type IndexEntry struct {
	Network   string
	AccountID string
	Title     string
	ChatFile  string // абсолютный путь страницы чата
}

// RunMeta - метаданные запуска экспорта, выводимые в индексе.
type RunMeta struct {
	Host      string
	StartedAt time.Time
	Duration  time.Duration
	RunID     string
}

// WriteIndex пишет корневой index.html: чаты сгруппированы по сети
// и аккаунту, внутри группы отсортированы по заголовку без учета регистра.
func (r *Renderer) WriteIndex(indexFile string, entries []IndexEntry, meta RunMeta) error {
	f, err := os.Create(indexFile)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	fmt.Fprintf(w, "    <meta charset=\"UTF-8\">\n")
	fmt.Fprintf(w, "    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(w, "    <title>Beeper Chats</title>\n")
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(indexFile, "water.css"))
	fmt.Fprintf(w, "    <link rel=\"stylesheet\" href=\"%s\">\n", r.resHref(indexFile, "extra.css"))
	fmt.Fprintf(w, "</head>\n<body>\n")
	fmt.Fprintf(w, "<h1>Beeper Chats</h1>\n")
	fmt.Fprintf(w, "<div class=\"run-meta\">Exported from <span style=\"font-family: monospace;\">%s</span> on %s at %s in %s<br>Run %s</div>\n",
		html.EscapeString(meta.Host),
		meta.StartedAt.Format("2006-01-02"),
		meta.StartedAt.Format("15:04:05"),
		meta.Duration.Round(time.Second),
		html.EscapeString(meta.RunID),
	)

	writeIndexGroups(w, r, indexFile, entries)
	fmt.Fprintf(w, "</body></html>\n")

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}

	r.log.Info("Wrote chats index", "file", indexFile, "chats", len(entries))
	return nil
}

func writeIndexGroups(w *bufio.Writer, r *Renderer, indexFile string, entries []IndexEntry) {
	// Группировка: сеть -> аккаунт -> чаты.
	networks := make(map[string]map[string][]IndexEntry)
	for _, e := range entries {
		accounts, ok := networks[e.Network]
		if !ok {
			accounts = make(map[string][]IndexEntry)
			networks[e.Network] = accounts
		}
		accounts[e.AccountID] = append(accounts[e.AccountID], e)
	}

	fmt.Fprintf(w, "<ul>\n")
	for _, network := range sortedKeysFold(networks) {
		fmt.Fprintf(w, "<li>%s\n<ul>\n", html.EscapeString(network))
		accounts := networks[network]
		for _, account := range sortedKeysFold(accounts) {
			fmt.Fprintf(w, "<li>%s\n<ul>\n", html.EscapeString(account))

			chats := accounts[account]
			sort.SliceStable(chats, func(i, j int) bool {
				return strings.ToLower(chats[i].Title) < strings.ToLower(chats[j].Title)
			})
			for _, e := range chats {
				fmt.Fprintf(w, "<li><a href=\"%s\">%s</a></li>\n",
					relHref(indexFile, e.ChatFile), html.EscapeString(e.Title))
			}
			fmt.Fprintf(w, "</ul>\n</li>\n")
		}
		fmt.Fprintf(w, "</ul>\n</li>\n")
	}
	fmt.Fprintf(w, "</ul>\n")
}

// sortedKeysFold возвращает ключи карты, отсортированные без учета регистра.
func sortedKeysFold[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}
