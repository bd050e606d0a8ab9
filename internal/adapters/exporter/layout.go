// Package exporter собирает статический сайт экспорта: страницы чатов,
// галереи, корневой индекс и общие ресурсы.
package exporter

import (
	"path/filepath"
	"strings"

	"beeper-chat-exporter/internal/domain"
	"beeper-chat-exporter/internal/pkg/names"
)

// Layout планирует расположение выходных файлов одного запуска экспорта.
// Он же следит, чтобы имена файлов, производные от заголовков, не
// сталкивались в пределах одной корзины сети.
type Layout struct {
	outputRoot string
	taken      map[string]string // "<корзина>/<имя>" -> ID занявшего чата
}

// NewLayout создает Layout с корнем экспорта.
func NewLayout(outputRoot string) *Layout {
	return &Layout{
		outputRoot: outputRoot,
		taken:      make(map[string]string),
	}
}

// PlanChat выделяет чату пути страниц и каталогов медиа. При столкновении
// заголовков в корзине в имя файла добавляется ID чата.
func (l *Layout) PlanChat(chat *domain.Chat) *domain.ExportPaths {
	accountDir := names.Sanitize(strings.ToLower(chat.Network)) + "_" + names.Sanitize(strings.ToLower(chat.AccountID))

	base := names.Sanitize(chat.Title())
	key := accountDir + "/" + base
	if owner, clash := l.taken[key]; clash && owner != chat.ID {
		base = names.Sanitize(chat.Title() + "_" + chat.ID)
		key = accountDir + "/" + base
	}
	l.taken[key] = chat.ID

	return domain.NewExportPaths(
		filepath.Join(l.outputRoot, "chat", accountDir, base+".html"),
		filepath.Join(l.outputRoot, "gallery", accountDir, base+".html"),
		filepath.Join(l.outputRoot, "media", "full", accountDir, base),
		filepath.Join(l.outputRoot, "media", "thumb", accountDir, base),
	)
}

// IndexFile возвращает путь корневого индекса.
func (l *Layout) IndexFile() string {
	return filepath.Join(l.outputRoot, "index.html")
}

// Root возвращает корень экспорта.
func (l *Layout) Root() string {
	return l.outputRoot
}
