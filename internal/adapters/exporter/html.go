package exporter

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
)

// urlRegexp находит http/https ссылки в уже экранированном тексте.
// Хвостовая пунктуация предложения не входит в ссылку.
var urlRegexp = regexp.MustCompile(`https?://[^\s<>"]+[^\s<>".,;:!?)]`)

// escapeText экранирует пользовательский текст для HTML, переводит
// переносы строк в <br> и затем превращает голые ссылки в <a>.
// Порядок фиксирован: автоссылки ищутся по экранированному тексту,
// иначе вредоносный текст мог бы вставить собственную разметку.
func escapeText(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	return urlRegexp.ReplaceAllStringFunc(escaped, func(u string) string {
		return `<a href="` + u + `">` + u + `</a>`
	})
}

// relHref возвращает ссылку на target относительно каталога файла from,
// всегда с прямыми слэшами независимо от разделителя платформы.
func relHref(fromFile, target string) string {
	rel, err := filepath.Rel(filepath.Dir(fromFile), target)
	if err != nil {
		// Цели вне дерева экспорта не бывает; абсолютный путь -
		// последний рубеж, а не рабочий режим.
		rel = target
	}
	return filepath.ToSlash(rel)
}
