package exporter

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

// resDirName - подкаталог общих ресурсов в корне экспорта.
const resDirName = "res"

//go:embed assets/water.css assets/extra.css assets/gallery.js
var assetFS embed.FS

// assetNames - файлы, копируемые в каталог ресурсов экспорта.
var assetNames = []string{"water.css", "extra.css", "gallery.js"}

// WriteAssets копирует встроенные стили и скрипты в res/ внутри корня
// экспорта. Существующие файлы перезаписываются: ресурсы принадлежат
// экспортеру, а не пользователю.
func WriteAssets(outputRoot string) error {
	dir := filepath.Join(outputRoot, resDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create resource dir: %w", err)
	}
	for _, name := range assetNames {
		data, err := assetFS.ReadFile("assets/" + name)
		if err != nil {
			return fmt.Errorf("embedded asset %s is missing: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write asset %s: %w", name, err)
		}
	}
	return nil
}
