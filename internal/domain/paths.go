package domain

// Unresolved - значение-маркер в картах гидратации и архивации: ссылка
// известна, но разрешить или сохранить ее не удалось. Экспорт при этом
// продолжается, а на странице выводится заглушка.
const Unresolved = "<unresolved>"

// ExportPaths хранит расположение выходных файлов одного чата и две карты,
// ключом которых служит удаленная ссылка вложения (не само вложение: одна
// ссылка может встречаться в нескольких вложениях, но архивируется ровно
// в один файл). Структура живет в пределах экспорта одного чата.
type ExportPaths struct {
	ChatFile    string // абсолютный путь страницы чата
	GalleryFile string // абсолютный путь страницы галереи
	MediaDir    string // каталог архива медиа этого чата
	ThumbDir    string // каталог миниатюр этого чата

	// Hydrated: ссылка -> локальный путь источника или Unresolved.
	Hydrated map[string]string
	// Archived: ссылка -> путь заархивированного файла или Unresolved.
	Archived map[string]string
	// Thumbs: ссылка -> путь миниатюры, которая появится после дренажа
	// очереди. Заполняется только для изображений, превысивших порог.
	Thumbs map[string]string
}

// NewExportPaths создает ExportPaths с инициализированными картами.
func NewExportPaths(chatFile, galleryFile, mediaDir, thumbDir string) *ExportPaths {
	return &ExportPaths{
		ChatFile:    chatFile,
		GalleryFile: galleryFile,
		MediaDir:    mediaDir,
		ThumbDir:    thumbDir,
		Hydrated:    make(map[string]string),
		Archived:    make(map[string]string),
		Thumbs:      make(map[string]string),
	}
}
