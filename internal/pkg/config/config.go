// Package config предоставляет управление конфигурацией экспортера
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Beeper содержит параметры подключения к Beeper Desktop API
type Beeper struct {
	HostURL     string `json:"host_url" yaml:"host_url"`
	AccessToken string `json:"access_token" yaml:"access_token"`
}

// FilterOp описывает одну операцию фильтрации чатов. Операции применяются
// по порядку, более поздние могут вернуть или снова исключить чаты,
// затронутые более ранними.
type FilterOp struct {
	Action     string   `json:"action" yaml:"action"` // include или exclude
	AccountIDs []string `json:"account_ids" yaml:"account_ids"`
	ChatIDs    []string `json:"chat_ids" yaml:"chat_ids"`
}

// Export содержит параметры выходного каталога и отбора чатов
type Export struct {
	OutputDir string     `json:"output_dir" yaml:"output_dir"`
	Filters   []FilterOp `json:"filters" yaml:"filters"`
}

// Hydration содержит конфигурацию пула гидратации вложений
type Hydration struct {
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// Thumbnails содержит конфигурацию генерации миниатюр
type Thumbnails struct {
	Workers     int `json:"workers" yaml:"workers"`
	QueueSize   int `json:"queue_size" yaml:"queue_size"`
	MaxDimJPEG  int `json:"max_dim_jpeg" yaml:"max_dim_jpeg"`
	MaxDimPNG   int `json:"max_dim_png" yaml:"max_dim_png"`
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения
type Config struct {
	Beeper     Beeper     `json:"beeper" yaml:"beeper"`
	Export     Export     `json:"export" yaml:"export"`
	Hydration  Hydration  `json:"hydration" yaml:"hydration"`
	Thumbnails Thumbnails `json:"thumbnails" yaml:"thumbnails"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию из переменных окружения, .env файла
// или config.yml. Отсутствующие поля добиваются значениями по умолчанию,
// токен доступа намеренно не имеет умолчания.
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Отсутствие .env не ошибка, полагаемся на окружение или config.yml
	}

	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Если config.yml недоступен, собираем конфигурацию из окружения
		cfg = &Config{}
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return &cfg, nil
}

// applyEnv накладывает переменные окружения поверх значений из файла.
// Переменные окружения имеют приоритет: так токен можно держать в .env,
// а остальное в config.yml.
func (c *Config) applyEnv() {
	if v := os.Getenv("BEEPER_HOST_URL"); v != "" {
		c.Beeper.HostURL = v
	}
	if v := os.Getenv("BEEPER_ACCESS_TOKEN"); v != "" {
		c.Beeper.AccessToken = v
	}
	if v := os.Getenv("EXPORT_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("HYDRATION_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Hydration.PoolSize = n
		}
	}
	if v := os.Getenv("THUMBNAIL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Thumbnails.Workers = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// applyDefaults заполняет не заданные поля значениями по умолчанию
func (c *Config) applyDefaults() {
	if c.Beeper.HostURL == "" {
		c.Beeper.HostURL = DefaultHostURL
	}
	if c.Hydration.PoolSize == 0 {
		c.Hydration.PoolSize = DefaultHydrationPoolSize
	}
	if c.Thumbnails.Workers == 0 {
		c.Thumbnails.Workers = DefaultThumbnailWorkers
	}
	if c.Thumbnails.QueueSize == 0 {
		c.Thumbnails.QueueSize = DefaultThumbnailQueueSize
	}
	if c.Thumbnails.MaxDimJPEG == 0 {
		c.Thumbnails.MaxDimJPEG = DefaultMaxDimJPEG
	}
	if c.Thumbnails.MaxDimPNG == 0 {
		c.Thumbnails.MaxDimPNG = DefaultMaxDimPNG
	}
	if c.Thumbnails.JPEGQuality == 0 {
		c.Thumbnails.JPEGQuality = DefaultJPEGQuality
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate проверяет, являются ли значения конфигурации допустимыми.
// Отсутствие токена доступа фатально до любого сетевого вызова.
func (c *Config) Validate() error {
	if c.Beeper.AccessToken == "" {
		return fmt.Errorf("beeper.access_token не задан: укажите BEEPER_ACCESS_TOKEN в окружении или .env")
	}
	if c.Beeper.HostURL == "" {
		return fmt.Errorf("beeper.host_url не может быть пустым")
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir не может быть пустым")
	}

	for i, op := range c.Export.Filters {
		switch op.Action {
		case "include", "exclude":
			// all good
		default:
			return fmt.Errorf("export.filters[%d].action должен быть include или exclude", i)
		}
		if len(op.AccountIDs) == 0 && len(op.ChatIDs) == 0 {
			return fmt.Errorf("export.filters[%d] должен перечислять account_ids или chat_ids", i)
		}
	}

	if c.Hydration.PoolSize <= 0 {
		return fmt.Errorf("hydration.pool_size должно быть положительным")
	}
	if c.Thumbnails.Workers <= 0 {
		return fmt.Errorf("thumbnails.workers должно быть положительным")
	}
	if c.Thumbnails.QueueSize <= 0 {
		return fmt.Errorf("thumbnails.queue_size должно быть положительным")
	}
	if c.Thumbnails.MaxDimJPEG <= 0 || c.Thumbnails.MaxDimPNG <= 0 {
		return fmt.Errorf("thumbnails.max_dim_jpeg и thumbnails.max_dim_png должны быть положительными")
	}
	if c.Thumbnails.MaxDimPNG < c.Thumbnails.MaxDimJPEG {
		// Порог PNG больше порога JPEG: скриншоты должны оставаться читаемыми.
		return fmt.Errorf("thumbnails.max_dim_png не может быть меньше thumbnails.max_dim_jpeg")
	}
	if c.Thumbnails.JPEGQuality < 1 || c.Thumbnails.JPEGQuality > 100 {
		return fmt.Errorf("thumbnails.jpeg_quality должно быть в диапазоне 1-100")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	return nil
}
