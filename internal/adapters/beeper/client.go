// Package beeper реализует клиент Beeper Desktop API: постраничное
// перечисление чатов и сообщений и гидратацию вложений.
package beeper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"beeper-chat-exporter/internal/domain"
	"beeper-chat-exporter/internal/ports"
)

// minVersion - минимальная версия Beeper Desktop с нужными эндпоинтами API.
const minVersion = "4.1.244"

// versionHeader - заголовок ответа с версией Beeper Desktop.
const versionHeader = "X-Beeper-Desktop-Version"

// defaultPageLimit - размер страницы выдачи; сервис ограничивает его 20.
const defaultPageLimit = 20

// ErrUnreachable - сервис недоступен; обычно Desktop API не включен.
var ErrUnreachable = errors.New("beeper desktop api is unreachable, make sure it is enabled")

// ErrVersionTooOld - установленная версия Beeper старше минимально требуемой.
var ErrVersionTooOld = errors.New("installed beeper version is too old")

// Option - функциональная опция для настройки Client.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (используется в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPageLimit устанавливает размер запрашиваемой страницы выдачи.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithMaxRetries устанавливает число повторов при сетевых сбоях.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// Client - клиент Beeper Desktop API поверх localhost HTTP.
// Таймаута на отдельный запрос нет намеренно: зависший вызов останавливает
// весь экспорт, это принятое ограничение базовой конструкции.
type Client struct {
	httpClient *http.Client
	hostURL    string
	token      string
	pageLimit  int
	maxRetries uint64
	log        *slog.Logger
}

var _ ports.SourceClient = (*Client)(nil)

// NewClient создает новый Client с использованием функциональных опций.
func NewClient(hostURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		hostURL:    strings.TrimRight(hostURL, "/"),
		token:      accessToken,
		pageLimit:  defaultPageLimit,
		maxRetries: 3,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckVersion проверяет доступность сервиса и что его версия не ниже
// минимальной. Вызывается до любой другой операции: внятное сообщение
// о выключенном API полезнее, чем ошибка на середине экспорта.
func (c *Client) CheckVersion(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/v0/list-chats", url.Values{"limit": {"1"}})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	got := resp.Header.Get(versionHeader)
	if got == "" {
		return fmt.Errorf("can't determine beeper desktop version: response has no %s header", versionHeader)
	}
	if compareVersions(got, minVersion) < 0 {
		return fmt.Errorf("%w: installed %s, required %s", ErrVersionTooOld, got, minVersion)
	}

	c.log.DebugContext(ctx, "Beeper version check passed", "version", got)
	return nil
}

// ListChats собирает сводки всех чатов, запрашивая страницы "before oldest
// cursor", пока сервис сообщает hasMore и возвращает курсор.
func (c *Client) ListChats(ctx context.Context) ([]domain.Chat, error) {
	var chats []domain.Chat
	cursor := ""
	for {
		params := c.pageParams(cursor)
		var page rawChatPage
		if err := c.getJSON(ctx, "/v0/list-chats", params, &page); err != nil {
			return nil, fmt.Errorf("failed to list chats: %w", err)
		}
		for _, rc := range page.Items {
			chat, err := rc.toDomain()
			if err != nil {
				return nil, fmt.Errorf("failed to parse chat record: %w", err)
			}
			chats = append(chats, *chat)
		}
		if !page.HasMore || page.OldestCursor == "" {
			break
		}
		cursor = page.OldestCursor
	}
	c.log.DebugContext(ctx, "Listed chats", "count", len(chats))
	return chats, nil
}

// GetChat возвращает полные сведения о чате, включая не усеченный
// список участников.
func (c *Client) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	var rc rawChat
	params := url.Values{"chatID": {chatID}}
	if err := c.getJSON(ctx, "/v0/get-chat", params, &rc); err != nil {
		return nil, fmt.Errorf("failed to get chat %s: %w", chatID, err)
	}
	chat, err := rc.toDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat %s: %w", chatID, err)
	}
	return chat, nil
}

// ListMessages собирает все сообщения чата в порядке получения.
// Дедупликация пересекающихся страниц выполняется моделью.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var msgs []domain.Message
	cursor := ""
	pages := 0
	for {
		params := c.pageParams(cursor)
		params.Set("chatID", chatID)
		var page rawMessagePage
		if err := c.getJSON(ctx, "/v0/list-messages", params, &page); err != nil {
			return nil, fmt.Errorf("failed to list messages of chat %s: %w", chatID, err)
		}
		for _, rm := range page.Items {
			msg, err := rm.toDomain()
			if err != nil {
				return nil, fmt.Errorf("failed to parse message record: %w", err)
			}
			msgs = append(msgs, *msg)
		}
		pages++
		if !page.HasMore || page.OldestCursor == "" {
			break
		}
		cursor = page.OldestCursor
	}
	c.log.DebugContext(ctx, "Listed messages", "chat_id", chatID, "count", len(msgs), "pages", pages)
	return msgs, nil
}

// DownloadAsset просит сервис скачать вложение в локальный кэш.
// Возвращает путь к файлу в кэше Beeper.
func (c *Client) DownloadAsset(ctx context.Context, srcURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": srcURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode download-asset request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v0/download-asset", nil)
	if err != nil {
		return "", err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download-asset request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download-asset returned status %d", resp.StatusCode)
	}

	var parsed rawDownloadAsset
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode download-asset response: %w", err)
	}
	return FileURLToPath(parsed.SrcURL)
}

// pageParams собирает параметры постраничного запроса.
func (c *Client) pageParams(cursor string) url.Values {
	params := url.Values{"limit": {strconv.Itoa(c.pageLimit)}}
	if cursor != "" {
		params.Set("cursor", cursor)
		params.Set("direction", "before")
	}
	return params
}

// newRequest создает запрос с заголовком авторизации.
func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	u := c.hostURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// getJSON выполняет GET с повторами при сетевых сбоях и декодирует ответ.
// Повторяются только ошибки соединения: ответ с кодом ошибки означает,
// что сервис доступен и повтор не поможет.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	operation := func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, params)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.WarnContext(ctx, "Request failed, will retry", "path", path, "error", err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%s returned status %d", path, resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", path, err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(operation, bo)
}

// FileURLToPath преобразует file:// URL из ответов сервиса в путь файловой
// системы. Любая другая схема - ошибка: после гидратации источник обязан
// быть локальным файлом.
func FileURLToPath(fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, "file://") {
		return "", fmt.Errorf("expected file:// url, got %q", fileURL)
	}
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", fileURL, err)
	}
	path := u.Path
	if path == "" {
		return "", fmt.Errorf("file url %q has empty path", fileURL)
	}
	return path, nil
}

// compareVersions сравнивает версии вида "4.1.244" покомпонентно.
// Возвращает -1, 0 или 1. Нечисловые компоненты сравниваются как строки.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv string
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		an, aerr := strconv.Atoi(av)
		bn, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
