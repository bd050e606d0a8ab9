package beeper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVersion = "4.1.250"

// newTestServer поднимает httptest-сервер, отдающий заранее подготовленные
// страницы выдачи и проверяющий заголовок авторизации.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set(versionHeader, testVersion)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCheckVersion(t *testing.T) {
	t.Run("Актуальная версия проходит проверку", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(rawChatPage{})
		})
		c := NewClient(srv.URL, "test-token")
		assert.NoError(t, c.CheckVersion(context.Background()))
	})

	t.Run("Старая версия отклоняется", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(versionHeader, "4.1.100")
			_ = json.NewEncoder(w).Encode(rawChatPage{})
		}))
		t.Cleanup(srv.Close)

		c := NewClient(srv.URL, "test-token")
		err := c.CheckVersion(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrVersionTooOld)
	})

	t.Run("Отсутствие заголовка версии фатально", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(rawChatPage{})
		}))
		t.Cleanup(srv.Close)

		c := NewClient(srv.URL, "test-token")
		assert.Error(t, c.CheckVersion(context.Background()))
	})

	t.Run("Недоступный сервис дает ErrUnreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // закрываем сразу, чтобы соединение отклонялось

		c := NewClient(srv.URL, "test-token")
		err := c.CheckVersion(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnreachable)
	})
}

func TestClientListChats(t *testing.T) {
	t.Run("Страницы собираются до исчерпания курсора", func(t *testing.T) {
		var cursors []string
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v0/list-chats", r.URL.Path)
			cursor := r.URL.Query().Get("cursor")
			cursors = append(cursors, cursor)

			switch cursor {
			case "":
				_ = json.NewEncoder(w).Encode(rawChatPage{
					Items:        []rawChat{{ID: "c1", AccountID: "acc", Network: "signal", Title: "One"}},
					HasMore:      true,
					OldestCursor: "cur1",
				})
			case "cur1":
				require.Equal(t, "before", r.URL.Query().Get("direction"))
				_ = json.NewEncoder(w).Encode(rawChatPage{
					Items:   []rawChat{{ID: "c2", AccountID: "acc", Network: "signal", Title: "Two"}},
					HasMore: false,
				})
			default:
				t.Fatalf("неожиданный курсор %q", cursor)
			}
		})

		c := NewClient(srv.URL, "test-token")
		chats, err := c.ListChats(context.Background())
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, "c1", chats[0].ID)
		assert.Equal(t, "c2", chats[1].ID)
		assert.Equal(t, []string{"", "cur1"}, cursors)
	})

	t.Run("hasMore без курсора останавливает перебор", func(t *testing.T) {
		calls := 0
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(rawChatPage{
				Items:   []rawChat{{ID: "c1"}},
				HasMore: true, // курсор не возвращен
			})
		})

		c := NewClient(srv.URL, "test-token")
		chats, err := c.ListChats(context.Background())
		require.NoError(t, err)
		assert.Len(t, chats, 1)
		assert.Equal(t, 1, calls)
	})

	t.Run("Ответ с кодом ошибки не повторяется", func(t *testing.T) {
		calls := 0
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		})

		c := NewClient(srv.URL, "test-token")
		_, err := c.ListChats(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestClientListMessages(t *testing.T) {
	t.Run("Сообщения собираются постранично в порядке получения", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v0/list-messages", r.URL.Path)
			require.Equal(t, "chat1", r.URL.Query().Get("chatID"))

			if r.URL.Query().Get("cursor") == "" {
				_ = json.NewEncoder(w).Encode(rawMessagePage{
					Items: []rawMessage{
						{MessageID: "m2", ChatID: "chat1", Timestamp: "2024-05-01T12:01:00Z", SortKey: 2},
					},
					HasMore:      true,
					OldestCursor: "older",
				})
				return
			}
			_ = json.NewEncoder(w).Encode(rawMessagePage{
				Items: []rawMessage{
					{MessageID: "m1", ChatID: "chat1", Timestamp: "2024-05-01T12:00:00Z", SortKey: 1},
				},
			})
		})

		c := NewClient(srv.URL, "test-token")
		msgs, err := c.ListMessages(context.Background(), "chat1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m2", msgs[0].ID)
		assert.Equal(t, "m1", msgs[1].ID)
	})

	t.Run("Сообщение с нечитаемой меткой времени отвергается", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(rawMessagePage{
				Items: []rawMessage{{MessageID: "m1", ChatID: "chat1", Timestamp: "не дата"}},
			})
		})

		c := NewClient(srv.URL, "test-token")
		_, err := c.ListMessages(context.Background(), "chat1")
		assert.Error(t, err)
	})
}

func TestClientDownloadAsset(t *testing.T) {
	t.Run("Успешная гидратация возвращает локальный путь", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v0/download-asset", r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)

			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "mxc://server/abc", req["url"])

			_ = json.NewEncoder(w).Encode(rawDownloadAsset{SrcURL: "file:///tmp/cache/abc.jpg"})
		})

		c := NewClient(srv.URL, "test-token")
		path, err := c.DownloadAsset(context.Background(), "mxc://server/abc")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/cache/abc.jpg", path)
	})

	t.Run("Не file-URL в ответе считается ошибкой", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(rawDownloadAsset{SrcURL: "https://example.com/abc.jpg"})
		})

		c := NewClient(srv.URL, "test-token")
		_, err := c.DownloadAsset(context.Background(), "mxc://server/abc")
		assert.Error(t, err)
	})

	t.Run("Код ошибки сервиса возвращается вызывающему", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		c := NewClient(srv.URL, "test-token")
		_, err := c.DownloadAsset(context.Background(), "mxc://server/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestFileURLToPath(t *testing.T) {
	t.Run("Корректный file-URL", func(t *testing.T) {
		path, err := FileURLToPath("file:///home/user/cache/img.png")
		require.NoError(t, err)
		assert.Equal(t, "/home/user/cache/img.png", path)
	})

	t.Run("Процентное кодирование раскрывается", func(t *testing.T) {
		path, err := FileURLToPath("file:///tmp/with%20space.jpg")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/with space.jpg", path)
	})

	t.Run("Другая схема отклоняется", func(t *testing.T) {
		_, err := FileURLToPath("mxc://server/abc")
		assert.Error(t, err)
	})
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"4.1.244", "4.1.244", 0},
		{"4.1.243", "4.1.244", -1},
		{"4.1.245", "4.1.244", 1},
		{"4.2.0", "4.1.244", 1},
		{"5.0.0", "4.1.244", 1},
		{"4.1", "4.1.244", -1},
		{"4.1.244.1", "4.1.244", 1},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s против %s", tc.a, tc.b), func(t *testing.T) {
			assert.Equal(t, tc.want, compareVersions(tc.a, tc.b))
		})
	}
}
