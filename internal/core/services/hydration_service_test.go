package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beeper-chat-exporter/internal/domain"
)

// writeTempFile создает файл с произвольным содержимым и возвращает его путь.
func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func TestHydrationService(t *testing.T) {
	t.Run("Удаленные ссылки разрешаются через download-asset", func(t *testing.T) {
		dir := t.TempDir()
		cached := writeTempFile(t, dir, "abc.jpg")

		client := newFakeSourceClient()
		client.assets["mxc://server/abc"] = cached

		svc := NewHydrationService(client, WithHydrationPoolSize(2))
		got := svc.HydrateAll(context.Background(), []string{"mxc://server/abc"})

		require.Len(t, got, 1)
		assert.Equal(t, cached, got["mxc://server/abc"])
	})

	t.Run("Локальные file-ссылки проходят без сетевого вызова", func(t *testing.T) {
		dir := t.TempDir()
		local := writeTempFile(t, dir, "pic.png")

		client := newFakeSourceClient()
		svc := NewHydrationService(client)
		got := svc.HydrateAll(context.Background(), []string{"file://" + local})

		assert.Equal(t, local, got["file://"+local])
		assert.Equal(t, 0, client.downloadCount())
	})

	t.Run("Неудача по одной ссылке не трогает остальные", func(t *testing.T) {
		dir := t.TempDir()
		cached := writeTempFile(t, dir, "ok.jpg")

		client := newFakeSourceClient()
		client.assets["mxc://server/ok"] = cached
		client.failRefs["mxc://server/bad"] = true

		svc := NewHydrationService(client, WithHydrationPoolSize(4))
		refs := []string{"mxc://server/ok", "mxc://server/bad"}
		got := svc.HydrateAll(context.Background(), refs)

		require.Len(t, got, 2)
		assert.Equal(t, cached, got["mxc://server/ok"])
		assert.Equal(t, domain.Unresolved, got["mxc://server/bad"])
	})

	t.Run("Несуществующий после гидратации файл считается неразрешенным", func(t *testing.T) {
		client := newFakeSourceClient()
		client.assets["mxc://server/gone"] = "/nonexistent/path/gone.jpg"

		svc := NewHydrationService(client)
		got := svc.HydrateAll(context.Background(), []string{"mxc://server/gone"})

		assert.Equal(t, domain.Unresolved, got["mxc://server/gone"])
	})

	t.Run("Повторяющиеся ссылки скачиваются один раз", func(t *testing.T) {
		dir := t.TempDir()
		cached := writeTempFile(t, dir, "dup.jpg")

		client := newFakeSourceClient()
		client.assets["mxc://server/dup"] = cached

		svc := NewHydrationService(client)
		refs := []string{"mxc://server/dup", "mxc://server/dup", "mxc://server/dup"}
		got := svc.HydrateAll(context.Background(), refs)

		require.Len(t, got, 1)
		assert.Equal(t, 1, client.downloadCount())
	})

	t.Run("Множество ключей результата равно множеству входных ссылок", func(t *testing.T) {
		client := newFakeSourceClient()
		client.failRefs["mxc://a"] = true
		client.failRefs["mxc://b"] = true

		svc := NewHydrationService(client, WithHydrationPoolSize(3))
		refs := []string{"mxc://a", "mxc://b", "mxc://c"}
		got := svc.HydrateAll(context.Background(), refs)

		require.Len(t, got, 3)
		for _, ref := range refs {
			_, ok := got[ref]
			assert.True(t, ok, "отсутствует ключ %s", ref)
		}
	})

	t.Run("Пустой вход дает пустую карту", func(t *testing.T) {
		svc := NewHydrationService(newFakeSourceClient())
		got := svc.HydrateAll(context.Background(), nil)
		assert.Empty(t, got)
	})

	t.Run("Отмененный контекст помечает все неразрешенным", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := newFakeSourceClient()
		svc := NewHydrationService(client)
		got := svc.HydrateAll(ctx, []string{"mxc://a", "mxc://b"})

		require.Len(t, got, 2)
		assert.Equal(t, domain.Unresolved, got["mxc://a"])
		assert.Equal(t, domain.Unresolved, got["mxc://b"])
	})
}
