package log

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToken = "Bearer 4f7a1c9b2e8d4f6a0b3c5d7e9f1a2b3c"

func newCapturedLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewMaskedLogger(handler), buf
}

func TestTokenMaskerHandler(t *testing.T) {
	t.Run("Токен в сообщении маскируется", func(t *testing.T) {
		logger, buf := newCapturedLogger()
		logger.Info("authorization header: " + sampleToken)

		out := buf.String()
		assert.NotContains(t, out, "4f7a1c9b2e8d4f6a0b3c5d7e9f1a2b3c")
		assert.Contains(t, out, "***masked-token***")
	})

	t.Run("Токен в строковом атрибуте маскируется", func(t *testing.T) {
		logger, buf := newCapturedLogger()
		logger.Warn("request failed", "auth", sampleToken)

		out := buf.String()
		assert.NotContains(t, out, "4f7a1c9b2e8d4f6a0b3c5d7e9f1a2b3c")
		assert.Contains(t, out, "***masked-token***")
	})

	t.Run("Токен внутри ошибки маскируется", func(t *testing.T) {
		logger, buf := newCapturedLogger()
		err := errors.New("POST http://localhost:23373/v0/download-asset with " + sampleToken + ": connection refused")
		logger.Error("hydration failed", "error", err)

		out := buf.String()
		assert.NotContains(t, out, "4f7a1c9b2e8d4f6a0b3c5d7e9f1a2b3c")
		assert.Contains(t, out, "connection refused")
	})

	t.Run("Токен в атрибутах WithAttrs маскируется", func(t *testing.T) {
		logger, buf := newCapturedLogger()
		logger.With("header", sampleToken).Info("client ready")

		out := buf.String()
		assert.NotContains(t, out, "4f7a1c9b2e8d4f6a0b3c5d7e9f1a2b3c")
	})

	t.Run("Обычный текст проходит без изменений", func(t *testing.T) {
		logger, buf := newCapturedLogger()
		logger.Info("exported chat", "chat_id", "chat42", "messages", 17)

		out := buf.String()
		require.Contains(t, out, "exported chat")
		assert.Contains(t, out, "chat42")
		assert.NotContains(t, out, "***masked-token***")
	})
}
