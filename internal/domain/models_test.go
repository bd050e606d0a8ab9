package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserDisplayName(t *testing.T) {
	t.Run("Цепочка фолбэков", func(t *testing.T) {
		u := User{ID: "u1", FullName: "Ann Smith", Username: "ann", Email: "a@b.c", Phone: "+100"}
		assert.Equal(t, "Ann Smith", u.DisplayName())

		u.FullName = ""
		assert.Equal(t, "ann", u.DisplayName())

		u.Username = ""
		assert.Equal(t, "a@b.c", u.DisplayName())

		u.Email = ""
		assert.Equal(t, "+100", u.DisplayName())

		u.Phone = ""
		assert.Equal(t, "u1", u.DisplayName())
	})

	t.Run("Имя из одних пробелов игнорируется", func(t *testing.T) {
		u := User{ID: "u1", FullName: "   ", Username: "ann"}
		assert.Equal(t, "ann", u.DisplayName())
	})
}

func TestMessageIsBlank(t *testing.T) {
	t.Run("Сообщение без текста вложений и реакций пустое", func(t *testing.T) {
		m := Message{ID: "m1"}
		assert.True(t, m.IsBlank())
	})

	t.Run("Пустая строка текста не делает сообщение пустым", func(t *testing.T) {
		m := Message{ID: "m1", Text: strPtr("")}
		assert.False(t, m.IsBlank())
	})

	t.Run("Вложение или реакция делают сообщение непустым", func(t *testing.T) {
		withAtt := Message{ID: "m1", Attachments: []Attachment{{Kind: KindImage, SrcURL: "mxc://x"}}}
		assert.False(t, withAtt.IsBlank())

		withReaction := Message{ID: "m2", Reactions: []Reaction{{ID: "r1", Key: "❤"}}}
		assert.False(t, withReaction.IsBlank())
	})
}

func TestChatSetMessages(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Дубликаты по ID между страницами схлопываются", func(t *testing.T) {
		c := &Chat{ID: "c1"}
		// Одно и то же сообщение пришло на двух соседних страницах выдачи.
		c.SetMessages([]Message{
			{ID: "m1", SortKey: 1, Timestamp: base, Text: strPtr("first")},
			{ID: "m2", SortKey: 2, Timestamp: base.Add(time.Minute), Text: strPtr("second")},
			{ID: "m1", SortKey: 1, Timestamp: base, Text: strPtr("first again")},
		})

		require.Len(t, c.Messages, 2)
		assert.Equal(t, "first", *c.Messages[0].Text, "выживает первое вхождение")
	})

	t.Run("Пустые сообщения отбрасываются", func(t *testing.T) {
		c := &Chat{ID: "c1"}
		c.SetMessages([]Message{
			{ID: "m1", Timestamp: base, Text: strPtr("hi")},
			{ID: "m2", Timestamp: base.Add(time.Minute)}, // пустое
		})
		require.Len(t, c.Messages, 1)
		assert.Equal(t, "m1", c.Messages[0].ID)
	})

	t.Run("Канонический порядок сортировки", func(t *testing.T) {
		c := &Chat{ID: "c1"}
		c.SetMessages([]Message{
			{ID: "m3", SortKey: 30, Timestamp: base.Add(2 * time.Minute), Text: strPtr("c")},
			{ID: "m1", SortKey: 10, Timestamp: base, Text: strPtr("a")},
			{ID: "m2b", SortKey: 20, Timestamp: base.Add(time.Minute), Text: strPtr("b2")},
			{ID: "m2a", SortKey: 20, Timestamp: base.Add(time.Minute), Text: strPtr("b1")},
		})

		ids := make([]string, 0, len(c.Messages))
		for _, m := range c.Messages {
			ids = append(ids, m.ID)
		}
		// Равные ключ сортировки и метка времени упорядочиваются по ID.
		assert.Equal(t, []string{"m1", "m2a", "m2b", "m3"}, ids)
	})

	t.Run("LastMessageTime", func(t *testing.T) {
		c := &Chat{ID: "c1"}
		assert.True(t, c.LastMessageTime().IsZero())

		c.SetMessages([]Message{
			{ID: "m1", SortKey: 1, Timestamp: base, Text: strPtr("a")},
			{ID: "m2", SortKey: 2, Timestamp: base.Add(time.Hour), Text: strPtr("b")},
		})
		assert.Equal(t, base.Add(time.Hour), c.LastMessageTime())
	})
}
