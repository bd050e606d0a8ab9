package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Run("Обычные имена проходят без изменений", func(t *testing.T) {
		assert.Equal(t, "Family chat", Sanitize("Family chat"))
		assert.Equal(t, "photo_2024", Sanitize("photo_2024"))
	})

	t.Run("Запрещенные символы удаляются", func(t *testing.T) {
		assert.Equal(t, "ab", Sanitize(`a"*/:<>?\|b`))
		assert.Equal(t, "chat name", Sanitize("chat/name:"))
	})

	t.Run("Пробелы точки и переводы строк обрезаются по краям", func(t *testing.T) {
		assert.Equal(t, "name", Sanitize(" \t\nname.. "))
		assert.Equal(t, "a.b", Sanitize("a.b"))
	})

	t.Run("Зарезервированные имена устройств получают подчеркивание", func(t *testing.T) {
		for _, name := range []string{"con", "CON", "Con", "NUL", "aux", "prn", "com1", "LPT9"} {
			got := Sanitize(name)
			assert.Equal(t, name+"_", got, "имя %q должно получить завершающее подчеркивание", name)
		}
	})

	t.Run("Пустой результат заменяется на подчеркивание", func(t *testing.T) {
		assert.Equal(t, "_", Sanitize(""))
		assert.Equal(t, "_", Sanitize("..."))
		assert.Equal(t, "_", Sanitize("  \t "))
		assert.Equal(t, "_", Sanitize(`"*/:<>?\|`))
		assert.Equal(t, "_", Sanitize(" .:. "))
	})

	t.Run("Идемпотентность", func(t *testing.T) {
		inputs := []string{
			"", "con", "CON.", " nul ", "...", "a/b/c", "обычный чат",
			`"*"`, "name.", "com5", "_", "a b\tc",
		}
		for _, in := range inputs {
			once := Sanitize(in)
			twice := Sanitize(once)
			assert.Equal(t, once, twice, "Sanitize не идемпотентна для %q", in)
		}
	})
}
