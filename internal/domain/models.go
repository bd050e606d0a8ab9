// Package domain содержит нормализованную модель чатов и сообщений,
// полученных от Beeper Desktop API.
package domain

import (
	"sort"
	"strings"
	"time"
)

// User представляет участника чата.
type User struct {
	ID       string
	FullName string
	Username string
	Email    string
	Phone    string
	IsSelf   bool
}

// DisplayName возвращает отображаемое имя участника по цепочке:
// полное имя -> имя пользователя -> email -> телефон -> ID.
// Результат никогда не бывает пустым, так как ID обязателен.
func (u User) DisplayName() string {
	for _, candidate := range []string{u.FullName, u.Username, u.Email, u.Phone} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return u.ID
}

// AttachmentKind определяет тип вложения. Множество значений закрыто:
// рендерер отвергает неизвестный тип, а не молча пропускает его.
type AttachmentKind string

const (
	KindImage AttachmentKind = "img"
	KindVideo AttachmentKind = "video"
	KindAudio AttachmentKind = "audio"
	KindOther AttachmentKind = "other"
)

// Attachment представляет вложение сообщения. Вложения не хранятся
// отдельно от сообщения-владельца.
type Attachment struct {
	Kind     AttachmentKind
	SrcURL   string // удаленная ссылка до гидратации
	FileName string
	Width    int
	Height   int
}

// HasSize сообщает, известны ли размеры вложения.
func (a Attachment) HasSize() bool {
	return a.Width > 0 && a.Height > 0
}

// Reaction представляет одну реакцию на сообщение. Реакции нескольких
// участников с одним ключом агрегируются при отображении.
type Reaction struct {
	ID            string
	ParticipantID string
	Key           string
}

// Message представляет одно сообщение чата.
// Text - указатель: присутствующий, но пустой текст не считается отсутствующим.
type Message struct {
	ID              string
	ChatID          string
	Timestamp       time.Time
	SortKey         int64
	IsSelf          bool
	SenderID        string
	SenderName      string
	Text            *string
	LinkedMessageID string
	Attachments     []Attachment
	Reactions       []Reaction
}

// IsBlank сообщает, является ли сообщение пустым: нет текста, нет вложений
// и нет реакций. Пустые сообщения исключаются из экспорта.
func (m *Message) IsBlank() bool {
	return m.Text == nil && len(m.Attachments) == 0 && len(m.Reactions) == 0
}

// Chat представляет один чат в рамках аккаунта одной сети.
// Participants и Messages неизменяемы после SetMessages, заголовок
// вычисляется один раз и кэшируется.
type Chat struct {
	ID           string
	AccountID    string
	Network      string
	RawTitle     string
	Participants []User
	Messages     []Message

	title string // кэш Title(), заполняется при первом вызове
}

// SelfParticipant возвращает участника с флагом isSelf или nil.
func (c *Chat) SelfParticipant() *User {
	for i := range c.Participants {
		if c.Participants[i].IsSelf {
			return &c.Participants[i]
		}
	}
	return nil
}

// Participant возвращает участника по ID или nil.
func (c *Chat) Participant(id string) *User {
	for i := range c.Participants {
		if c.Participants[i].ID == id {
			return &c.Participants[i]
		}
	}
	return nil
}

// SetMessages принимает сообщения в порядке получения, отбрасывает пустые,
// дедуплицирует их по ID (страницы выдачи могут пересекаться, выживает
// первое вхождение) и сортирует в каноническом порядке: ключ сортировки
// источника, затем метка времени, затем ID.
func (c *Chat) SetMessages(msgs []Message) {
	seen := make(map[string]struct{}, len(msgs))
	kept := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsBlank() {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.SortKey != b.SortKey {
			return a.SortKey < b.SortKey
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	c.Messages = kept
}

// LastMessageTime возвращает метку времени последнего сообщения
// или нулевое время, если сообщений нет.
func (c *Chat) LastMessageTime() time.Time {
	if len(c.Messages) == 0 {
		return time.Time{}
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}
