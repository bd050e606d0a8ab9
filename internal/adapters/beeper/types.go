package beeper

import (
	"fmt"
	"time"

	"beeper-chat-exporter/internal/domain"
)

// Сырые структуры повторяют формат ответов Beeper Desktop API.
// Это единственная граница разбора: дальше по программе ходят только
// типизированные сущности domain.

// rawChatPage представляет одну страницу выдачи list-chats.
type rawChatPage struct {
	Items        []rawChat `json:"items"`
	HasMore      bool      `json:"hasMore"`
	OldestCursor string    `json:"oldestCursor"`
}

// rawMessagePage представляет одну страницу выдачи list-messages.
type rawMessagePage struct {
	Items        []rawMessage `json:"items"`
	HasMore      bool         `json:"hasMore"`
	OldestCursor string       `json:"oldestCursor"`
}

type rawParticipantList struct {
	Items []rawParticipant `json:"items"`
}

type rawParticipant struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	IsSelf      bool   `json:"isSelf"`
}

type rawChat struct {
	ID           string             `json:"id"`
	AccountID    string             `json:"accountID"`
	Network      string             `json:"network"`
	Title        string             `json:"title"`
	Participants rawParticipantList `json:"participants"`
}

type rawSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type rawAttachment struct {
	Type     string   `json:"type"`
	SrcURL   string   `json:"srcURL"`
	FileName string   `json:"fileName"`
	Size     *rawSize `json:"size"`
}

type rawReaction struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantID"`
	ReactionKey   string `json:"reactionKey"`
}

type rawMessage struct {
	MessageID       string          `json:"messageID"`
	ChatID          string          `json:"chatID"`
	Timestamp       string          `json:"timestamp"`
	SortKey         int64           `json:"sortKey"`
	IsSender        bool            `json:"isSender"`
	SenderID        string          `json:"senderID"`
	SenderName      string          `json:"senderName"`
	Text            *string         `json:"text"`
	LinkedMessageID string          `json:"linkedMessageID"`
	Attachments     []rawAttachment `json:"attachments"`
	Reactions       []rawReaction   `json:"reactions"`
}

// rawDownloadAsset представляет ответ download-asset.
type rawDownloadAsset struct {
	SrcURL string `json:"srcURL"`
}

// toDomain преобразует сырой чат в доменный. Политика значений по умолчанию:
// отсутствующие поля имени участника остаются пустыми (цепочку фолбэков
// применяет domain.User.DisplayName), отсутствующий заголовок допустим,
// отсутствующий ID чата - отказ.
func (rc rawChat) toDomain() (*domain.Chat, error) {
	if rc.ID == "" {
		return nil, fmt.Errorf("chat record has no id")
	}
	chat := &domain.Chat{
		ID:        rc.ID,
		AccountID: rc.AccountID,
		Network:   rc.Network,
		RawTitle:  rc.Title,
	}
	for _, rp := range rc.Participants.Items {
		if rp.ID == "" {
			// Участник без ID бесполезен для гистограммы и реакций.
			continue
		}
		chat.Participants = append(chat.Participants, domain.User{
			ID:       rp.ID,
			FullName: rp.FullName,
			Username: rp.Username,
			Email:    rp.Email,
			Phone:    rp.PhoneNumber,
			IsSelf:   rp.IsSelf,
		})
	}
	return chat, nil
}

// toDomain преобразует сырое сообщение в доменное. Сообщение без ID или
// без разбираемой метки времени отвергается: без них невозможны ни
// дедупликация, ни канонический порядок.
func (rm rawMessage) toDomain() (*domain.Message, error) {
	if rm.MessageID == "" {
		return nil, fmt.Errorf("message record has no id")
	}
	ts, err := time.Parse(time.RFC3339, rm.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("message %s has invalid timestamp %q: %w", rm.MessageID, rm.Timestamp, err)
	}

	msg := &domain.Message{
		ID:              rm.MessageID,
		ChatID:          rm.ChatID,
		Timestamp:       ts,
		SortKey:         rm.SortKey,
		IsSelf:          rm.IsSender,
		SenderID:        rm.SenderID,
		SenderName:      rm.SenderName,
		Text:            rm.Text,
		LinkedMessageID: rm.LinkedMessageID,
	}

	for _, ra := range rm.Attachments {
		if ra.SrcURL == "" {
			// Вложение без ссылки негидратируемо, пропускаем запись.
			continue
		}
		att := domain.Attachment{
			Kind:     attachmentKind(ra.Type),
			SrcURL:   ra.SrcURL,
			FileName: ra.FileName,
		}
		if ra.Size != nil {
			att.Width = ra.Size.Width
			att.Height = ra.Size.Height
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	for _, rr := range rm.Reactions {
		if rr.ReactionKey == "" {
			continue
		}
		msg.Reactions = append(msg.Reactions, domain.Reaction{
			ID:            rr.ID,
			ParticipantID: rr.ParticipantID,
			Key:           rr.ReactionKey,
		})
	}

	return msg, nil
}

// attachmentKind отображает строковый тип источника в закрытое множество.
// Неизвестные значения становятся KindOther и позже уточняются по
// содержимому файла.
func attachmentKind(t string) domain.AttachmentKind {
	switch t {
	case "img", "image":
		return domain.KindImage
	case "video":
		return domain.KindVideo
	case "audio":
		return domain.KindAudio
	default:
		return domain.KindOther
	}
}
