package domain

import (
	"time"
)

// MaxMessageLength совпадает с размером колонки content.
const MaxMessageLength = 2000

type ChatMessage struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	SenderID  *string   `json:"sender_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Имя отправителя для отображения, nil у системных сообщений.
	Sender *UserSummary `json:"sender,omitempty"`
}

func (m *ChatMessage) IsSystem() bool {
	return m.SenderID == nil
}
