package domain

import (
	"time"
)

// InitialLastReadAt - отметка прочтения при создании комнаты:
// уже существующие сообщения считаются непрочитанными.
var InitialLastReadAt = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

type Room struct {
	ID            int64      `json:"id"`
	Title         *string    `json:"title,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Participant - членство (комната, пользователь). LeftAt == nil значит активен.
type Participant struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"room_id"`
	UserID     string     `json:"user_id"`
	JoinedAt   time.Time  `json:"joined_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	LastReadAt time.Time  `json:"last_read_at"`

	// Заполняется запросами с join на users.
	User *UserSummary `json:"user,omitempty"`
}

func (p *Participant) Active() bool {
	return p.LeftAt == nil
}

// AllLeft сообщает, что активных участников не осталось.
// Пустой список тоже считается «все вышли».
func AllLeft(participants []*Participant) bool {
	for _, p := range participants {
		if p.Active() {
			return false
		}
	}
	return true
}

// RoomSummary - результат поиска: комната, участники и число непрочитанных.
type RoomSummary struct {
	RoomID        int64          `json:"roomId"`
	Title         *string        `json:"title,omitempty"`
	Participants  []*UserSummary `json:"participants"`
	LastMessageAt *time.Time     `json:"lastMessageAt"`
	UnreadCount   int64          `json:"unreadCount"`
}
