package realtime

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"market_chat/internal/domain"
	apperrors "market_chat/pkg/errors"
)

type MessageType string

const (
	MessageTypeJoin  MessageType = "JOIN"
	MessageTypeTalk  MessageType = "TALK"
	MessageTypeLeave MessageType = "LEAVE"
	// MessageTypeError только исходящий: уходит отправителю, чей TALK не сохранился.
	MessageTypeError MessageType = "ERROR"
)

// Frame - JSON-кадр сокета в обе стороны.
type Frame struct {
	MessageType  MessageType `json:"messageType"`
	RoomID       *int64      `json:"roomId"`
	Message      string      `json:"message"`
	SenderUserID string      `json:"senderUserId"`
}

// DecodeFrame разбирает входящий кадр. Всё, на что хаб не должен
// реагировать, возвращается как ErrInvalidFrame: битый JSON, нет roomId,
// неизвестный или только исходящий тип, слишком длинный TALK.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFrame, err)
	}
	switch f.MessageType {
	case MessageTypeJoin, MessageTypeTalk, MessageTypeLeave:
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", apperrors.ErrInvalidFrame, f.MessageType)
	}
	if f.RoomID == nil {
		return nil, fmt.Errorf("%w: missing roomId", apperrors.ErrInvalidFrame)
	}
	if f.MessageType == MessageTypeTalk && utf8.RuneCountInString(f.Message) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", apperrors.ErrInvalidFrame, domain.MaxMessageLength)
	}
	return &f, nil
}

func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

func JoinNotice(userID string) string {
	return userID + " joined the room."
}

func LeaveNotice(userID string) string {
	return userID + " left the room."
}
