package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"market_chat/internal/domain"
	"market_chat/internal/middleware"
	"market_chat/internal/service"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type CreateRoomRequest struct {
	// Кого пригласить, кроме самого пользователя.
	ParticipantUserIDs []string `json:"participantUserIds"`
	Title              *string  `json:"title"`
}

type CreateRoomResponse struct {
	RoomID int64 `json:"roomId"`
}

type RoomResponse struct {
	RoomID        int64      `json:"roomId"`
	Title         *string    `json:"title"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

// MessageResponse отдаёт об отправителе только имя и ник.
type MessageResponse struct {
	ID        int64          `json:"id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	Sender    *SenderSummary `json:"sender"`
}

type SenderSummary struct {
	UserName string `json:"userName"`
	Nickname string `json:"nickname"`
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err))
		return
	}

	room, err := h.chatService.CreateRoom(c.Request.Context(), userID, req.ParticipantUserIDs, req.Title)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, CreateRoomResponse{RoomID: room.ID})
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	rooms, err := h.chatService.RoomsOf(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		resp = append(resp, RoomResponse{
			RoomID:        r.ID,
			Title:         r.Title,
			CreatedAt:     r.CreatedAt,
			LastMessageAt: r.LastMessageAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	size := service.DefaultHistorySize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.Error(fmt.Errorf("%w: size must be a positive integer", apperrors.ErrBadRequest))
			return
		}
		size = n
	}

	messages, err := h.chatService.RecentMessages(c.Request.Context(), roomID, size)
	if err != nil {
		c.Error(err)
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toMessageResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	count, err := h.chatService.UnreadCount(c.Request.Context(), roomID, userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "unreadCount": count})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	if err := h.chatService.MarkRead(c.Request.Context(), roomID, userID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *ChatHandler) Leave(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)

	res, err := h.chatService.Leave(c.Request.Context(), roomID, userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomDeleted": res.RoomDeleted})
}

// Search фильтрует мои комнаты по нику собеседника.
func (h *ChatHandler) Search(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	results, err := h.chatService.SearchRooms(c.Request.Context(), userID, c.Param("nickname"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func roomIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(fmt.Errorf("%w: invalid room id", apperrors.ErrBadRequest))
		return 0, false
	}
	return id, true
}

func toMessageResponse(m *domain.ChatMessage) MessageResponse {
	resp := MessageResponse{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt}
	if m.Sender != nil {
		resp.Sender = &SenderSummary{UserName: m.Sender.UserName, Nickname: m.Sender.Nickname}
	}
	return resp
}
