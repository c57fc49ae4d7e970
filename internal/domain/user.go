package domain

import (
	"time"
)

// User принадлежит сервису идентификации маркетплейса, чат его только читает.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	UserName  string    `json:"user_name"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{UserID: u.ID, UserName: u.UserName, Nickname: u.Nickname}
}

type UserSummary struct {
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName"`
	Nickname string `json:"nickname"`
}
