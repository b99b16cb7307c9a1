package models

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the presence status of a directory user.
type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
)

// User is a directory entry with the authoritative budget.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Emoji     string     `json:"emoji,omitempty"`
	Color     string     `json:"color,omitempty"`
	Status    UserStatus `json:"status"`
	Budget    int64      `json:"budget"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
