package models

import "time"

// Status is a user's presence state. It is mutated only by the realtime
// layer (connect/disconnect and explicit presence updates).
type Status string

const (
	StatusActive  Status = "active"
	StatusAway    Status = "away"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// Valid reports whether s is one of the known presence states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusAway, StatusDND, StatusOffline:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the sanitized view of a user, safe to send to other clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips credential material from a user record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
}
