package models

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

type Message struct {
	ID          string       `json:"id"`
	ContainerID string       `json:"container_id"`
	UserID      string       `json:"user_id"`
	Content     string       `json:"content"`
	Type        MessageType  `json:"type"`
	Files       []FileRecord `json:"files,omitempty"`
	Sender      *PublicUser  `json:"sender,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
}

// WSMessage is the envelope for every realtime event, both directions.
// Which fields are populated depends on Event.
type WSMessage struct {
	Event        string        `json:"event"`
	ContainerID  string        `json:"container_id,omitempty"`
	Content      string        `json:"content,omitempty"`
	FileIDs      []string      `json:"file_ids,omitempty"`
	Status       Status        `json:"status,omitempty"`
	UserID       string        `json:"user_id,omitempty"`
	Username     string        `json:"username,omitempty"`
	Message      *Message      `json:"message,omitempty"`
	Messages     []Message     `json:"messages,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	Error        string        `json:"error,omitempty"`
	Timestamp    int64         `json:"timestamp,omitempty"`
}

// Realtime event names. Client→server: room:join, room:leave, message:send,
// typing, presence:update. Server→client: the rest.
const (
	EventConnected       = "connected"
	EventRoomJoin        = "room:join"
	EventRoomLeave       = "room:leave"
	EventMessageSend     = "message:send"
	EventMessageNew      = "message:new"
	EventTyping          = "typing"
	EventPresenceUpdate  = "presence:update"
	EventPresenceChanged = "presence:changed"
	EventHistory         = "history"
	EventNotification    = "notification"
	EventError           = "error"
)

type EditMessageRequest struct {
	Content string `json:"content"`
}
