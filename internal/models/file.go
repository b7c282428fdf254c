package models

import "time"

// FileRecord represents an uploaded file. A file belongs to its uploader
// until it is attached to a message.
type FileRecord struct {
	ID         string    `json:"id"`
	UploaderID string    `json:"uploader_id"`
	MessageID  string    `json:"message_id,omitempty"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}
