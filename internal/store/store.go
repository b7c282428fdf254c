package store

import (
	"context"
	"errors"

	"teamchat-backend/internal/models"
)

// ErrNotFound is returned by every lookup that misses.
var ErrNotFound = errors.New("record not found")

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

type ContainerStore interface {
	Create(ctx context.Context, c *models.Container) error
	FindByID(ctx context.Context, id string) (*models.Container, error)
	FindBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Container, error)
	FindDirectByPairKey(ctx context.Context, pairKey string) (*models.Container, error)
	Update(ctx context.Context, c *models.Container) error
	Delete(ctx context.Context, id string) error
	ListVisibleTo(ctx context.Context, userID string) ([]models.Container, error)
}

// MessageStore keeps a strict per-container insertion order. Page windows are
// resolved against that order, never by timestamp comparison.
type MessageStore interface {
	Append(ctx context.Context, m *models.Message) error
	// Page returns up to limit messages of the container strictly before
	// beforeID (all of the newest when beforeID is empty), oldest first.
	Page(ctx context.Context, containerID string, limit int, beforeID string) ([]models.Message, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	Update(ctx context.Context, m *models.Message) error
	Delete(ctx context.Context, id string) error
}

type FileStore interface {
	Create(ctx context.Context, f *models.FileRecord) error
	FindByID(ctx context.Context, id string) (*models.FileRecord, error)
	AttachToMessage(ctx context.Context, fileID, messageID string) error
	ListForMessage(ctx context.Context, messageID string) ([]models.FileRecord, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Stores bundles every collaborator the services need, so wiring stays in one
// place and tests can swap in the in-memory set.
type Stores struct {
	Users         UserStore
	Containers    ContainerStore
	Messages      MessageStore
	Files         FileStore
	Notifications NotificationStore
}
