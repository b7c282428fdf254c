package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"
	"teamchat-backend/internal/utils"

	"github.com/google/uuid"
)

// ChatService owns message creation, history paging and author-only edits.
// The send path shares the membership engine's per-container critical
// section, so a message is never accepted into a container concurrently with
// a membership change that would have rejected it.
type ChatService struct {
	membership    *MembershipService
	containers    store.ContainerStore
	messages      store.MessageStore
	files         store.FileStore
	notifications store.NotificationStore
	users         store.UserStore
}

func NewChatService(membership *MembershipService, stores *store.Stores) *ChatService {
	return &ChatService{
		membership:    membership,
		containers:    stores.Containers,
		messages:      stores.Messages,
		files:         stores.Files,
		notifications: stores.Notifications,
		users:         stores.Users,
	}
}

// SendMessage validates, persists and enriches a message. Posting requires
// membership; viewing a public channel is not enough. Files whose uploader
// is not the sender are skipped, not fatal, but a message must end up with
// content or at least one attachable file.
//
// deliver, if non-nil, runs while the container's critical section is still
// held. Broadcasting inside the lock keeps fan-out order identical to the
// order the store accepted the messages when senders race.
func (s *ChatService) SendMessage(ctx context.Context, containerID, senderID, content string, fileIDs []string, deliver func(*models.Message, *models.Container)) (*models.Message, *models.Container, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(fileIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: message needs content or at least one file", ErrValidation)
	}

	unlock := s.membership.Lock(containerID)
	defer unlock()

	c, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
		}
		return nil, nil, err
	}
	if !c.IsMember(senderID) {
		if c.Visibility == models.VisibilityPublic {
			return nil, nil, fmt.Errorf("%w: posting requires membership", ErrPermissionDenied)
		}
		return nil, nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}

	var attach []*models.FileRecord
	for _, fileID := range fileIDs {
		f, err := s.files.FindByID(ctx, fileID)
		if err != nil {
			utils.LogError(err, "SendMessage file lookup")
			continue
		}
		if f.UploaderID != senderID {
			// Not the sender's file; skip silently.
			continue
		}
		attach = append(attach, f)
	}
	if content == "" && len(attach) == 0 {
		return nil, nil, fmt.Errorf("%w: none of the referenced files can be attached", ErrValidation)
	}

	now := time.Now()
	msg := &models.Message{
		ID:          uuid.New().String(),
		ContainerID: containerID,
		UserID:      senderID,
		Content:     content,
		Type:        models.MessageText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, nil, err
	}

	for _, f := range attach {
		if err := s.files.AttachToMessage(ctx, f.ID, msg.ID); err != nil {
			utils.LogError(err, "SendMessage file attach")
			continue
		}
		f.MessageID = msg.ID
		msg.Files = append(msg.Files, *f)
	}

	if sender, err := s.users.FindByID(ctx, senderID); err == nil {
		msg.Sender = sender.Public()
	}

	c.UpdatedAt = now
	if err := s.containers.Update(ctx, c); err != nil {
		utils.LogError(err, "SendMessage container touch")
	}

	if deliver != nil {
		deliver(msg, c)
	}
	return msg, c, nil
}

// NotifyDirectMessage records a notification for one recipient of a direct
// message. Failures here never fail the send.
func (s *ChatService) NotifyDirectMessage(ctx context.Context, recipientID string, msg *models.Message) *models.Notification {
	sender := msg.UserID
	if msg.Sender != nil {
		sender = msg.Sender.Username
	}
	n := &models.Notification{
		ID:     uuid.New().String(),
		UserID: recipientID,
		Type:   models.NotificationDirectMessage,
		Title:  fmt.Sprintf("New message from %s", sender),
		Body:   msg.Content,
		Data: map[string]string{
			"container_id": msg.ContainerID,
			"message_id":   msg.ID,
		},
		CreatedAt: time.Now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		utils.LogError(err, "NotifyDirectMessage")
		return nil
	}
	return n
}

// History pages a container's messages for an authorized viewer: up to limit
// messages strictly before beforeID (the newest ones when beforeID is
// empty), oldest first, enriched with sender profiles.
func (s *ChatService) History(ctx context.Context, containerID, userID string, limit int, beforeID string) ([]models.Message, error) {
	ok, err := s.membership.IsAuthorizedViewer(ctx, containerID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, err := s.messages.Page(ctx, containerID, limit, beforeID)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*models.PublicUser)
	for i := range messages {
		p, ok := profiles[messages[i].UserID]
		if !ok {
			if u, err := s.users.FindByID(ctx, messages[i].UserID); err == nil {
				p = u.Public()
			}
			profiles[messages[i].UserID] = p
		}
		messages[i].Sender = p

		attachments, err := s.files.ListForMessage(ctx, messages[i].ID)
		if err != nil {
			utils.LogError(err, "History file lookup")
			continue
		}
		messages[i].Files = attachments
	}
	return messages, nil
}

// EditMessage rewrites a message's content. Only the author may edit.
func (s *ChatService) EditMessage(ctx context.Context, messageID, editorID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return nil, err
	}
	if msg.UserID != editorID {
		return nil, fmt.Errorf("%w: only the author may edit", ErrPermissionDenied)
	}

	now := time.Now()
	msg.Content = content
	msg.UpdatedAt = now
	msg.EditedAt = &now
	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage hard-removes a message. Only the author may delete.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, actorID string) error {
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return err
	}
	if msg.UserID != actorID {
		return fmt.Errorf("%w: only the author may delete", ErrPermissionDenied)
	}
	return s.messages.Delete(ctx, messageID)
}
