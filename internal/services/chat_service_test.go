package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(t *testing.T) (*ChatService, *MembershipService, *store.Stores) {
	t.Helper()
	stores := store.NewMemoryStores()
	membership := NewMembershipService(stores.Containers, stores.Users, store.NewKeyedMutex())
	return NewChatService(membership, stores), membership, stores
}

func seedFile(t *testing.T, stores *store.Stores, uploaderID string) *models.FileRecord {
	t.Helper()
	f := &models.FileRecord{
		ID:         uuid.New().String(),
		UploaderID: uploaderID,
		Filename:   "report.pdf",
		URL:        "/uploads/report.pdf",
		Size:       1024,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, stores.Files.Create(context.Background(), f))
	return f
}

func TestSendMessage_RoundTrip(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	msg, container, err := chat.SendMessage(ctx, ch.ID, author, "hello world", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, container.ID)
	assert.Equal(t, models.MessageText, msg.Type)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.Username)

	page, err := chat.History(ctx, ch.ID, author, 10, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "hello world", page[0].Content)
	assert.Equal(t, author, page[0].UserID)
	assert.Equal(t, ch.ID, page[0].ContainerID)
}

func TestSendMessage_EmptyContentRejectedBeforeAnyWrite(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	_, _, err = chat.SendMessage(ctx, ch.ID, author, "   ", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	page, err := stores.Messages.Page(ctx, ch.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page, "rejected sends must not reach the store")
}

func TestSendMessage_EmptyContentWithFileSucceeds(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)
	file := seedFile(t, stores, author)

	msg, _, err := chat.SendMessage(ctx, ch.ID, author, "", []string{file.ID}, nil)
	require.NoError(t, err)
	require.Len(t, msg.Files, 1)
	assert.Equal(t, file.Filename, msg.Files[0].Filename)
	assert.Equal(t, msg.ID, msg.Files[0].MessageID)

	stored, err := stores.Files.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, stored.MessageID)
}

func TestSendMessage_EmptyContentWithOnlyUnattachableFilesRejected(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	other := seedUser(t, stores, "mallory")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)
	theirs := seedFile(t, stores, other)

	_, _, err = chat.SendMessage(ctx, ch.ID, author, "", []string{theirs.ID, "missing"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	page, err := stores.Messages.Page(ctx, ch.ID, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page, "a message with no content and no attachments must not persist")
}

func TestSendMessage_ForeignFilesAreSkipped(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	other := seedUser(t, stores, "mallory")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	mine := seedFile(t, stores, author)
	theirs := seedFile(t, stores, other)

	msg, _, err := chat.SendMessage(ctx, ch.ID, author, "see attached", []string{theirs.ID, mine.ID, "missing"}, nil)
	require.NoError(t, err)
	require.Len(t, msg.Files, 1)
	assert.Equal(t, mine.ID, msg.Files[0].ID)
}

func TestSendMessage_PostingRequiresMembership(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	owner := seedUser(t, stores, "olivia")
	viewer := seedUser(t, stores, "victor")

	public, err := membership.CreateChannel(ctx, "town-square", models.VisibilityPublic, owner)
	require.NoError(t, err)
	private, err := membership.CreateChannel(ctx, "leads", models.VisibilityPrivate, owner)
	require.NoError(t, err)

	// Viewing a public channel does not imply posting rights.
	_, _, err = chat.SendMessage(ctx, public.ID, viewer, "hi", nil, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Private channels do not even confirm their existence.
	_, _, err = chat.SendMessage(ctx, private.ID, viewer, "hi", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory_PageWindow(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	var ids []string
	for i := 1; i <= 5; i++ {
		msg, _, err := chat.SendMessage(ctx, ch.ID, author, fmt.Sprintf("msg-%d", i), nil, nil)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	// Window strictly before the 4th message: messages 1..3, oldest first.
	page, err := chat.History(ctx, ch.ID, author, 5, ids[3])
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "msg-1", page[0].Content)
	assert.Equal(t, "msg-3", page[2].Content)

	// Limit bounds the window from the newest side.
	page, err = chat.History(ctx, ch.ID, author, 2, ids[3])
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "msg-2", page[0].Content)
	assert.Equal(t, "msg-3", page[1].Content)

	// No beforeID: the newest messages.
	page, err = chat.History(ctx, ch.ID, author, 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "msg-4", page[0].Content)
	assert.Equal(t, "msg-5", page[1].Content)
}

func TestHistory_RequiresViewer(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	owner := seedUser(t, stores, "olivia")
	outsider := seedUser(t, stores, "oscar")

	private, err := membership.CreateChannel(ctx, "leads", models.VisibilityPrivate, owner)
	require.NoError(t, err)

	_, err = chat.History(ctx, private.ID, outsider, 10, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditMessage(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	other := seedUser(t, stores, "bob")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	msg, _, err := chat.SendMessage(ctx, ch.ID, author, "draft", nil, nil)
	require.NoError(t, err)

	_, err = chat.EditMessage(ctx, msg.ID, other, "hijacked")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	edited, err := chat.EditMessage(ctx, msg.ID, author, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
	assert.NotNil(t, edited.EditedAt)

	_, err = chat.EditMessage(ctx, msg.ID, author, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteMessage_HardRemoval(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	author := seedUser(t, stores, "alice")
	other := seedUser(t, stores, "bob")
	ch, err := membership.CreateChannel(ctx, "general", models.VisibilityPublic, author)
	require.NoError(t, err)

	first, _, err := chat.SendMessage(ctx, ch.ID, author, "one", nil, nil)
	require.NoError(t, err)
	_, _, err = chat.SendMessage(ctx, ch.ID, author, "two", nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, chat.DeleteMessage(ctx, first.ID, other), ErrPermissionDenied)
	require.NoError(t, chat.DeleteMessage(ctx, first.ID, author))

	_, err = stores.Messages.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	page, err := chat.History(ctx, ch.ID, author, 10, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Content)

	assert.ErrorIs(t, chat.DeleteMessage(ctx, first.ID, author), ErrNotFound)
}

func TestNotifyDirectMessage(t *testing.T) {
	t.Parallel()
	chat, membership, stores := newTestChat(t)
	ctx := context.Background()

	u1 := seedUser(t, stores, "u1")
	u2 := seedUser(t, stores, "u2")

	dm, _, err := membership.FindOrCreateDirectThread(ctx, []string{u2}, u1)
	require.NoError(t, err)

	msg, _, err := chat.SendMessage(ctx, dm.ID, u1, "ping", nil, nil)
	require.NoError(t, err)

	n := chat.NotifyDirectMessage(ctx, u2, msg)
	require.NotNil(t, n)
	assert.Equal(t, u2, n.UserID)
	assert.Equal(t, models.NotificationDirectMessage, n.Type)
	assert.Equal(t, dm.ID, n.Data["container_id"])

	list, err := stores.Notifications.ListForUser(ctx, u2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
}
