package store

import (
	"context"
	"testing"
	"time"

	"teamchat-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContainerStore_DirectPairIndex(t *testing.T) {
	t.Parallel()
	s := NewMemoryContainerStore()
	ctx := context.Background()

	dm := &models.Container{
		ID:   "dm-1",
		Kind: models.KindDM,
		Members: []models.Member{
			{UserID: "u2"},
			{UserID: "u1"},
		},
	}
	require.NoError(t, s.Create(ctx, dm))

	// Either ordering of the pair resolves to the same thread.
	found, err := s.FindDirectByPairKey(ctx, models.DirectPairKey("u1", "u2"))
	require.NoError(t, err)
	assert.Equal(t, "dm-1", found.ID)
	found, err = s.FindDirectByPairKey(ctx, models.DirectPairKey("u2", "u1"))
	require.NoError(t, err)
	assert.Equal(t, "dm-1", found.ID)

	require.NoError(t, s.Delete(ctx, "dm-1"))
	_, err = s.FindDirectByPairKey(ctx, models.DirectPairKey("u1", "u2"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryContainerStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewMemoryContainerStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &models.Container{
		ID:      "c1",
		Kind:    models.KindChannel,
		Members: []models.Member{{UserID: "u1", Role: models.RoleOwner}},
	}))

	got, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	got.Members[0].Role = models.RoleMember

	again, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, again.Members[0].Role, "caller mutations must not leak into the store")
}

func TestMemoryMessageStore_OrderIsInsertionNotTimestamp(t *testing.T) {
	t.Parallel()
	s := NewMemoryMessageStore()
	ctx := context.Background()

	now := time.Now()
	// Second message carries an older timestamp (clock skew); order must
	// still follow insertion.
	require.NoError(t, s.Append(ctx, &models.Message{ID: "m1", ContainerID: "c1", CreatedAt: now}))
	require.NoError(t, s.Append(ctx, &models.Message{ID: "m2", ContainerID: "c1", CreatedAt: now.Add(-time.Hour)}))

	page, err := s.Page(ctx, "c1", 10, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].ID)
	assert.Equal(t, "m2", page[1].ID)
}

func TestMemoryMessageStore_DeleteCompactsIndex(t *testing.T) {
	t.Parallel()
	s := NewMemoryMessageStore()
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.Append(ctx, &models.Message{ID: id, ContainerID: "c1"}))
	}
	require.NoError(t, s.Delete(ctx, "m2"))

	page, err := s.Page(ctx, "c1", 10, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].ID)
	assert.Equal(t, "m3", page[1].ID)

	// Paging before a surviving message skips the deleted slot cleanly.
	page, err = s.Page(ctx, "c1", 10, "m3")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].ID)
}
