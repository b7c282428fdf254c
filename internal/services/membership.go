package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store"

	"github.com/google/uuid"
)

// MembershipService is the state machine behind channel, workspace and
// direct-thread membership. Every mutation runs inside the container's
// critical section so the precondition checks and the write are atomic even
// when handlers interleave.
type MembershipService struct {
	containers store.ContainerStore
	users      store.UserStore
	locks      *store.KeyedMutex
}

func NewMembershipService(containers store.ContainerStore, users store.UserStore, locks *store.KeyedMutex) *MembershipService {
	return &MembershipService{containers: containers, users: users, locks: locks}
}

// Lock exposes the per-container critical section to the message-send path,
// which shares it with the membership mutations.
func (s *MembershipService) Lock(containerID string) func() {
	return s.locks.Lock(containerID)
}

func slugify(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(name)), "-"))
}

func (s *MembershipService) load(ctx context.Context, containerID string) (*models.Container, error) {
	c, err := s.containers.FindByID(ctx, containerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
		}
		return nil, err
	}
	return c, nil
}

func (s *MembershipService) createRoled(ctx context.Context, kind models.Kind, name string, visibility models.Visibility, creatorID string) (*models.Container, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !visibility.Valid() {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidation, visibility)
	}
	if _, err := s.users.FindByID(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, creatorID)
	}

	slug := slugify(name)
	if _, err := s.containers.FindBySlug(ctx, kind, slug); err == nil {
		return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, kind, name)
	}

	now := time.Now()
	c := &models.Container{
		ID:         uuid.New().String(),
		Kind:       kind,
		Name:       name,
		Slug:       slug,
		Visibility: visibility,
		OwnerID:    creatorID,
		Members: []models.Member{
			{UserID: creatorID, Role: models.RoleOwner, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.containers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateChannel creates a channel with the creator as its sole owner.
func (s *MembershipService) CreateChannel(ctx context.Context, name string, visibility models.Visibility, creatorID string) (*models.Container, error) {
	return s.createRoled(ctx, models.KindChannel, name, visibility, creatorID)
}

// CreateWorkspace creates a workspace with the creator as its sole owner.
func (s *MembershipService) CreateWorkspace(ctx context.Context, name string, visibility models.Visibility, creatorID string) (*models.Container, error) {
	return s.createRoled(ctx, models.KindWorkspace, name, visibility, creatorID)
}

// AddMember adds userID to a container. Ownership is never granted here;
// transferring ownership is the only path that assigns the owner role.
func (s *MembershipService) AddMember(ctx context.Context, containerID, userID, actingUserID string, role models.Role) (*models.Member, error) {
	unlock := s.locks.Lock(containerID)
	defer unlock()

	c, err := s.load(ctx, containerID)
	if err != nil {
		return nil, err
	}

	if c.Kind == models.KindDM {
		return nil, fmt.Errorf("%w: a 1:1 direct thread cannot gain members", ErrInvalidOperation)
	}

	// Private containers (DM threads included) never accept members from
	// outsiders.
	if c.Visibility != models.VisibilityPublic && !c.IsMember(actingUserID) {
		return nil, fmt.Errorf("%w: only members may add to a private %s", ErrPermissionDenied, c.Kind)
	}

	if role == models.RoleOwner {
		return nil, fmt.Errorf("%w: ownership cannot be granted by adding a member", ErrInvalidOperation)
	}
	if c.Kind.HasRoles() {
		if role == models.RoleNone {
			role = models.RoleMember
		}
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
		}
	} else {
		role = models.RoleNone
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if c.IsMember(userID) {
		return nil, fmt.Errorf("%w: already a member", ErrConflict)
	}

	member := models.Member{UserID: userID, Role: role, JoinedAt: time.Now()}
	c.Members = append(c.Members, member)
	c.UpdatedAt = time.Now()
	if err := s.containers.Update(ctx, c); err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember removes userID from a container. Self-removal is always
// allowed except for the owner, who must transfer ownership first. Removing
// someone else takes owner or admin standing, and the owner can never be
// removed by anyone.
func (s *MembershipService) RemoveMember(ctx context.Context, containerID, userID, actingUserID string) (bool, error) {
	unlock := s.locks.Lock(containerID)
	defer unlock()

	c, err := s.load(ctx, containerID)
	if err != nil {
		return false, err
	}

	target := c.Member(userID)

	if userID == actingUserID {
		if target == nil {
			return false, fmt.Errorf("%w: not a member", ErrNotFound)
		}
		if c.Kind == models.KindDM {
			return false, fmt.Errorf("%w: cannot leave a 1:1 direct thread", ErrInvalidOperation)
		}
		if target.Role == models.RoleOwner {
			return false, fmt.Errorf("%w: owner must transfer ownership before leaving", ErrInvalidOperation)
		}
	} else {
		actor := c.Member(actingUserID)
		if actor == nil || (actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin) {
			return false, fmt.Errorf("%w: removing members requires owner or admin", ErrPermissionDenied)
		}
		if target == nil {
			return false, fmt.Errorf("%w: target is not a member", ErrInvalidOperation)
		}
		if target.Role == models.RoleOwner {
			return false, fmt.Errorf("%w: cannot remove the owner", ErrInvalidOperation)
		}
	}

	c.RemoveMemberRecord(userID)
	c.UpdatedAt = time.Now()
	if err := s.containers.Update(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateRole changes a member's role. Only the owner may call it, and it
// never touches ownership in either direction.
func (s *MembershipService) UpdateRole(ctx context.Context, containerID, userID string, newRole models.Role, actingUserID string) error {
	unlock := s.locks.Lock(containerID)
	defer unlock()

	c, err := s.load(ctx, containerID)
	if err != nil {
		return err
	}
	if !c.Kind.HasRoles() {
		return fmt.Errorf("%w: %s members have no roles", ErrInvalidOperation, c.Kind)
	}

	actor := c.Member(actingUserID)
	if actor == nil || actor.Role != models.RoleOwner {
		return fmt.Errorf("%w: only the owner may change roles", ErrPermissionDenied)
	}
	if newRole == models.RoleOwner {
		return fmt.Errorf("%w: ownership changes go through transfer", ErrInvalidOperation)
	}
	if !newRole.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, newRole)
	}

	target := c.Member(userID)
	if target == nil {
		return fmt.Errorf("%w: target is not a member", ErrNotFound)
	}
	if target.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner's role changes only through transfer", ErrInvalidOperation)
	}

	target.Role = newRole
	c.UpdatedAt = time.Now()
	return s.containers.Update(ctx, c)
}

// TransferOwnership atomically demotes the current owner to admin and
// promotes an existing member to owner. This is the only path by which
// ownership changes.
func (s *MembershipService) TransferOwnership(ctx context.Context, containerID, newOwnerID, currentOwnerID string) error {
	unlock := s.locks.Lock(containerID)
	defer unlock()

	c, err := s.load(ctx, containerID)
	if err != nil {
		return err
	}
	if !c.Kind.HasRoles() {
		return fmt.Errorf("%w: %s threads have no owner", ErrInvalidOperation, c.Kind)
	}

	current := c.Member(currentOwnerID)
	if current == nil || current.Role != models.RoleOwner {
		return fmt.Errorf("%w: only the current owner may transfer ownership", ErrPermissionDenied)
	}
	if newOwnerID == currentOwnerID {
		return fmt.Errorf("%w: already the owner", ErrInvalidOperation)
	}
	next := c.Member(newOwnerID)
	if next == nil {
		return fmt.Errorf("%w: the new owner must already be a member", ErrInvalidOperation)
	}

	current.Role = models.RoleAdmin
	next.Role = models.RoleOwner
	c.OwnerID = newOwnerID
	c.UpdatedAt = time.Now()
	return s.containers.Update(ctx, c)
}

// IsAuthorizedViewer reports whether userID may see the container's content:
// public containers are visible to everyone, private ones to members only.
func (s *MembershipService) IsAuthorizedViewer(ctx context.Context, containerID, userID string) (bool, error) {
	c, err := s.load(ctx, containerID)
	if err != nil {
		return false, err
	}
	return c.Visibility == models.VisibilityPublic || c.IsMember(userID), nil
}

// IsMember reports whether userID is a participant of the container.
func (s *MembershipService) IsMember(ctx context.Context, containerID, userID string) (bool, error) {
	c, err := s.load(ctx, containerID)
	if err != nil {
		return false, err
	}
	return c.IsMember(userID), nil
}

// JoinPublic is the self-service join path for public containers.
func (s *MembershipService) JoinPublic(ctx context.Context, containerID, userID string) (*models.Member, error) {
	unlock := s.locks.Lock(containerID)
	defer unlock()

	c, err := s.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if c.Visibility != models.VisibilityPublic {
		return nil, fmt.Errorf("%w: cannot self-join a private %s", ErrInvalidOperation, c.Kind)
	}
	if c.IsMember(userID) {
		return nil, fmt.Errorf("%w: already a member", ErrConflict)
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	member := models.Member{UserID: userID, Role: models.RoleMember, JoinedAt: time.Now()}
	c.Members = append(c.Members, member)
	c.UpdatedAt = time.Now()
	if err := s.containers.Update(ctx, c); err != nil {
		return nil, err
	}
	return &member, nil
}

// FindOrCreateDirectThread resolves a direct-message container. For exactly
// two distinct participants it returns the one canonical thread for that
// unordered pair, creating it on first use; more participants always start a
// fresh group thread.
func (s *MembershipService) FindOrCreateDirectThread(ctx context.Context, participantIDs []string, creatorID string) (*models.Container, bool, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(participantIDs)+1)
	for _, id := range append([]string{creatorID}, participantIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, false, fmt.Errorf("%w: a direct thread needs at least 2 distinct participants", ErrInvalidOperation)
	}

	for _, id := range ids {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return nil, false, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
	}

	now := time.Now()
	if len(ids) == 2 {
		pairKey := models.DirectPairKey(ids[0], ids[1])

		// The pair key serializes concurrent find-or-create calls for the
		// same two users, so exactly one thread ever exists per pair.
		unlock := s.locks.Lock("dm:" + pairKey)
		defer unlock()

		if existing, err := s.containers.FindDirectByPairKey(ctx, pairKey); err == nil {
			return existing, false, nil
		}

		c := &models.Container{
			ID:   uuid.New().String(),
			Kind: models.KindDM,
			Members: []models.Member{
				{UserID: ids[0], JoinedAt: now},
				{UserID: ids[1], JoinedAt: now},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.containers.Create(ctx, c); err != nil {
			return nil, false, err
		}
		return c, true, nil
	}

	members := make([]models.Member, len(ids))
	for i, id := range ids {
		members[i] = models.Member{UserID: id, JoinedAt: now}
	}
	c := &models.Container{
		ID:        uuid.New().String(),
		Kind:      models.KindGroupDM,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.containers.Create(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Get returns the container if userID is an authorized viewer. Private
// containers stay indistinguishable from missing ones for outsiders.
func (s *MembershipService) Get(ctx context.Context, containerID, userID string) (*models.Container, error) {
	c, err := s.load(ctx, containerID)
	if err != nil {
		return nil, err
	}
	if c.Visibility != models.VisibilityPublic && !c.IsMember(userID) {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, containerID)
	}
	return c, nil
}

// ListVisible returns every container the user may see.
func (s *MembershipService) ListVisible(ctx context.Context, userID string) ([]models.Container, error) {
	return s.containers.ListVisibleTo(ctx, userID)
}
