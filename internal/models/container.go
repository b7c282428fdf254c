package models

import (
	"sort"
	"strings"
	"time"
)

// Kind discriminates the membership container variants.
type Kind string

const (
	KindChannel   Kind = "channel"
	KindWorkspace Kind = "workspace"
	KindDM        Kind = "dm"
	KindGroupDM   Kind = "group_dm"
)

func (k Kind) Valid() bool {
	switch k {
	case KindChannel, KindWorkspace, KindDM, KindGroupDM:
		return true
	}
	return false
}

// HasRoles reports whether containers of this kind carry per-member roles.
// Direct-message threads have no roles; every participant has equal standing.
func (k Kind) HasRoles() bool {
	return k == KindChannel || k == KindWorkspace
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Role is a member's standing inside a channel or workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	// RoleNone marks membership in role-less containers (DM threads).
	RoleNone Role = ""
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type Member struct {
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// Container is the generalized membership unit behind channels, workspaces
// and direct-message threads.
type Container struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name,omitempty"`
	Slug       string     `json:"slug,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	OwnerID    string     `json:"owner_id,omitempty"`
	Members    []Member   `json:"members"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Member returns the membership record for userID, or nil.
func (c *Container) Member(userID string) *Member {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return &c.Members[i]
		}
	}
	return nil
}

func (c *Container) IsMember(userID string) bool {
	return c.Member(userID) != nil
}

// RemoveMemberRecord drops userID from the member list. Returns false if the
// user was not a member.
func (c *Container) RemoveMemberRecord(userID string) bool {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Container) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.UserID
	}
	return ids
}

// DirectPairKey is the canonical key for a 1:1 direct thread: the two
// participant ids sorted and joined, so either ordering maps to the same
// thread.
func DirectPairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

type CreateContainerRequest struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
}

type CreateDirectThreadRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role,omitempty"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}
