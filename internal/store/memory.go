package store

import (
	"context"
	"sync"

	"teamchat-backend/internal/models"
)

// The in-memory backend. It is the default and the one the tests run
// against. All state is lost on restart, as are the connections that
// referenced it.

// NewMemoryStores returns a full Stores bundle backed by in-memory maps.
func NewMemoryStores() *Stores {
	return &Stores{
		Users:         NewMemoryUserStore(),
		Containers:    NewMemoryContainerStore(),
		Messages:      NewMemoryMessageStore(),
		Files:         NewMemoryFileStore(),
		Notifications: NewMemoryNotificationStore(),
	}
}

// --- users ---

type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]models.User
	byName map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[string]models.User),
		byName: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	s.byName[u.Username] = u.ID
	return nil
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *MemoryUserStore) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) List(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

// --- containers ---

type MemoryContainerStore struct {
	mu         sync.RWMutex
	containers map[string]models.Container
	bySlug     map[string]string // kind+"/"+slug -> id
	byPairKey  map[string]string // direct pair key -> id
}

func NewMemoryContainerStore() *MemoryContainerStore {
	return &MemoryContainerStore{
		containers: make(map[string]models.Container),
		bySlug:     make(map[string]string),
		byPairKey:  make(map[string]string),
	}
}

func copyContainer(c models.Container) models.Container {
	c.Members = append([]models.Member(nil), c.Members...)
	return c
}

func slugKey(kind models.Kind, slug string) string {
	return string(kind) + "/" + slug
}

func (s *MemoryContainerStore) Create(ctx context.Context, c *models.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[c.ID] = copyContainer(*c)
	if c.Slug != "" {
		s.bySlug[slugKey(c.Kind, c.Slug)] = c.ID
	}
	if c.Kind == models.KindDM && len(c.Members) == 2 {
		s.byPairKey[models.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID)] = c.ID
	}
	return nil
}

func (s *MemoryContainerStore) FindByID(ctx context.Context, id string) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyContainer(c)
	return &out, nil
}

func (s *MemoryContainerStore) FindBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slugKey(kind, slug)]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyContainer(s.containers[id])
	return &c, nil
}

func (s *MemoryContainerStore) FindDirectByPairKey(ctx context.Context, pairKey string) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPairKey[pairKey]
	if !ok {
		return nil, ErrNotFound
	}
	c := copyContainer(s.containers[id])
	return &c, nil
}

func (s *MemoryContainerStore) Update(ctx context.Context, c *models.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.containers[c.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Slug != "" && old.Slug != c.Slug {
		delete(s.bySlug, slugKey(old.Kind, old.Slug))
	}
	if c.Slug != "" {
		s.bySlug[slugKey(c.Kind, c.Slug)] = c.ID
	}
	s.containers[c.ID] = copyContainer(*c)
	return nil
}

func (s *MemoryContainerStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return ErrNotFound
	}
	if c.Slug != "" {
		delete(s.bySlug, slugKey(c.Kind, c.Slug))
	}
	if c.Kind == models.KindDM && len(c.Members) == 2 {
		delete(s.byPairKey, models.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID))
	}
	delete(s.containers, id)
	return nil
}

func (s *MemoryContainerStore) ListVisibleTo(ctx context.Context, userID string) ([]models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Container
	for _, c := range s.containers {
		if c.Visibility == models.VisibilityPublic || c.IsMember(userID) {
			out = append(out, copyContainer(c))
		}
	}
	return out, nil
}

// --- messages ---

type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]models.Message
	order    map[string][]string // containerID -> message ids, insertion order
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		messages: make(map[string]models.Message),
		order:    make(map[string][]string),
	}
}

func (s *MemoryMessageStore) Append(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ID] = *m
	s.order[m.ContainerID] = append(s.order[m.ContainerID], m.ID)
	return nil
}

func (s *MemoryMessageStore) Page(ctx context.Context, containerID string, limit int, beforeID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.order[containerID]
	end := len(order)
	if beforeID != "" {
		end = 0
		for i, id := range order {
			if id == beforeID {
				end = i
				break
			}
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]models.Message, 0, end-start)
	for _, id := range order[start:end] {
		out = append(out, s.messages[id])
	}
	return out, nil
}

func (s *MemoryMessageStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryMessageStore) Update(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		return ErrNotFound
	}
	s.messages[m.ID] = *m
	return nil
}

// Delete hard-removes the record and its slot in the container's ordered
// index.
func (s *MemoryMessageStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	order := s.order[m.ContainerID]
	for i, mid := range order {
		if mid == id {
			s.order[m.ContainerID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// --- files ---

type MemoryFileStore struct {
	mu    sync.RWMutex
	files map[string]models.FileRecord
}

func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{files: make(map[string]models.FileRecord)}
}

func (s *MemoryFileStore) Create(ctx context.Context, f *models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.ID] = *f
	return nil
}

func (s *MemoryFileStore) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (s *MemoryFileStore) AttachToMessage(ctx context.Context, fileID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return ErrNotFound
	}
	f.MessageID = messageID
	s.files[fileID] = f
	return nil
}

func (s *MemoryFileStore) ListForMessage(ctx context.Context, messageID string) ([]models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FileRecord
	for _, f := range s.files {
		if f.MessageID == messageID {
			out = append(out, f)
		}
	}
	return out, nil
}

// --- notifications ---

type MemoryNotificationStore struct {
	mu            sync.RWMutex
	notifications map[string]models.Notification
	order         []string
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{notifications: make(map[string]models.Notification)}
}

func (s *MemoryNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = *n
	s.order = append(s.order, n.ID)
	return nil
}

func (s *MemoryNotificationStore) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, id := range s.order {
		if n, ok := s.notifications[id]; ok && n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}
