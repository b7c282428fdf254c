package store

import (
	"context"
	"errors"

	"teamchat-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres-backed implementations of the store interfaces, selected with
// STORE_BACKEND=postgres. Message order relies on a BIGSERIAL seq column so
// paging never compares timestamps.

// NewPostgresStores returns a Stores bundle backed by the given pool.
func NewPostgresStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Users:         &PostgresUserStore{pool: pool},
		Containers:    &PostgresContainerStore{pool: pool},
		Messages:      &PostgresMessageStore{pool: pool},
		Files:         &PostgresFileStore{pool: pool},
		Notifications: &PostgresNotificationStore{pool: pool},
	}
}

func wrapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// --- users ---

type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresUserStore) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.Status, u.CreatedAt)
	return err
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	query := `SELECT id, username, password_hash, status, created_at FROM users WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &u, nil
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	query := `SELECT id, username, password_hash, status, created_at FROM users WHERE username = $1`
	err := s.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &u, nil
}

func (s *PostgresUserStore) Update(ctx context.Context, u *models.User) error {
	query := `UPDATE users SET username = $2, password_hash = $3, status = $4 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT id, username, password_hash, status, created_at FROM users ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- containers ---

type PostgresContainerStore struct {
	pool *pgxpool.Pool
}

func containerPairKey(c *models.Container) any {
	if c.Kind == models.KindDM && len(c.Members) == 2 {
		return models.DirectPairKey(c.Members[0].UserID, c.Members[1].UserID)
	}
	return nil
}

func (s *PostgresContainerStore) Create(ctx context.Context, c *models.Container) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO containers (id, kind, name, slug, visibility, owner_id, pair_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.Exec(ctx, query, c.ID, c.Kind, c.Name, c.Slug, c.Visibility, c.OwnerID, containerPairKey(c), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	for _, m := range c.Members {
		_, err = tx.Exec(ctx,
			`INSERT INTO container_members (container_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			c.ID, m.UserID, m.Role, m.JoinedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresContainerStore) scanContainer(ctx context.Context, query string, args ...any) (*models.Container, error) {
	var c models.Container
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Kind, &c.Name, &c.Slug, &c.Visibility, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	if err := s.loadMembers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresContainerStore) loadMembers(ctx context.Context, c *models.Container) error {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, role, joined_at FROM container_members WHERE container_id = $1 ORDER BY joined_at`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return err
		}
		c.Members = append(c.Members, m)
	}
	return rows.Err()
}

const containerColumns = `id, kind, name, slug, visibility, owner_id, created_at, updated_at`

func (s *PostgresContainerStore) FindByID(ctx context.Context, id string) (*models.Container, error) {
	return s.scanContainer(ctx, `SELECT `+containerColumns+` FROM containers WHERE id = $1`, id)
}

func (s *PostgresContainerStore) FindBySlug(ctx context.Context, kind models.Kind, slug string) (*models.Container, error) {
	return s.scanContainer(ctx, `SELECT `+containerColumns+` FROM containers WHERE kind = $1 AND slug = $2`, kind, slug)
}

func (s *PostgresContainerStore) FindDirectByPairKey(ctx context.Context, pairKey string) (*models.Container, error) {
	return s.scanContainer(ctx, `SELECT `+containerColumns+` FROM containers WHERE pair_key = $1`, pairKey)
}

// Update rewrites the container row and its full member list. Membership
// lists are small, so replace-all keeps the store oblivious to which member
// changed.
func (s *PostgresContainerStore) Update(ctx context.Context, c *models.Container) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `UPDATE containers SET name = $2, slug = $3, visibility = $4, owner_id = $5, pair_key = $6, updated_at = $7 WHERE id = $1`
	tag, err := tx.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Visibility, c.OwnerID, containerPairKey(c), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM container_members WHERE container_id = $1`, c.ID); err != nil {
		return err
	}
	for _, m := range c.Members {
		_, err = tx.Exec(ctx,
			`INSERT INTO container_members (container_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			c.ID, m.UserID, m.Role, m.JoinedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresContainerStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM containers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresContainerStore) ListVisibleTo(ctx context.Context, userID string) ([]models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers c
		WHERE c.visibility = 'public'
		OR EXISTS (SELECT 1 FROM container_members m WHERE m.container_id = c.id AND m.user_id = $1)
		ORDER BY c.created_at`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Container
	for rows.Next() {
		var c models.Container
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name, &c.Slug, &c.Visibility, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadMembers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- messages ---

type PostgresMessageStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresMessageStore) Append(ctx context.Context, m *models.Message) error {
	query := `INSERT INTO messages (id, container_id, user_id, content, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query, m.ID, m.ContainerID, m.UserID, m.Content, m.Type, m.CreatedAt, m.UpdatedAt)
	return err
}

func (s *PostgresMessageStore) Page(ctx context.Context, containerID string, limit int, beforeID string) ([]models.Message, error) {
	var rows pgx.Rows
	var err error
	if beforeID == "" {
		query := `SELECT id, container_id, user_id, content, type, created_at, updated_at, edited_at
			FROM messages WHERE container_id = $1 ORDER BY seq DESC LIMIT $2`
		rows, err = s.pool.Query(ctx, query, containerID, limit)
	} else {
		query := `SELECT id, container_id, user_id, content, type, created_at, updated_at, edited_at
			FROM messages WHERE container_id = $1
			AND seq < (SELECT seq FROM messages WHERE id = $2)
			ORDER BY seq DESC LIMIT $3`
		rows, err = s.pool.Query(ctx, query, containerID, beforeID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ContainerID, &m.UserID, &m.Content, &m.Type, &m.CreatedAt, &m.UpdatedAt, &m.EditedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresMessageStore) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	query := `SELECT id, container_id, user_id, content, type, created_at, updated_at, edited_at FROM messages WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.ContainerID, &m.UserID, &m.Content, &m.Type, &m.CreatedAt, &m.UpdatedAt, &m.EditedAt)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &m, nil
}

func (s *PostgresMessageStore) Update(ctx context.Context, m *models.Message) error {
	query := `UPDATE messages SET content = $2, updated_at = $3, edited_at = $4 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, m.ID, m.Content, m.UpdatedAt, m.EditedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresMessageStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- files ---

type PostgresFileStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresFileStore) Create(ctx context.Context, f *models.FileRecord) error {
	query := `INSERT INTO files (id, uploader_id, message_id, filename, url, size, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query, f.ID, f.UploaderID, f.MessageID, f.Filename, f.URL, f.Size, f.CreatedAt)
	return err
}

func (s *PostgresFileStore) FindByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var f models.FileRecord
	var messageID *string
	query := `SELECT id, uploader_id, message_id, filename, url, size, created_at FROM files WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, id).Scan(&f.ID, &f.UploaderID, &messageID, &f.Filename, &f.URL, &f.Size, &f.CreatedAt)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	if messageID != nil {
		f.MessageID = *messageID
	}
	return &f, nil
}

func (s *PostgresFileStore) AttachToMessage(ctx context.Context, fileID, messageID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE files SET message_id = $2 WHERE id = $1`, fileID, messageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresFileStore) ListForMessage(ctx context.Context, messageID string) ([]models.FileRecord, error) {
	query := `SELECT id, uploader_id, message_id, filename, url, size, created_at FROM files WHERE message_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FileRecord
	for rows.Next() {
		var f models.FileRecord
		var msgID *string
		if err := rows.Scan(&f.ID, &f.UploaderID, &msgID, &f.Filename, &f.URL, &f.Size, &f.CreatedAt); err != nil {
			return nil, err
		}
		if msgID != nil {
			f.MessageID = *msgID
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- notifications ---

type PostgresNotificationStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (id, user_id, type, title, body, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Body, n.Data, n.Read, n.CreatedAt)
	return err
}

func (s *PostgresNotificationStore) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	query := `SELECT id, user_id, type, title, body, data, read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
