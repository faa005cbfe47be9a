package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// SQLiteStore implements the Store interface using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// ensures the schema exists. Parent directories are created if needed.
func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// _txlock=immediate makes write transactions take the write lock up
	// front, which is what lets ResolveConversation serialize concurrent
	// first-contact lookups. The busy timeout makes contending writers
	// wait for the lock instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", "file:"+path+"?_txlock=immediate&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: log.With(zap.String("component", "store")),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("SQLite store initialized", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pages (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			page_id      TEXT NOT NULL,
			page_name    TEXT NOT NULL,
			access_token TEXT NOT NULL,
			created_at   TEXT NOT NULL,

			UNIQUE(user_id, page_id)
		);

		CREATE INDEX IF NOT EXISTS idx_pages_user ON pages(user_id);

		CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			page_id         TEXT NOT NULL,
			customer_id     TEXT NOT NULL,
			customer_name   TEXT NOT NULL,
			customer_email  TEXT,
			last_message_at TEXT NOT NULL,
			created_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_lookup
			ON conversations(page_id, customer_id, last_message_at);

		CREATE TABLE IF NOT EXISTS messages (
			id               TEXT PRIMARY KEY,
			conversation_id  TEXT NOT NULL REFERENCES conversations(id),
			message_id       TEXT NOT NULL UNIQUE,
			sender_id        TEXT NOT NULL,
			sender_name      TEXT NOT NULL,
			message_text     TEXT NOT NULL,
			is_from_customer INTEGER NOT NULL DEFAULT 1,
			timestamp        TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// isConstraintViolation checks if the error is a SQLite constraint violation.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// CreateUser inserts a new user. Returns ErrDuplicateEmail if the email is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", zap.String("id", user.ID))
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	var createdAt string

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = ?
	`, email)
	return s.scanUser(row)
}

// GetUserByID retrieves a user by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = ?
	`, id)
	return s.scanUser(row)
}

// ConnectPage inserts a page connection for a user.
// Returns ErrPageConnected if the user already connected this page.
func (s *SQLiteStore) ConnectPage(ctx context.Context, page *model.Page) error {
	query := `
		INSERT INTO pages (id, user_id, page_id, page_name, access_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		page.ID,
		page.UserID,
		page.PageID,
		page.PageName,
		page.AccessToken,
		formatTime(page.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrPageConnected
		}
		return fmt.Errorf("inserting page: %w", err)
	}

	s.logger.Debug("connected page", zap.String("page_id", page.PageID), zap.String("user_id", page.UserID))
	return nil
}

// ListPages returns all pages connected by a user, oldest first.
func (s *SQLiteStore) ListPages(ctx context.Context, userID string) ([]*model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, page_id, page_name, access_token, created_at
		FROM pages
		WHERE user_id = ?
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []*model.Page
	for rows.Next() {
		var page model.Page
		var createdAt string

		if err := rows.Scan(&page.ID, &page.UserID, &page.PageID, &page.PageName, &page.AccessToken, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}

		page.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

// ListPageIDs returns the platform page ids connected by a user.
func (s *SQLiteStore) ListPageIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT page_id FROM pages WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying page ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning page id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeletePage removes a user's page connection by platform page id.
// Returns ErrNotFound if the user has no such connection.
func (s *SQLiteStore) DeletePage(ctx context.Context, userID, pageID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pages WHERE user_id = ? AND page_id = ?
	`, userID, pageID)
	if err != nil {
		return fmt.Errorf("deleting page: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("disconnected page", zap.String("page_id", pageID), zap.String("user_id", userID))
	return nil
}

func scanConversationColumns(scan func(dest ...any) error) (*model.Conversation, error) {
	var conv model.Conversation
	var email sql.NullString
	var lastMessageAt, createdAt string

	if err := scan(&conv.ID, &conv.PageID, &conv.CustomerID, &conv.CustomerName,
		&email, &lastMessageAt, &createdAt); err != nil {
		return nil, err
	}

	if email.Valid {
		conv.CustomerEmail = email.String
	}

	var err error
	conv.LastMessageAt, err = parseTime(lastMessageAt)
	if err != nil {
		return nil, fmt.Errorf("parsing last_message_at: %w", err)
	}
	conv.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}

// ResolveConversation finds the most recent conversation for the candidate's
// (page, customer) pair whose last activity is within the window ending at
// candidate.LastMessageAt, or inserts the candidate if none qualifies. The
// returned bool is true when a new conversation was created.
func (s *SQLiteStore) ResolveConversation(ctx context.Context, candidate *model.Conversation, window time.Duration) (*model.Conversation, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := formatTime(candidate.LastMessageAt.Add(-window))

	row := tx.QueryRowContext(ctx, `
		SELECT id, page_id, customer_id, customer_name, customer_email, last_message_at, created_at
		FROM conversations
		WHERE page_id = ? AND customer_id = ? AND last_message_at > ?
		ORDER BY last_message_at DESC
		LIMIT 1
	`, candidate.PageID, candidate.CustomerID, cutoff)

	conv, err := scanConversationColumns(row.Scan)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		return conv, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("querying conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, page_id, customer_id, customer_name, customer_email, last_message_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		candidate.ID,
		candidate.PageID,
		candidate.CustomerID,
		candidate.CustomerName,
		nullString(candidate.CustomerEmail),
		formatTime(candidate.LastMessageAt),
		formatTime(candidate.CreatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("created conversation",
		zap.String("id", candidate.ID),
		zap.String("page_id", candidate.PageID),
		zap.String("customer_id", candidate.CustomerID))
	return candidate, true, nil
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetConversation retrieves a conversation by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, customer_id, customer_name, customer_email, last_message_at, created_at
		FROM conversations
		WHERE id = ?
	`, id)

	conv, err := scanConversationColumns(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns conversations for the given platform page ids,
// most recent activity first, with the last message text and message count
// computed per row. An empty id list yields an empty result.
func (s *SQLiteStore) ListConversations(ctx context.Context, pageIDs []string) ([]*model.Conversation, error) {
	if len(pageIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(pageIDs)), ",")
	args := make([]any, len(pageIDs))
	for i, id := range pageIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.page_id, c.customer_id, c.customer_name, c.customer_email,
		       c.last_message_at, c.created_at,
		       COALESCE((SELECT message_text FROM messages
		                 WHERE conversation_id = c.id
		                 ORDER BY timestamp DESC, id DESC LIMIT 1), ''),
		       (SELECT COUNT(*) FROM messages WHERE conversation_id = c.id)
		FROM conversations c
		WHERE c.page_id IN (%s)
		ORDER BY c.last_message_at DESC
	`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		var conv model.Conversation
		var email sql.NullString
		var lastMessageAt, createdAt string

		if err := rows.Scan(&conv.ID, &conv.PageID, &conv.CustomerID, &conv.CustomerName,
			&email, &lastMessageAt, &createdAt, &conv.LastMessage, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}

		if email.Valid {
			conv.CustomerEmail = email.String
		}
		conv.LastMessageAt, err = parseTime(lastMessageAt)
		if err != nil {
			return nil, fmt.Errorf("parsing last_message_at: %w", err)
		}
		conv.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		convs = append(convs, &conv)
	}

	return convs, rows.Err()
}

// TouchConversation advances a conversation's last activity timestamp.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = ? WHERE id = ?
	`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMessage persists a message. A message whose platform message id was
// already persisted is not inserted again; ErrDuplicateMessage is returned
// so callers can treat the redelivery as a no-op.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, message_id, sender_id, sender_name, message_text, is_from_customer, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.MessageID,
		msg.SenderID,
		msg.SenderName,
		msg.Text,
		msg.IsFromCustomer,
		formatTime(msg.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDuplicateMessage
	}

	s.logger.Debug("inserted message",
		zap.String("id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
		zap.Bool("from_customer", msg.IsFromCustomer))
	return nil
}

// ListMessages returns all messages in a conversation in chronological
// order. Ties on the second-resolution timestamp fall back to id order;
// ids are UUIDv7 so that matches insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, message_id, sender_id, sender_name, message_text, is_from_customer, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var msg model.Message
		var timestamp string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.MessageID, &msg.SenderID,
			&msg.SenderName, &msg.Text, &msg.IsFromCustomer, &timestamp); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}

		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
