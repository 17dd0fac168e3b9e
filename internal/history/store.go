// Package history is the local SQLite store for conversation threads and
// their messages. One view of all threads across every mode, newest
// first, with auto-generated titles and previews for the list display.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a single-writer SQLite database. WAL keeps reads cheap
// while a turn is appending; MaxOpenConns(1) serializes writers.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type Thread struct {
	ID                 string `json:"id"`
	Mode               string `json:"mode"`
	Title              string `json:"title"`
	Pinned             bool   `json:"pinned"`
	MessageCount       int    `json:"message_count"`
	LastMessagePreview string `json:"last_message_preview"`
	CreatedAtUnixMs    int64  `json:"created_at_unix_ms"`
	UpdatedAtUnixMs    int64  `json:"updated_at_unix_ms"`
}

type Message struct {
	ID              int64  `json:"id"`
	ThreadID        string `json:"thread_id"`
	Role            string `json:"role"`
	Text            string `json:"text"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
}

// CreateThread inserts a thread titled from its first user message. The
// message itself is stored by a following AppendMessage.
func (s *Store) CreateThread(ctx context.Context, id string, mode string, firstMessage string) (Thread, error) {
	if s == nil || s.db == nil {
		return Thread{}, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Thread{}, errors.New("missing thread id")
	}

	now := time.Now().UnixMilli()
	t := Thread{
		ID:                 id,
		Mode:               strings.TrimSpace(mode),
		Title:              GenerateTitle(firstMessage),
		LastMessagePreview: truncatePreview(firstMessage),
		CreatedAtUnixMs:    now,
		UpdatedAtUnixMs:    now,
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO threads(
  thread_id, mode, title, pinned, message_count, last_message_preview,
  created_at_unix_ms, updated_at_unix_ms
) VALUES(?, ?, ?, 0, 0, ?, ?, ?)
`, t.ID, t.Mode, t.Title, t.LastMessagePreview, t.CreatedAtUnixMs, t.UpdatedAtUnixMs)
	if err != nil {
		return Thread{}, err
	}
	return t, nil
}

// AppendMessage stores a message and refreshes the thread's metadata.
// Early long messages can upgrade a thin auto-title. Appends are two
// statements without a transaction; the single connection serializes
// them and a crash between the two loses only list metadata.
func (s *Store) AppendMessage(ctx context.Context, threadID string, role string, text string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	threadID = strings.TrimSpace(threadID)
	role = strings.TrimSpace(role)
	if threadID == "" || role == "" {
		return 0, errors.New("invalid message")
	}

	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO messages(thread_id, role, text_content, created_at_unix_ms)
VALUES(?, ?, ?, ?)
`, threadID, role, text, now)
	if err != nil {
		return 0, err
	}
	rowID, _ := res.LastInsertId()

	var title string
	var count int
	if err := s.db.QueryRowContext(ctx, `
SELECT title, message_count FROM threads WHERE thread_id = ?
`, threadID).Scan(&title, &count); err != nil {
		return 0, err
	}

	count++
	if len(text) > 20 && count <= 3 {
		if next := GenerateTitle(text); len(next) > len(title) {
			title = next
		}
	}

	if _, err := s.db.ExecContext(ctx, `
UPDATE threads
SET title = ?, message_count = ?, last_message_preview = ?, updated_at_unix_ms = ?
WHERE thread_id = ?
`, title, count, truncatePreview(text), now, threadID); err != nil {
		return 0, err
	}
	return rowID, nil
}

// Messages returns the whole thread in insertion order.
func (s *Store) Messages(ctx context.Context, threadID string) ([]Message, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, errors.New("missing thread id")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, thread_id, role, text_content, created_at_unix_ms
FROM messages
WHERE thread_id = ?
ORDER BY id ASC
`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Text, &m.CreatedAtUnixMs); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListThreads returns pinned threads first, then the rest by recency.
func (s *Store) ListThreads(ctx context.Context, limit int) ([]Thread, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT thread_id, mode, title, pinned, message_count, last_message_preview,
       created_at_unix_ms, updated_at_unix_ms
FROM threads
ORDER BY pinned DESC, updated_at_unix_ms DESC, thread_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanThreads(rows)
}

// GetThread returns nil when the thread does not exist.
func (s *Store) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, errors.New("missing thread id")
	}

	var t Thread
	var pinned int
	err := s.db.QueryRowContext(ctx, `
SELECT thread_id, mode, title, pinned, message_count, last_message_preview,
       created_at_unix_ms, updated_at_unix_ms
FROM threads
WHERE thread_id = ?
`, threadID).Scan(&t.ID, &t.Mode, &t.Title, &pinned, &t.MessageCount,
		&t.LastMessagePreview, &t.CreatedAtUnixMs, &t.UpdatedAtUnixMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Pinned = pinned != 0
	return &t, nil
}

// TogglePin flips a thread's pinned flag.
func (s *Store) TogglePin(ctx context.Context, threadID string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return errors.New("missing thread id")
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE threads SET pinned = 1 - pinned WHERE thread_id = ?
`, threadID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteThread removes a thread and its messages.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return errors.New("missing thread id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = ?`, threadID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// SearchThreads ranks threads by fuzzy match against titles, falling back
// to previews at lower weight, best match first.
func (s *Store) SearchThreads(ctx context.Context, query string) ([]Thread, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT thread_id, mode, title, pinned, message_count, last_message_preview,
       created_at_unix_ms, updated_at_unix_ms
FROM threads
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads, err := scanThreads(rows)
	if err != nil {
		return nil, err
	}

	type scored struct {
		t     Thread
		score float64
	}
	var results []scored
	for _, t := range threads {
		score := fuzzyScore(query, t.Title)
		if score == 0 {
			score = fuzzyScore(query, t.LastMessagePreview) * 0.7
		}
		if score > 0 {
			results = append(results, scored{t: t, score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].t.UpdatedAtUnixMs > results[j].t.UpdatedAtUnixMs
	})

	out := make([]Thread, 0, len(results))
	for _, r := range results {
		out = append(out, r.t)
	}
	return out, nil
}

func scanThreads(rows *sql.Rows) ([]Thread, error) {
	var out []Thread
	for rows.Next() {
		var t Thread
		var pinned int
		if err := rows.Scan(&t.ID, &t.Mode, &t.Title, &pinned, &t.MessageCount,
			&t.LastMessagePreview, &t.CreatedAtUnixMs, &t.UpdatedAtUnixMs); err != nil {
			return nil, err
		}
		t.Pinned = pinned != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func initSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("nil db")
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS threads (
  thread_id TEXT PRIMARY KEY,
  mode TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  pinned INTEGER NOT NULL DEFAULT 0,
  message_count INTEGER NOT NULL DEFAULT 0,
  last_message_preview TEXT NOT NULL DEFAULT '',
  created_at_unix_ms INTEGER NOT NULL,
  updated_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_recency ON threads(pinned DESC, updated_at_unix_ms DESC, thread_id DESC);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  thread_id TEXT NOT NULL,
  role TEXT NOT NULL,
  text_content TEXT NOT NULL DEFAULT '',
  created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, id ASC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, targetVersion)); err != nil {
		return err
	}
	return tx.Commit()
}
