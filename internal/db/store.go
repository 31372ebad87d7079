// internal/db/store.go
package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

type Session struct {
	ID        string
	Channel   string
	StartedAt time.Time
	EndedAt   time.Time // zero when the session is still open
}

type Message struct {
	ID        int64
	SessionID string
	Author    string
	Content   string
	IsBot     bool
	CreatedAt time.Time
}

func Open() (*Store, error) {
	dataDir, err := dataDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "transcripts.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func dataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "gembot"), nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		ended_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		author TEXT NOT NULL,
		content TEXT NOT NULL,
		is_bot INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession records the start of a chat session and returns its ID
func (s *Store) CreateSession(channel string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, channel) VALUES (?, ?)`,
		id, channel,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// EndSession marks a session as finished
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	return err
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, channel, started_at, ended_at FROM sessions WHERE id = ?`, id,
	)

	var sess Session
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Channel, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	sess.EndedAt = ended.Time
	return &sess, nil
}

// ListSessions returns all sessions, newest first
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, channel, started_at, ended_at FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.Channel, &sess.StartedAt, &ended); err != nil {
			return nil, err
		}
		sess.EndedAt = ended.Time
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SaveMessage appends a message to a session's transcript
func (s *Store) SaveMessage(sessionID, author, content string, isBot bool) (int64, error) {
	flag := 0
	if isBot {
		flag = 1
	}
	result, err := s.db.Exec(
		`INSERT INTO messages (session_id, author, content, is_bot) VALUES (?, ?, ?, ?)`,
		sessionID, author, content, flag,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetMessages retrieves all messages for a session in order
func (s *Store) GetMessages(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, author, content, is_bot, created_at
		 FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentMessages retrieves the last n messages for a session in order
func (s *Store) RecentMessages(sessionID string, n int) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, author, content, is_bot, created_at FROM (
			SELECT id, session_id, author, content, is_bot, created_at
			FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id`,
		sessionID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		var flag int
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Author, &m.Content, &flag, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.IsBot = flag != 0
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
