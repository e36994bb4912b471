package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/killallgit/strand/pkg/chat"
)

// Store is a local sqlite cache of canonical transcripts, one row per
// message. Only server-confirmed messages are written; temporary echoes
// never reach the cache.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the history database at the given path
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		content TEXT NOT NULL,
		sender_type TEXT NOT NULL,
		sender_id TEXT,
		created_at DATETIME NOT NULL,
		tool_usages TEXT,
		PRIMARY KEY (conversation_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the cached transcript for a conversation
func (s *Store) Save(conversationID string, messages []chat.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conversation_id, id, seq, content, sender_type, sender_id, created_at, tool_usages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		if msg.IsTemporary() {
			continue
		}

		var usages []byte
		if len(msg.ToolUsages) > 0 {
			usages, err = json.Marshal(msg.ToolUsages)
			if err != nil {
				return fmt.Errorf("failed to marshal tool usages: %w", err)
			}
		}

		if _, err := stmt.Exec(conversationID, msg.ID, i, msg.Content, msg.SenderType,
			msg.SenderID, msg.CreatedAt.UTC(), string(usages)); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Load returns the cached transcript for a conversation in order
func (s *Store) Load(conversationID string) ([]chat.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, content, sender_type, sender_id, created_at, tool_usages
		FROM messages WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		var senderID sql.NullString
		var createdAt time.Time
		var usages sql.NullString

		if err := rows.Scan(&msg.ID, &msg.Content, &msg.SenderType, &senderID, &createdAt, &usages); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.SenderID = senderID.String
		msg.CreatedAt = createdAt
		if usages.Valid && usages.String != "" {
			if err := json.Unmarshal([]byte(usages.String), &msg.ToolUsages); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool usages: %w", err)
			}
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// Conversations lists the conversation ids present in the cache
func (s *Store) Conversations() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT conversation_id FROM messages ORDER BY conversation_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
