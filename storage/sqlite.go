// Package storage provides SQLite thread storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/richinex/pythia/llm"
	"github.com/richinex/pythia/model"
)

// SqliteStore implements ThreadStore using a SQLite database file.
// Thread-safe: sql.DB handles connection pooling and concurrent access,
// and each Merge runs in a single transaction.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT '',
			receipt TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls TEXT,
			tool_call_id TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_messages_thread
		ON messages(thread_id, position);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load loads the state for a thread.
// Returns a zero state (not an error) if the thread doesn't exist.
func (s *SqliteStore) Load(ctx context.Context, threadID string) (ThreadState, error) {
	var state ThreadState
	var receiptJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT summary, receipt FROM threads WHERE thread_id = ?",
		threadID).Scan(&state.Summary, &receiptJSON)
	if err == sql.ErrNoRows {
		return ThreadState{}, nil
	}
	if err != nil {
		return ThreadState{}, fmt.Errorf("failed to query thread: %w", err)
	}

	if receiptJSON.Valid && receiptJSON.String != "" {
		var receipt model.Receipt
		if err := json.Unmarshal([]byte(receiptJSON.String), &receipt); err != nil {
			return ThreadState{}, fmt.Errorf("failed to decode receipt: %w", err)
		}
		state.Receipt = &receipt
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, content, tool_calls, tool_call_id FROM messages WHERE thread_id = ? ORDER BY position ASC",
		threadID)
	if err != nil {
		return ThreadState{}, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	state.Messages = []llm.ChatMessage{}
	for rows.Next() {
		var msg llm.ChatMessage
		var toolCallsJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &toolCallsJSON, &msg.ToolCallID); err != nil {
			return ThreadState{}, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			if err := json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls); err != nil {
				return ThreadState{}, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		state.Messages = append(state.Messages, msg)
	}

	if err := rows.Err(); err != nil {
		return ThreadState{}, fmt.Errorf("error iterating messages: %w", err)
	}

	return state, nil
}

// Merge atomically applies a turn's delta to the thread in one transaction.
func (s *SqliteStore) Merge(ctx context.Context, threadID string, delta Delta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after Commit
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO threads (thread_id) VALUES (?)", threadID)
	if err != nil {
		return fmt.Errorf("failed to ensure thread: %w", err)
	}

	if len(delta.DeleteIDs) > 0 {
		placeholders := strings.Repeat("?,", len(delta.DeleteIDs))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]interface{}, 0, len(delta.DeleteIDs)+1)
		args = append(args, threadID)
		for _, id := range delta.DeleteIDs {
			args = append(args, id)
		}
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM messages WHERE thread_id = ? AND id IN (%s)", placeholders),
			args...)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
	}

	if len(delta.Append) > 0 {
		var next int
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE thread_id = ?",
			threadID).Scan(&next)
		if err != nil {
			return fmt.Errorf("failed to compute next position: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO messages (id, thread_id, position, role, content, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, msg := range delta.Append {
			var toolCallsJSON interface{}
			if len(msg.ToolCalls) > 0 {
				encoded, err := json.Marshal(msg.ToolCalls)
				if err != nil {
					return fmt.Errorf("failed to encode tool calls: %w", err)
				}
				toolCallsJSON = string(encoded)
			}
			_, err = stmt.ExecContext(ctx, msg.ID, threadID, next+i, msg.Role, msg.Content, toolCallsJSON, msg.ToolCallID)
			if err != nil {
				return fmt.Errorf("failed to insert message: %w", err)
			}
		}
	}

	if delta.Summary != nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE threads SET summary = ? WHERE thread_id = ?",
			*delta.Summary, threadID)
		if err != nil {
			return fmt.Errorf("failed to update summary: %w", err)
		}
	}

	if delta.Receipt != nil {
		encoded, err := json.Marshal(delta.Receipt)
		if err != nil {
			return fmt.Errorf("failed to encode receipt: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE threads SET receipt = ? WHERE thread_id = ?",
			string(encoded), threadID)
		if err != nil {
			return fmt.Errorf("failed to update receipt: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE threads SET updated_at = datetime('now') WHERE thread_id = ?",
		threadID)
	if err != nil {
		return fmt.Errorf("failed to update thread timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes all state for a thread.
func (s *SqliteStore) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM messages WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"DELETE FROM threads WHERE thread_id = ?", threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// ListThreads lists all known thread IDs.
func (s *SqliteStore) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT thread_id FROM threads ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	threads := []string{}
	for rows.Next() {
		var threadID string
		if err := rows.Scan(&threadID); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, threadID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

// Verify SqliteStore implements ThreadStore
var _ ThreadStore = (*SqliteStore)(nil)
