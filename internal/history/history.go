// Package history persists chat sessions and per-request usage to a local
// SQLite database, so past conversations can be resumed and inspected.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spindlehq/spindle/internal/provider"
)

// ErrNotFound is returned when a session or message does not exist.
var ErrNotFound = errors.New("history: not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	tool_calls_json TEXT NOT NULL DEFAULT '',
	tool_call_id    TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

CREATE TABLE IF NOT EXISTS exchanges (
	id                 TEXT PRIMARY KEY,
	session_id         TEXT NOT NULL DEFAULT '',
	provider           TEXT NOT NULL,
	model              TEXT NOT NULL,
	finish_reason      TEXT NOT NULL DEFAULT '',
	prompt_tokens      INTEGER NOT NULL DEFAULT 0,
	completion_tokens  INTEGER NOT NULL DEFAULT 0,
	total_tokens       INTEGER NOT NULL DEFAULT 0,
	latency_ms         INTEGER NOT NULL DEFAULT 0,
	streamed           INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_created ON exchanges(created_at);
`

// Session is one conversation thread.
type Session struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Provider  string    `db:"provider"`
	Model     string    `db:"model"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// record is the messages row; tool calls are stored as a JSON column.
type record struct {
	ID            string    `db:"id"`
	SessionID     string    `db:"session_id"`
	Role          string    `db:"role"`
	Content       string    `db:"content"`
	ToolCallsJSON string    `db:"tool_calls_json"`
	ToolCallID    string    `db:"tool_call_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// Exchange is one completed request/response pair with its usage.
type Exchange struct {
	ID               string    `db:"id"`
	SessionID        string    `db:"session_id"`
	Provider         string    `db:"provider"`
	Model            string    `db:"model"`
	FinishReason     string    `db:"finish_reason"`
	PromptTokens     int       `db:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens"`
	TotalTokens      int       `db:"total_tokens"`
	LatencyMS        int64     `db:"latency_ms"`
	Streamed         bool      `db:"streamed"`
	CreatedAt        time.Time `db:"created_at"`
}

// UsageStats is the aggregate over exchanges for one provider/model pair.
type UsageStats struct {
	Provider     string  `db:"provider"`
	Model        string  `db:"model"`
	Requests     int     `db:"requests"`
	TotalTokens  int     `db:"total_tokens"`
	AvgLatencyMS float64 `db:"avg_latency_ms"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path, creating directories and schema
// as needed. SQLite gets a single writer connection with WAL enabled.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession starts a new thread and returns it.
func (s *Store) CreateSession(ctx context.Context, title, providerName, model string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		Title:     title,
		Provider:  providerName,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, title, provider, model, created_at, updated_at)
		VALUES (:id, :title, :provider, :model, :created_at, :updated_at)`, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Session fetches one thread by id.
func (s *Store) Session(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.GetContext(ctx, &sess, `SELECT * FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// RecentSessions lists threads, newest activity first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	var out []Session
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	return out, err
}

// AppendMessage stores a conversation turn and bumps the session clock.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg provider.Message) error {
	rec := record{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		CreatedAt:  time.Now().UTC(),
	}
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("encoding tool calls: %w", err)
		}
		rec.ToolCallsJSON = string(data)
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, tool_calls_json, tool_call_id, created_at)
		VALUES (:id, :session_id, :role, :content, :tool_calls_json, :tool_call_id, :created_at)`, rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, rec.CreatedAt, sessionID)
	return err
}

// Messages returns a session's turns in order, rehydrated into the
// conversation shape the providers consume.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]provider.Message, error) {
	var recs []record
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]provider.Message, 0, len(recs))
	for _, rec := range recs {
		msg := provider.Message{
			Role:       rec.Role,
			Content:    rec.Content,
			ToolCallID: rec.ToolCallID,
			Timestamp:  rec.CreatedAt,
		}
		if rec.ToolCallsJSON != "" {
			if err := json.Unmarshal([]byte(rec.ToolCallsJSON), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls for message %s: %w", rec.ID, err)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}

// LogExchange records one request's usage. An empty ID gets generated.
func (s *Store) LogExchange(ctx context.Context, ex *Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO exchanges (
			id, session_id, provider, model, finish_reason,
			prompt_tokens, completion_tokens, total_tokens,
			latency_ms, streamed, created_at
		) VALUES (
			:id, :session_id, :provider, :model, :finish_reason,
			:prompt_tokens, :completion_tokens, :total_tokens,
			:latency_ms, :streamed, :created_at
		)`, ex)
	return err
}

// Usage aggregates exchange stats per provider/model over the last days.
func (s *Store) Usage(ctx context.Context, days int) ([]UsageStats, error) {
	var out []UsageStats
	err := s.db.SelectContext(ctx, &out, `
		SELECT
			provider,
			model,
			COUNT(*) AS requests,
			SUM(total_tokens) AS total_tokens,
			AVG(latency_ms) AS avg_latency_ms
		FROM exchanges
		WHERE created_at >= DATE('now', ?)
		GROUP BY provider, model
		ORDER BY requests DESC`, fmt.Sprintf("-%d days", days))
	return out, err
}

// DeleteSession removes a thread and, via the FK cascade, its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
