package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"myfirstagent/internal/db"
)

// ErrNotFound is returned when a session has no record.
var ErrNotFound = errors.New("session not found")

// ToolCall is one tool invocation made while answering a turn.
type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result,omitempty"`
}

// Turn is one user message and the agent's final reply.
type Turn struct {
	ID          int64      `json:"id"`
	UserMessage string     `json:"user_message"`
	Reply       string     `json:"reply"`
	ToolCalls   []ToolCall `json:"tool_calls"`
	Model       string     `json:"model,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session summarizes a conversation.
type Session struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	conn *sql.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{conn: database.Conn()}
}

func (s *Store) EnsureSession(ctx context.Context, sessionID, channel string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, channel) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		sessionID, channel)
	return err
}

func (s *Store) SaveTurn(ctx context.Context, sessionID string, turn Turn) error {
	calls := turn.ToolCalls
	if calls == nil {
		calls = []ToolCall{}
	}
	raw, err := json.Marshal(calls)
	if err != nil {
		return fmt.Errorf("encoding tool calls: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO turns (session_id, user_message, reply, tool_calls, model)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, turn.UserMessage, turn.Reply, string(raw),
		sql.NullString{String: turn.Model, Valid: turn.Model != ""})
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `UPDATE sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, sessionID)
	return err
}

// ListSessions returns sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT s.id, s.channel, s.created_at, s.updated_at, COUNT(t.id)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Channel, &sess.CreatedAt, &sess.UpdatedAt, &sess.Turns); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Turns returns the transcript of a session in order. It returns ErrNotFound
// for unknown sessions.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	var exists int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, user_message, reply, tool_calls, model, created_at
		FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t     Turn
			calls string
			model sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserMessage, &t.Reply, &calls, &model, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(calls), &t.ToolCalls); err != nil {
			slog.Warn("skipping invalid tool call JSON", "turn_id", t.ID, "error", err)
		}
		t.Model = model.String
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
