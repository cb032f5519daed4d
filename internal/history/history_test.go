package history

import (
	"context"
	"path/filepath"
	"testing"

	"myfirstagent/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate())
	return NewStore(d)
}

func TestSaveAndLoadTurns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.EnsureSession(ctx, "s1", "cli"))
	require.NoError(t, s.SaveTurn(ctx, "s1", Turn{
		UserMessage: "hi, I'm Ana",
		Reply:       "Good morning, Ana! My mood is amazing. How can I assist you today?",
		ToolCalls:   []ToolCall{{Name: "morning_greet", Arguments: `{"name":"Ana"}`}},
		Model:       "gemini-2.5-flash",
	}))
	require.NoError(t, s.SaveTurn(ctx, "s1", Turn{UserMessage: "thanks", Reply: "anytime"}))

	turns, err := s.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, "hi, I'm Ana", turns[0].UserMessage)
	assert.Equal(t, "gemini-2.5-flash", turns[0].Model)
	require.Len(t, turns[0].ToolCalls, 1)
	assert.Equal(t, "morning_greet", turns[0].ToolCalls[0].Name)

	assert.Equal(t, "thanks", turns[1].UserMessage)
	assert.Empty(t, turns[1].Model)
	assert.Empty(t, turns[1].ToolCalls)
}

func TestTurnsUnknownSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Turns(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.EnsureSession(ctx, "s1", "gateway"))
	require.NoError(t, s.EnsureSession(ctx, "s1", "gateway"))
	require.NoError(t, s.EnsureSession(ctx, "s2", "telegram"))
	require.NoError(t, s.SaveTurn(ctx, "s2", Turn{UserMessage: "a", Reply: "b"}))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := map[string]Session{}
	for _, sess := range sessions {
		byID[sess.ID] = sess
	}
	assert.Equal(t, 0, byID["s1"].Turns)
	assert.Equal(t, 1, byID["s2"].Turns)
	assert.Equal(t, "telegram", byID["s2"].Channel)
}
