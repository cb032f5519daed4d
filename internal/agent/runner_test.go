package agent

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"myfirstagent/internal/db"
	"myfirstagent/internal/history"
	"myfirstagent/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// greetingLLM asks for morning_greet on a fresh user message and repeats the
// tool result once the function response comes back.
type greetingLLM struct {
	mu    sync.Mutex
	calls int
}

func (g *greetingLLM) Name() string { return "greeting-llm" }

func (g *greetingLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	return func(yield func(*model.LLMResponse, error) bool) {
		last := req.Contents[len(req.Contents)-1]
		for _, p := range last.Parts {
			if p.FunctionResponse != nil {
				result, _ := p.FunctionResponse.Response["result"].(string)
				yield(&model.LLMResponse{
					Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: result}}},
					TurnComplete: true,
				}, nil)
				return
			}
		}
		yield(&model.LLMResponse{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{
					ID:   "call-1",
					Name: tools.MorningGreetName,
					Args: map[string]any{"name": "Ana"},
				},
			}}},
			TurnComplete: true,
		}, nil)
	}
}

// streamingLLM yields the reply in chunks followed by the aggregated text,
// regardless of the requested mode.
type streamingLLM struct{ chunks []string }

func (s streamingLLM) Name() string { return "streaming" }

func (s streamingLLM) GenerateContent(context.Context, *model.LLMRequest, bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		for _, c := range s.chunks {
			if !yield(&model.LLMResponse{
				Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: c}}},
				Partial: true,
			}, nil) {
				return
			}
		}
		yield(&model.LLMResponse{
			Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: strings.Join(s.chunks, "")}}},
			TurnComplete: true,
		}, nil)
	}
}

type failingLLM struct{}

func (failingLLM) Name() string { return "failing" }

func (failingLLM) GenerateContent(context.Context, *model.LLMRequest, bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(nil, errors.New("model unavailable"))
	}
}

func newHistory(t *testing.T) *history.Store {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.Migrate())
	return history.NewStore(d)
}

func collect(events *[]Event) func(Event) {
	var mu sync.Mutex
	return func(ev Event) {
		mu.Lock()
		*events = append(*events, ev)
		mu.Unlock()
	}
}

func TestSessionRunnerCallsGreetingTool(t *testing.T) {
	const want = "Good morning, Ana! My mood is amazing. How can I assist you today?"

	llm := &greetingLLM{}
	root, err := New(llm, nil)
	require.NoError(t, err)

	store := newHistory(t)
	r, err := NewSessionRunner(root, WithHistory(store), WithModelName(llm.Name()))
	require.NoError(t, err)

	var events []Event
	ctx := ContextWithChannel(context.Background(), "test")
	require.NoError(t, r.Run(ctx, "s1", "Hi, I'm Ana", collect(&events)))

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventToolCall, EventToolResult, EventToken, EventDone}, types)

	call := events[0].Data.(map[string]string)
	assert.Equal(t, tools.MorningGreetName, call["name"])
	assert.JSONEq(t, `{"name":"Ana"}`, call["arguments"])
	assert.Contains(t, events[1].Data.(map[string]string)["content"], want)
	assert.Equal(t, want, events[2].Data)
	assert.Equal(t, want, events[3].Data)
	assert.Equal(t, 2, llm.calls)

	turns, err := store.Turns(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "Hi, I'm Ana", turns[0].UserMessage)
	assert.Equal(t, want, turns[0].Reply)
	assert.Equal(t, "greeting-llm", turns[0].Model)
	require.Len(t, turns[0].ToolCalls, 1)
	assert.Equal(t, tools.MorningGreetName, turns[0].ToolCalls[0].Name)
	assert.Contains(t, turns[0].ToolCalls[0].Result, want)

	sessions, err := store.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "test", sessions[0].Channel)
}

func TestSessionRunnerReusesSession(t *testing.T) {
	root, err := New(staticLLM{text: "hello again"}, nil)
	require.NoError(t, err)
	r, err := NewSessionRunner(root)
	require.NoError(t, err)

	for range 2 {
		var events []Event
		require.NoError(t, r.Run(context.Background(), "same", "hi", collect(&events)))
		require.NotEmpty(t, events)
		assert.Equal(t, EventDone, events[len(events)-1].Type)
		assert.Equal(t, "hello again", events[len(events)-1].Data)
	}
}

func tokens(events []Event) []any {
	var out []any
	for _, ev := range events {
		if ev.Type == EventToken {
			out = append(out, ev.Data)
		}
	}
	return out
}

func TestSessionRunnerStreamingDoesNotRepeatReply(t *testing.T) {
	root, err := New(streamingLLM{chunks: []string{"Good evening, ", "Bo."}}, nil)
	require.NoError(t, err)
	store := newHistory(t)
	r, err := NewSessionRunner(root, WithStreaming(true), WithHistory(store))
	require.NoError(t, err)

	var events []Event
	require.NoError(t, r.Run(context.Background(), "s1", "hi", collect(&events)))

	assert.Equal(t, []any{"Good evening, ", "Bo."}, tokens(events))
	assert.Equal(t, Event{Type: EventDone, Data: "Good evening, Bo."}, events[len(events)-1])

	turns, err := store.Turns(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "Good evening, Bo.", turns[0].Reply)
}

func TestSessionRunnerStreamingWithoutPartials(t *testing.T) {
	root, err := New(staticLLM{text: "hello there"}, nil)
	require.NoError(t, err)
	r, err := NewSessionRunner(root, WithStreaming(true))
	require.NoError(t, err)

	var events []Event
	require.NoError(t, r.Run(context.Background(), "s1", "hi", collect(&events)))

	assert.Equal(t, []any{"hello there"}, tokens(events))
	assert.Equal(t, Event{Type: EventDone, Data: "hello there"}, events[len(events)-1])
}

func TestSessionRunnerModelError(t *testing.T) {
	root, err := New(failingLLM{}, nil)
	require.NoError(t, err)
	r, err := NewSessionRunner(root)
	require.NoError(t, err)

	var events []Event
	err = r.Run(context.Background(), "s1", "hi", collect(&events))
	require.ErrorContains(t, err, "model unavailable")
	require.NotEmpty(t, events)
	assert.Equal(t, EventError, events[len(events)-1].Type)
}

func TestSessionRunnerCancelled(t *testing.T) {
	root, err := New(staticLLM{text: "too late"}, nil)
	require.NoError(t, err)
	r, err := NewSessionRunner(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	err = r.Run(ctx, "s1", "hi", collect(&events))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotEmpty(t, events)
	assert.Equal(t, Event{Type: EventError, Data: "request cancelled"}, events[len(events)-1])
}

func (t *toolSpans) open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

func TestToolSpansCloseAll(t *testing.T) {
	spans := newToolSpans()
	spans.start(context.Background(), "a", "morning_greet", `{}`)
	spans.start(context.Background(), "b", "evening_greet", `{}`)
	spans.end("a", `{"result":"hi"}`, false)
	assert.Equal(t, 1, spans.open())

	// Unknown IDs are ignored.
	spans.end("zzz", "", true)
	assert.Equal(t, 1, spans.open())

	spans.closeAll()
	assert.Equal(t, 0, spans.open())
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 200))
	assert.Equal(t, "ab", truncateUTF8("abc", 2))
	// "é" is two bytes; cutting inside it backs off to the rune start.
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "", truncateUTF8("é", 1))
}
