package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"myfirstagent/internal/history"
	"myfirstagent/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const userID = "user"

type RunnerOption func(*SessionRunner)

// WithStreaming turns on token streaming from the model.
func WithStreaming(on bool) RunnerOption {
	return func(r *SessionRunner) { r.streaming = on }
}

// WithHistory records every finished turn in store.
func WithHistory(store *history.Store) RunnerOption {
	return func(r *SessionRunner) { r.store = store }
}

// WithModelName sets the model name recorded with each turn.
func WithModelName(name string) RunnerOption {
	return func(r *SessionRunner) { r.modelName = name }
}

// SessionRunner hands user turns to the agent runtime and translates the
// runtime's events into Events.
type SessionRunner struct {
	runner    *runner.Runner
	sessions  session.Service
	store     *history.Store
	modelName string
	streaming bool

	mu sync.Mutex // serializes session creation
}

func NewSessionRunner(root adkagent.Agent, opts ...RunnerOption) (*SessionRunner, error) {
	sessions := session.InMemoryService()
	rn, err := runner.New(runner.Config{
		AppName:        Name,
		Agent:          root,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating runner: %w", err)
	}

	r := &SessionRunner{runner: rn, sessions: sessions}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// turn accumulates what a single Run observed.
type turn struct {
	reply    strings.Builder
	calls    []history.ToolCall
	index    map[string]int // call ID -> position in calls
	streamed bool           // partial text seen since the last final event
}

func (r *SessionRunner) Run(ctx context.Context, sessionID string, message string, emit func(Event)) error {
	truncatedMsg := truncateUTF8(message, 200)
	ctx, span := trace.Tracer().Start(ctx, "agent.run",
		oteltrace.WithAttributes(
			attribute.String("gen_ai.agent.name", Name),
			attribute.String("session.id", sessionID),
			attribute.String("user.message", truncatedMsg),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		emit(Event{Type: EventError, Data: "request cancelled"})
		return err
	}

	if err := r.ensureSession(ctx, sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emit(Event{Type: EventError, Data: err.Error()})
		return err
	}

	spans := newToolSpans()
	defer spans.closeAll()

	t := &turn{index: make(map[string]int)}
	cfg := adkagent.RunConfig{}
	if r.streaming {
		cfg.StreamingMode = adkagent.StreamingModeSSE
	}

	msg := genai.NewContentFromText(message, genai.RoleUser)
	for ev, err := range r.runner.Run(ctx, userID, sessionID, msg, cfg) {
		if err == nil && ev != nil && ev.ErrorCode != "" {
			err = fmt.Errorf("%s: %s", ev.ErrorCode, ev.ErrorMessage)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
				emit(Event{Type: EventError, Data: "request cancelled"})
			} else {
				emit(Event{Type: EventError, Data: err.Error()})
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		r.handle(ctx, ev, t, spans, emit)
	}

	if err := ctx.Err(); err != nil {
		emit(Event{Type: EventError, Data: "request cancelled"})
		return err
	}

	span.SetAttributes(
		attribute.Int("agent.tool_calls", len(t.calls)),
		attribute.Int("agent.reply_length", t.reply.Len()),
	)
	r.persist(ctx, sessionID, message, t)

	emit(Event{Type: EventDone, Data: t.reply.String()})
	return nil
}

func (r *SessionRunner) handle(ctx context.Context, ev *session.Event, t *turn, spans *toolSpans, emit func(Event)) {
	if ev == nil || ev.Content == nil {
		return
	}

	for _, p := range ev.Content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.FunctionCall != nil:
			fc := p.FunctionCall
			args := encode(fc.Args)
			t.index[fc.ID] = len(t.calls)
			t.calls = append(t.calls, history.ToolCall{Name: fc.Name, Arguments: args})
			spans.start(ctx, fc.ID, fc.Name, args)
			slog.Debug("tool call", "name", fc.Name, "call_id", fc.ID, "author", ev.Author)
			emit(Event{Type: EventToolCall, Data: map[string]string{
				"name":      fc.Name,
				"arguments": args,
			}})
		case p.FunctionResponse != nil:
			fr := p.FunctionResponse
			out := encode(fr.Response)
			_, failed := fr.Response["error"]
			if i, ok := t.index[fr.ID]; ok {
				t.calls[i].Result = out
			}
			spans.end(fr.ID, out, failed)
			if failed {
				slog.Warn("tool execution failed", "name", fr.Name, "result", out)
			}
			emit(Event{Type: EventToolResult, Data: map[string]string{
				"name":    fr.Name,
				"content": out,
			}})
		case p.Text != "":
			if ev.Content.Role == "user" {
				continue
			}
			if ev.Partial {
				t.streamed = true
				emit(Event{Type: EventToken, Data: p.Text})
				continue
			}
			// A final event repeats the partial text that preceded it.
			if !t.streamed {
				emit(Event{Type: EventToken, Data: p.Text})
			}
			t.reply.WriteString(p.Text)
		}
	}
	if !ev.Partial {
		t.streamed = false
	}
}

func (r *SessionRunner) ensureSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.sessions.Get(ctx, &session.GetRequest{
		AppName:   Name,
		UserID:    userID,
		SessionID: sessionID,
	}); err == nil {
		return nil
	}

	if _, err := r.sessions.Create(ctx, &session.CreateRequest{
		AppName:   Name,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return fmt.Errorf("creating session %s: %w", sessionID, err)
	}
	slog.Debug("session created", "session_id", sessionID)
	return nil
}

// persist records the turn. Failures are logged; the user already has the
// reply.
func (r *SessionRunner) persist(ctx context.Context, sessionID, message string, t *turn) {
	if r.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if err := r.store.EnsureSession(ctx, sessionID, ChannelFromContext(ctx)); err != nil {
		slog.Warn("failed to ensure session", "session_id", sessionID, "error", err)
		return
	}
	if err := r.store.SaveTurn(ctx, sessionID, history.Turn{
		UserMessage: message,
		Reply:       t.reply.String(),
		ToolCalls:   t.calls,
		Model:       r.modelName,
	}); err != nil {
		slog.Warn("failed to save turn", "session_id", sessionID, "error", err)
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func encode(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
