package agent

import (
	"context"
	"log/slog"
	"sync"

	"myfirstagent/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// toolSpans follows tool calls through the runtime's event stream. A span
// opens when the model emits a function call and closes when the matching
// function response arrives.
type toolSpans struct {
	mu    sync.Mutex
	spans map[string]oteltrace.Span
}

func newToolSpans() *toolSpans {
	return &toolSpans{spans: make(map[string]oteltrace.Span)}
}

func (t *toolSpans) start(ctx context.Context, id, name, input string) {
	_, span := trace.Tracer().Start(ctx, name,
		oteltrace.WithAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("gen_ai.tool.name", name),
			attribute.String("gen_ai.tool.call.id", id),
			attribute.String("gen_ai.tool.input", input),
		),
	)

	sc := span.SpanContext()
	slog.Debug("tool span started", "tool", name, "call_id", id, "trace_id", sc.TraceID(), "span_id", sc.SpanID())

	t.mu.Lock()
	t.spans[id] = span
	t.mu.Unlock()
}

func (t *toolSpans) end(id, output string, isError bool) {
	t.mu.Lock()
	span, ok := t.spans[id]
	delete(t.spans, id)
	t.mu.Unlock()
	if !ok {
		return
	}

	if isError {
		span.SetStatus(codes.Error, output)
	}
	span.SetAttributes(attribute.Int("gen_ai.tool.output_length", len(output)))
	span.End()
}

// closeAll ends spans whose responses never arrived, e.g. on cancellation.
func (t *toolSpans) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, span := range t.spans {
		span.SetStatus(codes.Error, "no tool response")
		span.End()
		delete(t.spans, id)
	}
}
