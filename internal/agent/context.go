package agent

import "context"

type contextKey int

const (
	channelKey contextKey = iota
)

const defaultChannel = "default"

// ContextWithChannel tags a turn with the surface it arrived on (cli,
// gateway, telegram). The tag is recorded with the session.
func ContextWithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

func ChannelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(channelKey).(string); ok && v != "" {
		return v
	}
	return defaultChannel
}
