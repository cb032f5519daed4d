package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"myfirstagent/internal/agent"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	telegramAPIBase      = "https://api.telegram.org/bot%s"
	telegramSendMsg      = "/sendMessage"
	telegramChatAction   = "/sendChatAction"
	telegramActionTyping = "typing"
	telegramFallbackText = "Sorry, something went wrong while answering."
)

type Telegram struct {
	runner       agent.Runner
	apiURL       string
	allowedUsers []int64 // empty = everyone
	client       *http.Client
}

func NewTelegram(botToken string, allowedUsers []int64, runner agent.Runner) *Telegram {
	return &Telegram{
		runner:       runner,
		apiURL:       fmt.Sprintf(telegramAPIBase, botToken),
		allowedUsers: allowedUsers,
		client:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/telegram", t.handleWebhook)
}

type telegramUpdate struct {
	Message *telegramMessage `json:"message"`
}

type telegramMessage struct {
	Chat telegramChat  `json:"chat"`
	From *telegramUser `json:"from"`
	Text string        `json:"text"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramUser struct {
	ID int64 `json:"id"`
}

type telegramSendRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Error("telegram: failed to decode update", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	chatID := update.Message.Chat.ID
	if !t.allowed(update.Message.From) {
		slog.Warn("telegram: ignoring message from unlisted user", "chat_id", chatID)
		w.WriteHeader(http.StatusOK)
		return
	}

	slog.Info("telegram: received message", "chat_id", chatID, "text_len", len(update.Message.Text))

	ctx := agent.ContextWithChannel(r.Context(), "telegram")
	t.sendTyping(ctx, chatID)

	reply := t.answer(ctx, chatID, update.Message.Text)
	if err := t.sendMessage(ctx, chatID, reply); err != nil {
		slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
	}

	w.WriteHeader(http.StatusOK)
}

// answer runs the agent and collects its text output into a single reply.
func (t *Telegram) answer(ctx context.Context, chatID int64, text string) string {
	var b strings.Builder
	sessionID := fmt.Sprintf("telegram:%d", chatID)

	err := t.runner.Run(ctx, sessionID, text, func(ev agent.Event) {
		if ev.Type == agent.EventToken {
			if s, ok := ev.Data.(string); ok {
				b.WriteString(s)
			}
		}
	})
	if err != nil {
		slog.Error("telegram: agent run failed", "chat_id", chatID, "error", err)
		return telegramFallbackText
	}
	if b.Len() == 0 {
		return telegramFallbackText
	}
	return b.String()
}

func (t *Telegram) allowed(from *telegramUser) bool {
	if len(t.allowedUsers) == 0 {
		return true
	}
	return from != nil && slices.Contains(t.allowedUsers, from.ID)
}

func (t *Telegram) sendTyping(ctx context.Context, chatID int64) {
	body, _ := json.Marshal(map[string]any{
		"chat_id": chatID,
		"action":  telegramActionTyping,
	})
	resp, err := t.post(ctx, telegramChatAction, body)
	if err != nil {
		slog.Warn("telegram: failed to send typing action", "chat_id", chatID, "error", err)
		return
	}
	resp.Body.Close()
}

func (t *Telegram) sendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(telegramSendRequest{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return err
	}

	resp, err := t.post(ctx, telegramSendMsg, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

func (t *Telegram) post(ctx context.Context, method string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+method, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.client.Do(req)
}
