package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"myfirstagent/internal/agent"
	"myfirstagent/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		sessionID := chatSession
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "session %s (ctrl-d to quit)\n", sessionID)

		return chatLoop(agent.ContextWithChannel(ctx, "cli"), a.runner, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "resume or name a session (default: new random ID)")
}

// chatLoop reads one message per line and prints the agent's reply.
func chatLoop(ctx context.Context, runner agent.Runner, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := runner.Run(ctx, sessionID, line, func(ev agent.Event) {
			switch ev.Type {
			case agent.EventToken:
				fmt.Fprint(out, ev.Data)
			case agent.EventToolCall:
				if m, ok := ev.Data.(map[string]string); ok {
					fmt.Fprintf(out, "[tool %s %s]\n", m["name"], m["arguments"])
				}
			case agent.EventDone:
				fmt.Fprintln(out)
			}
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
