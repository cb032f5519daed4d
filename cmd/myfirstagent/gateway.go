package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"myfirstagent/internal/agent"
	"myfirstagent/internal/channels"
	"myfirstagent/internal/config"
	"myfirstagent/internal/gateway"

	"github.com/spf13/cobra"
)

var gatewayAddr string

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if gatewayAddr != "" {
			cfg.Gateway.Addr = gatewayAddr
		}

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		chs := buildChannels(cfg, a.runner)

		var opts []gateway.Option
		if cfg.Gateway.Token != "" {
			opts = append(opts, gateway.WithToken(cfg.Gateway.Token))
		}
		srv := gateway.NewServer(a.runner, a.store, chs, opts...)
		slog.Info("starting gateway", "addr", cfg.Gateway.Addr, "channels", len(chs))
		return srv.ListenAndServe(ctx, cfg.Gateway.Addr)
	},
}

func init() {
	gatewayCmd.Flags().StringVarP(&gatewayAddr, "addr", "a", "", "override gateway listen address")
}

func buildChannels(cfg *config.Config, runner agent.Runner) []channels.Channel {
	var chs []channels.Channel
	for name, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		switch ch.Type {
		case "telegram":
			chs = append(chs, channels.NewTelegram(ch.Settings["bot_token"], parseUserIDs(ch.Settings["allowed_users"]), runner))
			slog.Info("channel registered", "name", name, "type", ch.Type)
		default:
			slog.Warn("unknown channel type", "name", name, "type", ch.Type)
		}
	}
	return chs
}

func parseUserIDs(v string) []int64 {
	var ids []int64
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			slog.Warn("ignoring invalid telegram user id", "value", s)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
