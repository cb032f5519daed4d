package main

import (
	"context"
	"fmt"
	"log/slog"

	"myfirstagent/internal/agent"
	"myfirstagent/internal/config"
	"myfirstagent/internal/db"
	"myfirstagent/internal/history"
	"myfirstagent/internal/llm"
	"myfirstagent/internal/trace"

	adkagent "google.golang.org/adk/agent"
)

// app holds everything a command needs to run turns.
type app struct {
	runner *agent.SessionRunner
	store  *history.Store
	close  func()
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	shutdownTrace, err := trace.Init(ctx, trace.Config{
		Endpoint: cfg.Trace.Endpoint,
		URLPath:  cfg.Trace.URLPath,
		APIKey:   cfg.Trace.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising tracing: %w", err)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		shutdownTrace(ctx)
		return nil, fmt.Errorf("opening database: %w", err)
	}
	closeAll := func() {
		database.Close()
		if err := shutdownTrace(context.Background()); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
	}

	runner, store, err := wire(ctx, cfg, database)
	if err != nil {
		closeAll()
		return nil, err
	}
	return &app{runner: runner, store: store, close: closeAll}, nil
}

func wire(ctx context.Context, cfg *config.Config, database *db.DB) (*agent.SessionRunner, *history.Store, error) {
	if err := database.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	store := history.NewStore(database)

	llmCfg, err := cfg.ActiveLLM()
	if err != nil {
		return nil, nil, err
	}
	model, err := llm.New(ctx, llmCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating model: %w", err)
	}

	var search adkagent.Agent
	searchTool, err := agent.SearchTool(llmCfg.Provider, cfg.Services.Brave.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("creating search tool: %w", err)
	}
	if searchTool != nil {
		if search, err = agent.NewSearchAgent(model, searchTool); err != nil {
			return nil, nil, err
		}
		slog.Info("search agent enabled", "tool", searchTool.Name())
	} else {
		slog.Warn("no search backend available", "provider", llmCfg.Provider)
	}

	root, err := agent.New(model, search)
	if err != nil {
		return nil, nil, err
	}

	runner, err := agent.NewSessionRunner(root,
		agent.WithHistory(store),
		agent.WithModelName(model.Name()),
		agent.WithStreaming(cfg.Agent.Streaming),
	)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("agent ready", "name", agent.Name, "model", model.Name(), "provider", llmCfg.Provider, "streaming", cfg.Agent.Streaming)
	return runner, store, nil
}
