package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	bravesearch "github.com/cnosuke/go-brave-search"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

const (
	WebSearchName      = "web_search"
	defaultSearchCount = 5
	maxSearchCount     = 20
)

type searchResult struct {
	Title       string
	URL         string
	Description string
}

type searchFunc func(ctx context.Context, query string, count int) ([]searchResult, error)

// WebSearchArgs are the parameters of the web_search tool.
type WebSearchArgs struct {
	Query string `json:"query" jsonschema:"The search query"`
	Count int    `json:"count,omitempty" jsonschema:"Number of results to return (default 5, max 20)"`
}

type WebSearchResult struct {
	Result string `json:"result"`
}

type Web struct {
	search searchFunc
}

func NewWeb(braveAPIKey string) (*Web, error) {
	client, err := bravesearch.NewClient(braveAPIKey)
	if err != nil {
		return nil, fmt.Errorf("creating brave client: %w", err)
	}
	return &Web{search: braveSearch(client)}, nil
}

func braveSearch(client *bravesearch.Client) searchFunc {
	return func(ctx context.Context, query string, count int) ([]searchResult, error) {
		resp, err := client.WebSearch(ctx, query, &bravesearch.WebSearchParams{
			Count: count,
		})
		if err != nil {
			return nil, fmt.Errorf("brave search: %w", err)
		}
		var out []searchResult
		for _, r := range resp.GetWebResults() {
			out = append(out, searchResult{Title: r.Title, URL: r.URL, Description: r.Description})
		}
		return out, nil
	}
}

// Tool registers the search as a function tool.
func (w *Web) Tool() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        WebSearchName,
		Description: "Search the web and return the top results with title, URL and snippet.",
	}, func(ctx tool.Context, args WebSearchArgs) (WebSearchResult, error) {
		out, err := w.Search(ctx, args.Query, args.Count)
		if err != nil {
			return WebSearchResult{}, err
		}
		return WebSearchResult{Result: out}, nil
	})
}

func (w *Web) Search(ctx context.Context, query string, count int) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required")
	}
	if count <= 0 {
		count = defaultSearchCount
	}
	if count > maxSearchCount {
		count = maxSearchCount
	}

	slog.Debug("web: searching", "query", query, "count", count)

	results, err := w.search(ctx, query, count)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "%s\n%s\n%s", r.Title, r.URL, r.Description)
	}

	slog.Debug("web: search done", "query", query, "results", len(results))
	return truncate([]byte(b.String())), nil
}
