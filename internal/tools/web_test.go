package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchFormatsResults(t *testing.T) {
	var gotCount int
	w := &Web{search: func(_ context.Context, query string, count int) ([]searchResult, error) {
		gotCount = count
		return []searchResult{
			{Title: "Cloud Run", URL: "https://cloud.google.com/run", Description: "Serverless containers"},
			{Title: "GKE", URL: "https://cloud.google.com/kubernetes-engine", Description: "Managed Kubernetes"},
		}, nil
	}}

	out, err := w.Search(context.Background(), "google cloud", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultSearchCount, gotCount)
	assert.Equal(t,
		"Cloud Run\nhttps://cloud.google.com/run\nServerless containers\n---\nGKE\nhttps://cloud.google.com/kubernetes-engine\nManaged Kubernetes",
		out)
}

func TestWebSearchClampsCount(t *testing.T) {
	var gotCount int
	w := &Web{search: func(_ context.Context, _ string, count int) ([]searchResult, error) {
		gotCount = count
		return nil, nil
	}}

	out, err := w.Search(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Equal(t, maxSearchCount, gotCount)
	assert.Equal(t, "No results found.", out)
}

func TestWebSearchErrors(t *testing.T) {
	w := &Web{search: func(context.Context, string, int) ([]searchResult, error) {
		return nil, errors.New("quota exceeded")
	}}

	_, err := w.Search(context.Background(), "  ", 3)
	assert.ErrorContains(t, err, "query is required")

	_, err = w.Search(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestWebSearchTruncates(t *testing.T) {
	w := &Web{search: func(context.Context, string, int) ([]searchResult, error) {
		return []searchResult{{Title: "big", Description: strings.Repeat("x", maxOutputBytes*2)}}, nil
	}}

	out, err := w.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "... (truncated)"))
	assert.Len(t, out, maxOutputBytes+len("\n... (truncated)"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	in := "ab" + strings.Repeat("€", maxOutputBytes)

	out := truncate([]byte(in))
	assert.True(t, utf8.ValidString(out))
	body := strings.TrimSuffix(out, "\n... (truncated)")
	assert.LessOrEqual(t, len(body), maxOutputBytes)
	assert.Greater(t, len(body), maxOutputBytes-utf8.UTFMax)
	assert.True(t, strings.HasPrefix(in, body))
}
