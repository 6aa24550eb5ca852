package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/arbor"
)

func TestSearchMissingKeyNotConfigured(t *testing.T) {
	svc := NewService(&common.SearchConfig{}, arbor.NewLogger())
	_, err := svc.Search(context.Background(), "anything", 5)
	require.True(t, errors.Is(err, interfaces.ErrNotConfigured))
}

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "news", req["topic"])
		assert.Equal(t, "advanced", req["search_depth"])
		assert.Equal(t, float64(5), req["max_results"])

		_, _ = w.Write([]byte(`{"results": [
			{"title": "Acme breach", "url": "https://example.com/a", "content": "<p>Leaked <b>records</b></p>", "score": 0.91, "published_date": "2026-03-09T10:00:00Z"},
			{"title": "No date item", "url": "https://example.com/b", "content": "plain text", "score": 0.5, "published_date": ""}
		]}`))
	}))
	defer server.Close()

	svc := NewService(&common.SearchConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxResults: 10,
	}, arbor.NewLogger())

	results, err := svc.Search(context.Background(), "acme scandal", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, "Acme breach", first.Title)
	assert.NotContains(t, first.Content, "<p>")
	assert.Contains(t, first.Content, "Leaked")
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, 2026, first.PublishedAt.Year())

	assert.Nil(t, results[1].PublishedAt)
	assert.Equal(t, "plain text", results[1].Content)
}

func TestSearchNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(&common.SearchConfig{APIKey: "k", BaseURL: server.URL}, arbor.NewLogger()).(*Service)
	// Shrink the retry policy so the test fails fast.
	svc.retry.MaxAttempts = 2
	svc.retry.InitialBackoff = time.Millisecond
	svc.retry.MaxBackoff = 5 * time.Millisecond

	_, err := svc.Search(context.Background(), "acme", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestParsePublishedDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantNil bool
	}{
		{name: "rfc3339", value: "2026-03-09T10:00:00Z"},
		{name: "space separated", value: "2026-03-09 10:00:00"},
		{name: "date only", value: "2026-03-09"},
		{name: "rfc1123 style", value: "Mon, 09 Mar 2026 10:00:00 GMT"},
		{name: "empty", value: "", wantNil: true},
		{name: "garbage", value: "yesterday-ish", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePublishedDate(tt.value)
			if tt.wantNil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, 2026, got.Year())
			}
		})
	}
}
