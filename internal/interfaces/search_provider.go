package interfaces

import (
	"context"
	"time"
)

// SearchResult is one raw item from the news search collaborator.
type SearchResult struct {
	Title       string
	URL         string
	Content     string
	Score       float64
	PublishedAt *time.Time
}

// SearchProvider is the external news-search collaborator contract.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}
