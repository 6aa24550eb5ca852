package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/providers"
	"github.com/ternarybob/arbor"
)

// Service implements the SearchProvider contract against the Tavily news
// search API.
type Service struct {
	config     *common.SearchConfig
	httpClient *http.Client
	retry      *providers.RetryPolicy
	converter  *md.Converter
	logger     arbor.ILogger
}

// NewService creates a new search service instance.
func NewService(config *common.SearchConfig, logger arbor.ILogger) interfaces.SearchProvider {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Service{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		retry:      providers.NewDefaultRetryPolicy(),
		converter:  md.NewConverter("", true, nil),
		logger:     logger,
	}
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search queries the news index for critical coverage. Results come back
// in relevance order with HTML fragments normalized to plain text.
func (s *Service) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	if s.config.APIKey == "" {
		return nil, interfaces.ErrNotConfigured
	}

	if maxResults <= 0 {
		maxResults = s.config.MaxResults
	}

	payload, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: "advanced",
		Topic:       "news",
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	var body []byte
	err = s.retry.Execute(ctx, s.logger, "news_search", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search API returned status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("news search failed: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]interfaces.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, interfaces.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Content:     s.normalizeContent(r.Content),
			Score:       r.Score,
			PublishedAt: parsePublishedDate(r.PublishedDate),
		})
	}

	s.logger.Info().
		Str("query", query).
		Int("result_count", len(results)).
		Msg("News search complete")

	return results, nil
}

// normalizeContent strips HTML markup from result snippets. Search indexes
// return raw page fragments often enough that downstream prompts benefit
// from plain text.
func (s *Service) normalizeContent(content string) string {
	if !strings.Contains(content, "<") {
		return content
	}
	converted, err := s.converter.ConvertString(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(converted)
}

// parsePublishedDate parses the formats the news index emits. Missing or
// unparseable dates return nil; the recency multiplier treats that as
// neutral.
func parsePublishedDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"Mon, 02 Jan 2006 15:04:05 MST",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
