package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const endpoint = "https://www.googleapis.com/customsearch/v1"

// Result is a single web-search hit.
type Result struct {
	Title   string
	Snippet string
	Link    string
}

// Client queries a programmable search engine restricted to the business's
// own site, used as a non-strict retrieval fallback.
type Client struct {
	logger    *slog.Logger
	http      *http.Client
	apiKey    string
	engineID  string
	siteScope string
}

// Config holds search client configuration.
type Config struct {
	APIKey    string
	EngineID  string
	SiteScope string
	Timeout   time.Duration
}

// New creates a search client. A client with no API key is valid and
// simply reports itself unavailable.
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:    logger.With("component", "search"),
		http:      &http.Client{Timeout: timeout},
		apiKey:    cfg.APIKey,
		engineID:  cfg.EngineID,
		siteScope: cfg.SiteScope,
	}
}

// Available reports whether the client is configured to run queries.
func (c *Client) Available() bool {
	return c.apiKey != "" && c.engineID != ""
}

// Search runs a site-scoped query and returns up to limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if !c.Available() {
		return nil, nil
	}
	if limit <= 0 || limit > 10 {
		limit = 3
	}

	q := query
	if c.siteScope != "" {
		q = fmt.Sprintf("site:%s %s", c.siteScope, query)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", q)
	params.Set("num", fmt.Sprint(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d", res.StatusCode)
	}

	var parsed struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, Result{Title: item.Title, Snippet: item.Snippet, Link: item.Link})
	}
	return results, nil
}
