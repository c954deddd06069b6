package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"packbot/internal/domain"
	"packbot/internal/metrics"
	"packbot/internal/repo"
)

const baseURL = "https://generativelanguage.googleapis.com/v1/models"

// ErrNoActiveKeys indicates every configured API key is cooling down.
var ErrNoActiveKeys = errors.New("no active gemini api keys")

// Config holds Gemini client configuration.
type Config struct {
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	Cooldown       time.Duration
}

// Client calls the Gemini embedContent and generateContent endpoints,
// rotating API keys from the api_keys table with cooldown on throttling.
type Client struct {
	repo     repo.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	http     *http.Client
	model    string
	embModel string
	cooldown time.Duration
}

// New creates a Gemini client.
func New(store repo.Store, logger *slog.Logger, metricRegistry *metrics.Metrics, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	embModel := cfg.EmbeddingModel
	if embModel == "" {
		embModel = "text-embedding-004"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Client{
		repo:     store,
		logger:   logger.With("component", "gemini"),
		metrics:  metricRegistry,
		http:     &http.Client{Timeout: timeout},
		model:    model,
		embModel: embModel,
		cooldown: cooldown,
	}
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Embed turns text into a 768-dimension vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := embedRequest{
		Model:   "models/" + c.embModel,
		Content: content{Parts: []part{{Text: text}}},
	}
	endpoint := fmt.Sprintf("%s/%s:embedContent", baseURL, c.embModel)

	var res embedResponse
	if err := c.doWithRotation(ctx, "embed", endpoint, payload, &res); err != nil {
		return nil, err
	}
	if len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrGeneration)
	}
	return res.Embedding.Values, nil
}

// Generate produces a reply for the given system prompt and user turn.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
	}
	if system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent", baseURL, c.model)

	var res generateResponse
	if err := c.doWithRotation(ctx, "generate", endpoint, payload, &res); err != nil {
		return "", err
	}
	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidates", domain.ErrGeneration)
	}
	return res.Candidates[0].Content.Parts[0].Text, nil
}

// HasActiveKey reports whether at least one key is usable right now,
// consumed by the health endpoint.
func (c *Client) HasActiveKey(ctx context.Context) bool {
	keys, err := c.repo.ListActiveGeminiKeys(ctx)
	if err != nil {
		return false
	}
	now := time.Now()
	for _, k := range keys {
		if k.CooldownUntil == nil || k.CooldownUntil.Before(now) {
			return true
		}
	}
	return false
}

func (c *Client) doWithRotation(ctx context.Context, operation, endpoint string, payload, dest any) error {
	keys, err := c.repo.ListActiveGeminiKeys(ctx)
	if err != nil {
		return fmt.Errorf("list gemini keys: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gemini payload: %w", err)
	}

	now := time.Now()
	var lastErr error = ErrNoActiveKeys
	for _, key := range keys {
		if key.CooldownUntil != nil && key.CooldownUntil.After(now) {
			continue
		}

		status, err := c.doOnce(ctx, operation, endpoint, key.Value, body, dest)
		if err == nil {
			if markErr := c.repo.MarkKeyUsed(ctx, key.ID); markErr != nil {
				c.logger.Warn("failed marking key used", "error", markErr)
			}
			return nil
		}
		lastErr = err

		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			c.logger.Warn("gemini key cooling down", "status", status, "operation", operation)
			if cdErr := c.repo.SetCooldownUntil(ctx, key.ID, now.Add(c.cooldown)); cdErr != nil {
				c.logger.Warn("failed setting cooldown", "error", cdErr)
			}
			continue
		}
		// Non-retryable failure, do not burn the remaining keys.
		break
	}
	return fmt.Errorf("%w: %v", domain.ErrGeneration, lastErr)
}

func (c *Client) doOnce(ctx context.Context, operation, endpoint, apiKey string, body []byte, dest any) (int, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.GeminiRequests.WithLabelValues(operation, status).Inc()
			c.metrics.GeminiLatency.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gemini %s request: %w", operation, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, fmt.Errorf("read gemini response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return res.StatusCode, fmt.Errorf("gemini %s status %d: %s", operation, res.StatusCode, truncate(string(resBody), 200))
	}

	if err := json.Unmarshal(resBody, dest); err != nil {
		return res.StatusCode, fmt.Errorf("decode gemini response: %w", err)
	}
	status = "ok"
	return res.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
