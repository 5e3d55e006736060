// Package websearch queries the Exa search API for pages with extracted text.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/guardian/internal/domain"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.exa.ai"
	// MaxTextChars caps the text Exa returns for each result.
	MaxTextChars = 1000
)

// ErrNoAPIKey is returned when the client is built without an API key.
var ErrNoAPIKey = errors.New("exa API key not set")

type Config struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond limits outgoing searches; zero disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// ExaClient runs "auto" searches with page text included.
type ExaClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewExaClient(cfg Config) (*ExaClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &ExaClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
	}, nil
}

type searchRequest struct {
	Query      string         `json:"query"`
	Type       string         `json:"type"`
	NumResults int            `json:"numResults"`
	Contents   searchContents `json:"contents"`
}

type searchContents struct {
	Text textOptions `json:"text"`
}

type textOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResponse struct {
	Results []domain.WebResult `json:"results"`
}

// Search returns up to numResults pages for query.
func (c *ExaClient) Search(ctx context.Context, query string, numResults int) ([]domain.WebResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: numResults,
		Contents:   searchContents{Text: textOptions{MaxCharacters: MaxTextChars}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("exa search failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode exa response: %w", err)
	}
	return out.Results, nil
}
