package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyProfile is returned when the provider answers with no data.
var ErrEmptyProfile = errors.New("importer: provider returned empty profile")

// Client fetches external professional profiles from a Proxycurl-compatible
// enrichment API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

type Config struct {
	BaseURL string // default: https://nubela.co/proxycurl
	APIKey  string

	Timeout    time.Duration // default: 30s
	HTTPClient *http.Client
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("importer: APIKey is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nubela.co/proxycurl"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.Named("importer"),
	}, nil
}

// FetchProfile retrieves the profile behind profileURL. It returns both the
// typed view and the raw payload; the raw form is needed to promote fields
// the typed view does not know about into custom resume sections.
func (c *Client) FetchProfile(ctx context.Context, profileURL string) (*Profile, map[string]json.RawMessage, error) {
	q := url.Values{}
	q.Set("url", profileURL)
	q.Set("fallback_to_cache", "on-error")
	q.Set("use_cache", "if-present")
	q.Set("skills", "include")
	q.Set("personal_email", "include")
	q.Set("personal_contact_number", "include")
	q.Set("github_profile_id", "include")
	q.Set("extra", "include")

	endpoint := c.baseURL + "/api/v2/linkedin?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("importer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("importer: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("importer: read response: %w", err)
	}

	c.logger.Debug("profile fetched",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("importer: upstream %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("importer: decode response: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, ErrEmptyProfile
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, nil, fmt.Errorf("importer: decode profile: %w", err)
	}

	return &profile, raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
