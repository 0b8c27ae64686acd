package virustotal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
)

const (
	defaultBaseURL = "https://www.virustotal.com/api/v3"

	pollInterval = 2 * time.Second
	maxPolls     = 10
)

// ScanStats is the detection tally from a completed file analysis.
type ScanStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
	Timeout    int `json:"timeout"`
}

// Detected reports whether any engine flagged the file.
func (s ScanStats) Detected() bool {
	return s.Malicious > 0 || s.Suspicious > 0
}

// Client uploads files for analysis and polls until the analysis completes.
// The API key may come from configuration or be supplied per request by the
// caller.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a default API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ScanFile uploads the file content and blocks until the analysis completes
// or the poll budget runs out. An empty apiKey falls back to the configured
// default; if neither is present the provider is unavailable.
func (c *Client) ScanFile(ctx context.Context, filename string, content []byte, apiKey string) (*ScanStats, error) {
	key := apiKey
	if key == "" {
		key = c.apiKey
	}
	if key == "" {
		return nil, domainErrors.ErrScanProviderUnavailable
	}

	analysisID, err := c.upload(ctx, filename, content, key)
	if err != nil {
		return nil, err
	}
	return c.awaitAnalysis(ctx, analysisID, key)
}

func (c *Client) upload(ctx context.Context, filename string, content []byte, key string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-apikey", key)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrScanProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: upload returned status %d: %s",
			domainErrors.ErrScanProviderUnavailable, resp.StatusCode, string(payload))
	}

	var uploaded struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("%w: unreadable upload response: %v", domainErrors.ErrScanProviderUnavailable, err)
	}
	if uploaded.Data.ID == "" {
		return "", fmt.Errorf("%w: upload response missing analysis id", domainErrors.ErrScanProviderUnavailable)
	}
	return uploaded.Data.ID, nil
}

func (c *Client) awaitAnalysis(ctx context.Context, analysisID, key string) (*ScanStats, error) {
	for attempt := 0; attempt < maxPolls; attempt++ {
		stats, done, err := c.fetchAnalysis(ctx, analysisID, key)
		if err != nil {
			return nil, err
		}
		if done {
			return stats, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil, fmt.Errorf("%w: analysis %s did not complete in time",
		domainErrors.ErrScanProviderUnavailable, analysisID)
}

func (c *Client) fetchAnalysis(ctx context.Context, analysisID, key string) (*ScanStats, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyses/"+analysisID, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("x-apikey", key)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domainErrors.ErrScanProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: analysis returned status %d",
			domainErrors.ErrScanProviderUnavailable, resp.StatusCode)
	}

	var analysis struct {
		Data struct {
			Attributes struct {
				Status string    `json:"status"`
				Stats  ScanStats `json:"stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, false, fmt.Errorf("%w: unreadable analysis response: %v",
			domainErrors.ErrScanProviderUnavailable, err)
	}

	if analysis.Data.Attributes.Status != "completed" {
		return nil, false, nil
	}
	stats := analysis.Data.Attributes.Stats
	return &stats, true, nil
}
