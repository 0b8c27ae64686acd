package webscan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/infra/database/types"
)

// maxBodyBytes caps how much of the target page is read for analysis.
const maxBodyBytes = 2 << 20

// Some origins serve stripped pages to unknown agents; present as a browser.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Severity deductions for failed checks.
const (
	highPenalty   = 25
	mediumPenalty = 10
	lowPenalty    = 5
)

// Locator resolves a hostname's IP and coarse location, best effort.
type Locator interface {
	Locate(ctx context.Context, host string) scanning.Location
}

// Scanner performs passive reconnaissance on a target site: response header
// posture, served technology fingerprints, and exposure checks. It never
// authenticates to or probes the target beyond plain GET requests.
type Scanner struct {
	repo    scanning.WebsiteScanRepository
	locator Locator
	client  *http.Client
	logger  *logrus.Logger
}

type Option func(*Scanner)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Scanner) { s.client = client }
}

func NewScanner(repo scanning.WebsiteScanRepository, locator Locator, logger *logrus.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		repo:    repo,
		locator: locator,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result bundles the persisted record with its check details for the
// response envelope.
type Result struct {
	Scan            *scanning.WebsiteScan
	Vulnerabilities []scanning.Vulnerability
	Persisted       bool
}

// Scan fetches the target and grades its security posture. Unreachable
// targets are the one terminal failure of this path.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*Result, error) {
	target, err := normalizeTarget(rawURL)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, body, err := s.fetch(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrTargetUnreachable, err)
	}
	latency := time.Since(started)

	vulnerabilities := s.runChecks(ctx, target, resp, body)
	score := scoreFor(vulnerabilities)

	scan := &scanning.WebsiteScan{
		ID:        newScanID(),
		URL:       target.String(),
		Status:    resp.StatusCode,
		LatencyMs: int(latency.Milliseconds()),
		Grade:     gradeFor(score),
		Score:     score,
		TechStack: detectTechStack(body),
		CreatedAt: time.Now(),
	}

	if len(vulnerabilities) > 0 {
		scan.Vulnerabilities = types.MustJSONBlob(vulnerabilities)
	}

	location := s.locator.Locate(ctx, target.Hostname())
	scan.Country = location.Country
	scan.City = location.City
	scan.ISP = location.ISP
	scan.IP = location.IP

	result := &Result{Scan: scan, Vulnerabilities: vulnerabilities}
	if err := s.repo.Create(ctx, scan); err != nil {
		s.logger.WithError(err).WithField("url", scan.URL).Error("failed to persist website scan")
		return result, nil
	}
	result.Persisted = true
	return result, nil
}

func (s *Scanner) fetch(ctx context.Context, target string) (*http.Response, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}
	return resp, string(body), nil
}

// runChecks evaluates the header checklist plus exposure checks against the
// served page.
func (s *Scanner) runChecks(ctx context.Context, target *url.URL, resp *http.Response, body string) []scanning.Vulnerability {
	var found []scanning.Vulnerability

	if resp.Header.Get("Content-Security-Policy") == "" {
		found = append(found, scanning.Vulnerability{
			Type:        "high",
			Name:        "Missing Content-Security-Policy",
			Description: "No CSP header; injected scripts execute without restriction.",
			Fix:         "Add a Content-Security-Policy header with an explicit script-src allow list.",
		})
	}
	if target.Scheme == "https" && resp.Header.Get("Strict-Transport-Security") == "" {
		found = append(found, scanning.Vulnerability{
			Type:        "medium",
			Name:        "Missing Strict-Transport-Security",
			Description: "Browsers may retry over plain HTTP, enabling downgrade attacks.",
			Fix:         "Add Strict-Transport-Security: max-age=31536000; includeSubDomains.",
		})
	}
	if resp.Header.Get("X-Frame-Options") == "" {
		found = append(found, scanning.Vulnerability{
			Type:        "medium",
			Name:        "Missing X-Frame-Options",
			Description: "The site can be framed by other origins, enabling clickjacking.",
			Fix:         "Add X-Frame-Options: DENY or a frame-ancestors CSP directive.",
		})
	}
	if resp.Header.Get("X-Content-Type-Options") == "" {
		found = append(found, scanning.Vulnerability{
			Type:        "low",
			Name:        "Missing X-Content-Type-Options",
			Description: "Browsers may MIME-sniff responses into executable types.",
			Fix:         "Add X-Content-Type-Options: nosniff.",
		})
	}
	if resp.Header.Get("Referrer-Policy") == "" {
		found = append(found, scanning.Vulnerability{
			Type:        "low",
			Name:        "Missing Referrer-Policy",
			Description: "Full URLs leak to third-party origins through the Referer header.",
			Fix:         "Add Referrer-Policy: strict-origin-when-cross-origin.",
		})
	}
	if server := resp.Header.Get("Server"); isVerboseServerHeader(server) {
		found = append(found, scanning.Vulnerability{
			Type:        "low",
			Name:        "Verbose Server header",
			Description: fmt.Sprintf("The Server header advertises %q, easing targeted exploitation.", server),
			Fix:         "Strip or genericize the Server header at the edge.",
		})
	}

	if hasExposedAPIKey(body) {
		found = append(found, scanning.Vulnerability{
			Type:        "high",
			Name:        "Exposed API key",
			Description: "A model-provider API key is embedded in the served page.",
			Fix:         "Revoke the key and move provider calls behind a server-side proxy.",
		})
	}
	if referencesAIEndpoint(body) {
		found = append(found, scanning.Vulnerability{
			Type:        "medium",
			Name:        "Client-side AI endpoint",
			Description: "The page calls a model provider directly from the browser.",
			Fix:         "Route inference through a backend that holds the credentials.",
		})
	}
	if s.robotsPermitsAICrawlers(ctx, target) {
		found = append(found, scanning.Vulnerability{
			Type:        "low",
			Name:        "AI crawlers permitted",
			Description: "robots.txt does not restrict AI training crawlers.",
			Fix:         "Add Disallow rules for GPTBot, CCBot, and anthropic-ai if unwanted.",
		})
	}

	return found
}

var aiCrawlerAgents = []string{"gptbot", "ccbot", "anthropic-ai"}

// robotsPermitsAICrawlers is best effort: an unreachable or missing
// robots.txt is not reported.
func (s *Scanner) robotsPermitsAICrawlers(ctx context.Context, target *url.URL) bool {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false
	}

	lowered := strings.ToLower(string(body))
	for _, agent := range aiCrawlerAgents {
		if strings.Contains(lowered, agent) {
			return false
		}
	}
	return true
}

func isVerboseServerHeader(server string) bool {
	// "nginx" is fine; "nginx/1.18.0 (Ubuntu)" is a finding.
	return strings.ContainsAny(server, "/0123456789")
}

func scoreFor(vulnerabilities []scanning.Vulnerability) int {
	score := 100
	for _, v := range vulnerabilities {
		switch v.Type {
		case "high":
			score -= highPenalty
		case "medium":
			score -= mediumPenalty
		case "low":
			score -= lowPenalty
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

func gradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 70:
		return "B"
	case score >= 50:
		return "C"
	case score >= 30:
		return "D"
	default:
		return "F"
	}
}

func normalizeTarget(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("empty target url")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	target, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid target url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}
	if target.Hostname() == "" {
		return nil, fmt.Errorf("target url has no host")
	}
	return target, nil
}

func newScanID() uuid.UUID {
	id, err := uuid.NewV6()
	if err != nil {
		return uuid.New()
	}
	return id
}
