package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

const (
	defaultDNSEndpoint = "https://dns.google/resolve"
	defaultGeoEndpoint = "http://ip-api.com/json"
)

// Resolver maps a hostname to its serving IP and a coarse physical location.
// Both lookups are best effort: scan results degrade to an empty location
// rather than failing.
type Resolver struct {
	dnsEndpoint string
	geoEndpoint string
	client      *http.Client
	logger      *logrus.Logger
}

type Option func(*Resolver)

// WithEndpoints overrides the lookup services, used by tests.
func WithEndpoints(dnsEndpoint, geoEndpoint string) Option {
	return func(r *Resolver) {
		r.dnsEndpoint = dnsEndpoint
		r.geoEndpoint = geoEndpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

func NewResolver(logger *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		dnsEndpoint: defaultDNSEndpoint,
		geoEndpoint: defaultGeoEndpoint,
		client:      &http.Client{Timeout: 5 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locate resolves the host's A record and geolocates the address. A zero
// Location with no error means the lookups failed softly.
func (r *Resolver) Locate(ctx context.Context, host string) scanning.Location {
	ip, err := r.resolveA(ctx, host)
	if err != nil {
		r.logger.WithError(err).WithField("host", host).Debug("dns lookup failed")
		return scanning.Location{}
	}

	location, err := r.geolocate(ctx, ip)
	if err != nil {
		r.logger.WithError(err).WithField("ip", ip).Debug("geo lookup failed")
		return scanning.Location{IP: ip}
	}
	location.IP = ip
	return location
}

func (r *Resolver) resolveA(ctx context.Context, host string) (string, error) {
	lookup := fmt.Sprintf("%s?name=%s&type=A", r.dnsEndpoint, url.QueryEscape(host))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dns resolver returned status %d", resp.StatusCode)
	}

	var answer struct {
		Answer []struct {
			Type int    `json:"type"`
			Data string `json:"data"`
		} `json:"Answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", err
	}
	for _, record := range answer.Answer {
		if record.Type == 1 {
			return record.Data, nil
		}
	}
	return "", fmt.Errorf("no A record for %s", host)
}

func (r *Resolver) geolocate(ctx context.Context, ip string) (scanning.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.geoEndpoint+"/"+ip, nil)
	if err != nil {
		return scanning.Location{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return scanning.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scanning.Location{}, fmt.Errorf("geo service returned status %d", resp.StatusCode)
	}

	var geo struct {
		Status  string `json:"status"`
		Country string `json:"country"`
		City    string `json:"city"`
		ISP     string `json:"isp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return scanning.Location{}, err
	}
	if geo.Status != "success" {
		return scanning.Location{}, fmt.Errorf("geo lookup failed for %s", ip)
	}
	return scanning.Location{
		Country: geo.Country,
		City:    geo.City,
		ISP:     geo.ISP,
	}, nil
}
