package virustotal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
)

func newAnalysisServer(t *testing.T, stats ScanStats) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"id": "analysis-1"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/analyses/analysis-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"attributes": map[string]interface{}{
						"status": "completed",
						"stats":  stats,
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestScanFile_CleanResult(t *testing.T) {
	server := newAnalysisServer(t, ScanStats{Harmless: 60, Undetected: 12})
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	stats, err := client.ScanFile(context.Background(), "sample.bin", []byte("content"), "")

	require.NoError(t, err)
	assert.False(t, stats.Detected())
	assert.Equal(t, 60, stats.Harmless)
}

func TestScanFile_MaliciousResult(t *testing.T) {
	server := newAnalysisServer(t, ScanStats{Malicious: 12, Suspicious: 3, Undetected: 40})
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	stats, err := client.ScanFile(context.Background(), "dropper.exe", []byte("content"), "")

	require.NoError(t, err)
	assert.True(t, stats.Detected())
	assert.Equal(t, 12, stats.Malicious)
}

func TestScanFile_PerRequestKeyOverridesDefault(t *testing.T) {
	server := newAnalysisServer(t, ScanStats{Harmless: 1})
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	_, err := client.ScanFile(context.Background(), "sample.bin", []byte("content"), "test-key")

	require.NoError(t, err)
}

func TestScanFile_NoKeyAnywhere(t *testing.T) {
	client := NewClient("")
	_, err := client.ScanFile(context.Background(), "sample.bin", []byte("content"), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrScanProviderUnavailable))
	assert.False(t, client.Configured())
}

func TestScanFile_UpstreamRejectsUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.ScanFile(context.Background(), "sample.bin", []byte("content"), "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrScanProviderUnavailable))
}
