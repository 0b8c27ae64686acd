package filescan

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sentinel/aegis/pkg/app/classification"
	"github.com/aegis-sentinel/aegis/pkg/common"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/infra/virustotal"
)

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Process(ctx context.Context, req classification.Request) classification.Outcome {
	args := m.Called(ctx, req)
	return args.Get(0).(classification.Outcome)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) ScanFile(ctx context.Context, filename string, content []byte, apiKey string) (*virustotal.ScanStats, error) {
	args := m.Called(ctx, filename, content, apiKey)
	if stats, ok := args.Get(0).(*virustotal.ScanStats); ok {
		return stats, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyzer) Configured() bool {
	args := m.Called()
	return args.Bool(0)
}

type mockScanLogRepo struct {
	mock.Mock
}

func (m *mockScanLogRepo) Create(ctx context.Context, entry *scanning.ScanLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockScanLogRepo) ListRecent(ctx context.Context, limit int) ([]scanning.ScanLogEntry, error) {
	args := m.Called(ctx, limit)
	if entries, ok := args.Get(0).([]scanning.ScanLogEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestScanner(pipeline Pipeline, analyzer Analyzer, repo scanning.ScanLogRepository) *Scanner {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewScanner(pipeline, analyzer, repo, logger)
}

func TestIsCodeFile(t *testing.T) {
	assert.True(t, IsCodeFile("main.go"))
	assert.True(t, IsCodeFile("app.PY"))
	assert.True(t, IsCodeFile("schema.sql"))
	assert.False(t, IsCodeFile("report.pdf"))
	assert.False(t, IsCodeFile("dropper.exe"))
	assert.False(t, IsCodeFile("noextension"))
}

func TestScan_CodeFileRoutedToStaticAnalysis(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	pipeline.On("Process", mock.Anything, mock.MatchedBy(func(req classification.Request) bool {
		return req.Mode == scanning.ModeCodeScan && req.Content == "os.system(user_input)"
	})).Return(classification.Outcome{
		ID: "entry-1",
		Result: scanning.Result{
			Verdict:        scanning.VerdictWarning,
			RiskScore:      55,
			ThreatType:     "Command Injection",
			AttackCategory: scanning.CategoryCodeVulnerability,
		},
		Persisted: true,
	})

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "run.py", []byte("os.system(user_input)"), "", common.GuestCaller())

	require.NoError(t, err)
	assert.Equal(t, ScannerTypeSAST, outcome.ScannerType)
	assert.False(t, outcome.IsClean)
	assert.Equal(t, "entry-1", outcome.ID)
	analyzer.AssertNotCalled(t, "ScanFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScan_BinaryWithMalwareDetected(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("Configured").Return(true)
	analyzer.On("ScanFile", mock.Anything, "dropper.exe", mock.Anything, "").
		Return(&virustotal.ScanStats{Malicious: 14, Suspicious: 2, Undetected: 50}, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).Return(nil)

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "dropper.exe", []byte{0x4d, 0x5a}, "", common.GuestCaller())

	require.NoError(t, err)
	assert.Equal(t, ScannerTypeAV, outcome.ScannerType)
	assert.False(t, outcome.IsClean)
	assert.Equal(t, scanning.VerdictBlocked, outcome.Result.Verdict)
	assert.Equal(t, scanning.CategoryMalware, outcome.Result.AttackCategory)
	assert.GreaterOrEqual(t, outcome.Result.RiskScore, scanning.BlockedThreshold)
	assert.True(t, outcome.Persisted)
}

func TestScan_BinaryCleanResult(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("Configured").Return(true)
	analyzer.On("ScanFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&virustotal.ScanStats{Harmless: 70}, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).Return(nil)

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "photo.jpg", []byte("jpeg"), "", common.GuestCaller())

	require.NoError(t, err)
	assert.True(t, outcome.IsClean)
	assert.Equal(t, scanning.VerdictSafe, outcome.Result.Verdict)
}

func TestScan_PerRequestKeyForwarded(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("ScanFile", mock.Anything, mock.Anything, mock.Anything, "user-supplied-key").
		Return(&virustotal.ScanStats{Harmless: 10}, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).Return(nil)

	scanner := newTestScanner(pipeline, analyzer, repo)
	_, err := scanner.Scan(context.Background(), "archive.zip", []byte("zip"), "user-supplied-key", common.GuestCaller())

	require.NoError(t, err)
	analyzer.AssertExpectations(t)
}

func TestScan_NoCredentialsServesDemoVerdict(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("Configured").Return(false)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).Return(nil)

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "archive.zip", []byte("zip"), "", common.GuestCaller())

	require.NoError(t, err)
	assert.Equal(t, ScannerTypeDemo, outcome.ScannerType)
	assert.True(t, outcome.IsClean)
	assert.Equal(t, "CLEAN (DEMO)", outcome.Result.Message)
	analyzer.AssertNotCalled(t, "ScanFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScan_AnalyzerOutageFallsBackToDemo(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("Configured").Return(true)
	analyzer.On("ScanFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domainErrors.ErrScanProviderUnavailable)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).Return(nil)

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "archive.zip", []byte("zip"), "", common.GuestCaller())

	require.NoError(t, err)
	assert.Equal(t, ScannerTypeDemo, outcome.ScannerType)
}

func TestScan_PersistFailureYieldsFallbackID(t *testing.T) {
	pipeline := new(mockPipeline)
	analyzer := new(mockAnalyzer)
	repo := new(mockScanLogRepo)

	analyzer.On("Configured").Return(true)
	analyzer.On("ScanFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&virustotal.ScanStats{Harmless: 10}, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*scanning.ScanLogEntry")).
		Return(errors.New("connection reset"))

	scanner := newTestScanner(pipeline, analyzer, repo)
	outcome, err := scanner.Scan(context.Background(), "archive.zip", []byte("zip"), "", common.GuestCaller())

	require.NoError(t, err)
	assert.False(t, outcome.Persisted)
	assert.Contains(t, outcome.ID, "fallback-")
}
