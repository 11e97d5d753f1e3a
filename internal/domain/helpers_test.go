package domain

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	"unitcov.dev/pkg/unitcov/internal/controller"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// writeProjectFile creates root/rel with content, making parent directories.
func writeProjectFile(t *testing.T, root m.Path, rel, content string) {
	t.Helper()

	full := filepath.Join(string(root), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}

	require.NoError(t, err)

	return true
}

type mockTestRunner struct {
	mock.Mock
}

func (r *mockTestRunner) RunCoverage(ctx context.Context, run adapter.CoverageRun) (adapter.CoverageResult, error) {
	args := r.Called(ctx, run)
	return args.Get(0).(adapter.CoverageResult), args.Error(1)
}

// touchArtifact makes a mocked run leave its coverage data file behind.
func touchArtifact(t *testing.T) func(mock.Arguments) {
	t.Helper()

	return func(args mock.Arguments) {
		run := args.Get(1).(adapter.CoverageRun)
		assert.NoError(t, os.WriteFile(run.DataFile, []byte("data"), 0o644))
	}
}

// waitForCancel makes a mocked run hang until its context ends.
func waitForCancel(args mock.Arguments) {
	<-args.Get(0).(context.Context).Done()
}

type recordingUI struct {
	mu          sync.Mutex
	modes       []controller.StartMode
	info        []m.RunInfo
	lines       []string
	verdicts    []m.Verdict
	diagnostics []string
	summaries   []m.Summary
	plans       []m.UnitPlan
	consistency []m.ConsistencyReport
	reports     []m.RunReport
	closed      int
}

var _ controller.UI = (*recordingUI)(nil)

func (u *recordingUI) Start(_ context.Context, options ...controller.StartOption) error {
	var config controller.StartConfig
	for _, option := range options {
		option(&config)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.modes = append(u.modes, config.Mode())

	return nil
}

func (u *recordingUI) Close(_ context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed++
}

func (u *recordingUI) Wait(_ context.Context) {}

func (u *recordingUI) DisplayRunInfo(_ context.Context, info m.RunInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.info = append(u.info, info)
}

func (u *recordingUI) DisplayVerdict(_ context.Context, verdict m.Verdict) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lines = append(u.lines, verdict.Line())
	u.verdicts = append(u.verdicts, verdict)
}

func (u *recordingUI) DisplayDiagnostic(_ context.Context, verdict m.Verdict) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.diagnostics = append(u.diagnostics, verdict.Diagnostic())
}

func (u *recordingUI) DisplaySummary(_ context.Context, summary m.Summary) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.summaries = append(u.summaries, summary)
}

func (u *recordingUI) DisplayUnits(_ context.Context, plans []m.UnitPlan) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.plans = append(u.plans, plans...)

	return nil
}

func (u *recordingUI) DisplayConsistency(_ context.Context, report m.ConsistencyReport, _ bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.consistency = append(u.consistency, report)
}

func (u *recordingUI) DisplayReport(_ context.Context, report m.RunReport) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.reports = append(u.reports, report)
}
