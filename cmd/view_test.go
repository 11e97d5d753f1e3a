package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

func TestViewCmd_PositionalReport(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	mockWorkflow.On("View", mock.Anything, domain.ViewArgs{Report: m.Path("run.yaml")}).Return(nil)

	_, err := executeCommand(newViewCmd(), "view", "run.yaml")
	require.NoError(t, err)
}

func TestViewCmd_UsesConfiguredReport(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)

	// Rebind report.path to an unchanged flag.
	newCheckCmd()
	t.Setenv("UNITCOV_REPORT_PATH", "reports/latest.yaml")

	mockWorkflow.On("View", mock.Anything, mock.MatchedBy(func(args domain.ViewArgs) bool {
		return args.Report == m.Path("reports/latest.yaml")
	})).Return(nil)

	_, err := executeCommand(newViewCmd(), "view")
	require.NoError(t, err)
}

func TestViewCmd_NoReport(t *testing.T) {
	withMockWorkflow(t)
	newCheckCmd()

	_, err := executeCommand(newViewCmd(), "view")
	require.ErrorIs(t, err, errNoReport)
}

func TestViewCmd_TooManyArgs(t *testing.T) {
	withMockWorkflow(t)

	_, err := executeCommand(newViewCmd(), "view", "a.yaml", "b.yaml")
	assert.Error(t, err)
}
