package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

func sendVerdicts(verdicts ...m.Verdict) <-chan m.Verdict {
	ch := make(chan m.Verdict, len(verdicts))
	for _, verdict := range verdicts {
		ch <- verdict
	}

	close(ch)

	return ch
}

func TestAggregator_Consume(t *testing.T) {
	ui := &recordingUI{}
	aggregator := NewAggregator(ui, t.TempDir())

	summary, err := aggregator.Consume(context.Background(), sendVerdicts(
		m.Verdict{Kind: m.Covered, Source: "pkg/a.py"},
		m.Verdict{Kind: m.Uncovered, Source: "pkg/b.py", Test: "test/pkg/test_b.py", ExitCode: 1, Stdout: "missing 3"},
		m.Verdict{Kind: m.Skipped, Source: "pkg/__init__.py", Reason: m.ReasonEmpty},
		m.Verdict{Kind: m.Excluded, Source: "pkg/c.py"},
		m.Verdict{Kind: m.NowPassing, Source: "pkg/d.py", Test: "test/pkg/test_d.py"},
	))
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Failures)
	assert.False(t, summary.OK())
	assert.Equal(t, 1, summary.Counts[m.Covered])
	assert.Equal(t, 1, summary.Counts[m.Uncovered])
	assert.Equal(t, 1, summary.Counts[m.Skipped])

	assert.Equal(t, []string{
		"pkg/a.py: ok",
		"pkg/b.py: not covered",
		"pkg/__init__.py: empty",
		"pkg/c.py: excluded",
		"pkg/d.py: now covered",
	}, ui.lines)

	require.Len(t, ui.diagnostics, 2)
	assert.Contains(t, ui.diagnostics[0], "missing 3")
	assert.Contains(t, ui.diagnostics[1], "Remove it from the exclusion list.")

	require.Len(t, summary.Failed, 2)
	assert.Equal(t, "pkg/b.py", summary.Failed[0].Source)
	assert.Equal(t, "now covered", summary.Failed[1].Verdict)
}

func TestAggregator_AllPassing(t *testing.T) {
	ui := &recordingUI{}

	summary, err := NewAggregator(ui, t.TempDir()).Consume(context.Background(), sendVerdicts(
		m.Verdict{Kind: m.Covered, Source: "pkg/a.py"},
		m.Verdict{Kind: m.Excluded, Source: "pkg/b.py"},
	))
	require.NoError(t, err)

	assert.True(t, summary.OK())
	assert.Empty(t, ui.diagnostics)
	assert.Empty(t, summary.Failed)
}

func TestAggregator_EmptyStream(t *testing.T) {
	summary, err := NewAggregator(&recordingUI{}, t.TempDir()).Consume(context.Background(), sendVerdicts())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Total)
	assert.True(t, summary.OK())
}
