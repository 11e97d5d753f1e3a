package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

func makePlans(n int) []m.UnitPlan {
	plans := make([]m.UnitPlan, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("mod%02d.py", i)
		plans = append(plans, m.UnitPlan{
			Unit: m.SourceUnit{Path: m.Path("pkg/" + name), Size: 1},
			Test: m.Path("test/pkg/test_" + name),
		})
	}

	return plans
}

func TestTUI_DisplayUnits_Empty(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	err := tui.DisplayUnits(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "No source files found")
}

func TestTUI_DisplayUnits_SmallList(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	plans := makePlans(2)
	plans = append(plans, m.UnitPlan{Unit: m.SourceUnit{Path: "pkg/__init__.py"}, Empty: true})
	plans[1].Expectation = m.ExpectExcluded

	err := tui.DisplayUnits(context.Background(), plans)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Unitcov - Per-Unit Coverage")
	assert.Contains(t, output, "pkg/mod00.py: covered -> test/pkg/test_mod00.py")
	assert.Contains(t, output, "pkg/mod01.py: excluded -> test/pkg/test_mod01.py")
	assert.Contains(t, output, "pkg/__init__.py: empty -> -")
	assert.Contains(t, output, "Total: 3 file(s), 1 excluded")
}

func TestUnitListModel_Pagination(t *testing.T) {
	model := newUnitListModel(makePlans(30))

	assert.False(t, model.needsPagination(), "no terminal size yet")

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 22})
	model = updated.(unitListModel)

	require.Equal(t, 10, model.itemsPerPage())
	assert.True(t, model.needsPagination())
	assert.Equal(t, 20, model.maxOffset())

	view := model.View()
	assert.Contains(t, view, "Page 1/3 | Showing 1-10 of 30")
	assert.Contains(t, view, "pkg/mod09.py")
	assert.NotContains(t, view, "pkg/mod10.py")
}

func TestUnitListModel_Navigation(t *testing.T) {
	tests := []struct {
		name       string
		keys       []tea.KeyMsg
		wantOffset int
	}{
		{"down", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("j")}}, 1},
		{"up clamps at zero", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("k")}}, 0},
		{"bottom", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("G")}}, 20},
		{"page down", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("d")}}, 10},
		{"page down clamps", []tea.KeyMsg{
			{Type: tea.KeyRunes, Runes: []rune("d")},
			{Type: tea.KeyRunes, Runes: []rune("d")},
			{Type: tea.KeyRunes, Runes: []rune("d")},
		}, 20},
		{"page up after bottom", []tea.KeyMsg{
			{Type: tea.KeyRunes, Runes: []rune("G")},
			{Type: tea.KeyRunes, Runes: []rune("u")},
		}, 10},
		{"top", []tea.KeyMsg{
			{Type: tea.KeyRunes, Runes: []rune("G")},
			{Type: tea.KeyRunes, Runes: []rune("g")},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newUnitListModel(makePlans(30))
			model.height = 22

			for _, key := range tt.keys {
				updated, _ := model.Update(key)
				model = updated.(unitListModel)
			}

			assert.Equal(t, tt.wantOffset, model.offset)
		})
	}
}

func TestUnitListModel_Quit(t *testing.T) {
	model := newUnitListModel(makePlans(3))

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.True(t, updated.(unitListModel).quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestProgressModel_Counts(t *testing.T) {
	model := newProgressModel()

	for _, kind := range []m.VerdictKind{m.Covered, m.Uncovered, m.Skipped, m.TimedOut} {
		updated, _ := model.Update(verdictMsg{kind: kind})
		model = updated.(progressModel)
	}

	assert.Equal(t, 4, model.checked)
	assert.Equal(t, 2, model.failures)
	assert.Contains(t, model.View(), "4 checked, 2 failed")

	updated, cmd := model.Update(finishMsg{})
	model = updated.(progressModel)

	assert.Empty(t, model.View())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTUI_WithoutProgramPrintsDirectly(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)

	require.NoError(t, tui.Start(context.Background(), WithMatchMode()))

	tui.DisplayVerdict(context.Background(), m.Verdict{Kind: m.Covered, Source: "pkg/a.py"})
	tui.DisplaySummary(context.Background(), m.Summary{Total: 1, Counts: map[m.VerdictKind]int{m.Covered: 1}})
	tui.Close(context.Background())

	output := buf.String()
	assert.True(t, strings.HasPrefix(output, "pkg/a.py: ok\n"), output)
	assert.Contains(t, output, "All 1 unit(s) passed")
}

func TestTUI_CheckModeLifecycle(t *testing.T) {
	var buf bytes.Buffer
	tui := NewTUI(&buf)
	ctx := context.Background()

	require.NoError(t, tui.Start(ctx, WithCheckMode()))

	tui.DisplayVerdict(ctx, m.Verdict{Kind: m.Covered, Source: "pkg/a.py"})
	tui.DisplayVerdict(ctx, m.Verdict{Kind: m.Uncovered, Source: "pkg/b.py", Test: "test/pkg/test_b.py", ExitCode: 1})
	tui.DisplaySummary(ctx, m.Summary{Total: 2, Failures: 1, Counts: map[m.VerdictKind]int{m.Covered: 1, m.Uncovered: 1}})
	tui.Close(ctx)

	output := buf.String()
	assert.Contains(t, output, "pkg/a.py: ok")
	assert.Contains(t, output, "pkg/b.py: not covered")
	assert.Contains(t, output, "1 of 2 unit(s) failed")
}
