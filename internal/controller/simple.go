package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd    *cobra.Command
	styles tagStyles
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, styles: newTagStyles(lipgloss.NewRenderer(cmd.OutOrStdout()))}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayRunInfo prints the run settings.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info m.RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", formatRunInfo(info))
}

// DisplayVerdict prints the one-line form of a verdict.
func (s *SimpleUI) DisplayVerdict(ctx context.Context, verdict m.Verdict) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", s.styles.line(verdict))
}

// DisplayDiagnostic prints the full message of a failing verdict.
func (s *SimpleUI) DisplayDiagnostic(ctx context.Context, verdict m.Verdict) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s\n", verdict.Diagnostic())
}

// DisplaySummary prints the per-kind counts.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(summary))
	s.printf("%s\n", formatOutcome(summary))
}

// DisplayUnits prints the planned checks without running them.
func (s *SimpleUI) DisplayUnits(ctx context.Context, plans []m.UnitPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderUnitTable(plans))

	return nil
}

// DisplayConsistency prints the result of matching source and test files.
func (s *SimpleUI) DisplayConsistency(ctx context.Context, report m.ConsistencyReport, strict bool) {
	if err := ctx.Err(); err != nil {
		return
	}

	writeConsistency(s.cmd.OutOrStdout(), report, strict)
}

// DisplayReport prints a persisted run report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	writeReport(s.cmd.OutOrStdout(), report)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// tagStyles colours verdict tags. Renderers bound to a non-terminal writer
// produce plain text.
type tagStyles struct {
	pass lipgloss.Style
	fail lipgloss.Style
	skip lipgloss.Style
}

func newTagStyles(renderer *lipgloss.Renderer) tagStyles {
	return tagStyles{
		pass: renderer.NewStyle().Foreground(lipgloss.Color("2")),
		fail: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skip: renderer.NewStyle().Faint(true),
	}
}

func (ts tagStyles) line(verdict m.Verdict) string {
	style := ts.pass

	switch {
	case verdict.Kind.IsFailure():
		style = ts.fail
	case verdict.Kind == m.Skipped:
		style = ts.skip
	}

	return fmt.Sprintf("%s: %s", verdict.Source, style.Render(verdict.Tag()))
}

func formatRunInfo(info m.RunInfo) string {
	packages := make([]string, 0, len(info.Packages))
	for _, p := range info.Packages {
		packages = append(packages, string(p))
	}

	line := fmt.Sprintf("Checking %s with %d parallel run(s), threshold %d%%, timeout %s",
		strings.Join(packages, ", "), info.Budget, info.Threshold, info.Timeout)

	if info.ShardCount > 1 {
		line += fmt.Sprintf(" (shard %d/%d)", info.ShardIndex, info.ShardCount)
	}

	return line
}

func formatOutcome(summary m.Summary) string {
	if summary.OK() {
		return fmt.Sprintf("All %d unit(s) passed", summary.Total)
	}

	return fmt.Sprintf("%d of %d unit(s) failed", summary.Failures, summary.Total)
}

func renderSummaryTable(summary m.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Verdict", "Units"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER})

	for _, kind := range m.AllVerdictKinds {
		count := summary.Counts[kind]
		if count == 0 {
			continue
		}

		table.Append([]string{kind.String(), fmt.Sprintf("%d", count)})
	}

	table.SetFooter([]string{"Total", fmt.Sprintf("%d", summary.Total)})
	table.Render()

	return tableBuffer.String()
}

func renderUnitTable(plans []m.UnitPlan) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Expectation", "Test"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, plan := range plans {
		table.Append(unitRow(plan))
	}

	table.SetFooter([]string{fmt.Sprintf("Total Files %d", len(plans)), "", ""})
	table.Render()

	return tableBuffer.String()
}

func unitRow(plan m.UnitPlan) []string {
	if plan.Empty {
		return []string{string(plan.Unit.Path), m.ReasonEmpty, "-"}
	}

	return []string{string(plan.Unit.Path), plan.Expectation.String(), string(plan.Test)}
}

func writeReport(w io.Writer, report m.RunReport) {
	_, _ = fmt.Fprintf(w, "Run %s: %s, threshold %d%%, %s to %s\n",
		report.RunID, strings.Join(report.Packages, ", "), report.Threshold,
		report.StartedAt.Format(time.RFC3339), report.FinishedAt.Format(time.RFC3339))

	for _, entry := range report.Failures {
		_, _ = fmt.Fprintf(w, "\n%s\n", entry.Diagnostic)
	}

	summary := report.Summary()
	_, _ = fmt.Fprintf(w, "\n%s%s\n", renderSummaryTable(summary), formatOutcome(summary))
}

func writeConsistency(w io.Writer, report m.ConsistencyReport, strict bool) {
	for _, pair := range report.MissingTests {
		_, _ = fmt.Fprintf(w, "%s: missing test %s\n", pair.File, pair.Expected)
	}

	for _, pair := range report.UnknownTests {
		_, _ = fmt.Fprintf(w, "%s: no source file %s\n", pair.File, pair.Expected)
	}

	switch {
	case len(report.MissingTests) == 0 && len(report.UnknownTests) == 0:
		_, _ = fmt.Fprintln(w, "All source files have matching test files")
	case strict || len(report.MissingTests) > 0:
		_, _ = fmt.Fprintf(w, "%d missing test file(s), %d unknown test file(s)\n",
			len(report.MissingTests), len(report.UnknownTests))
	default:
		_, _ = fmt.Fprintf(w, "%d unknown test file(s) ignored, use --strict to fail on them\n",
			len(report.UnknownTests))
	}
}
