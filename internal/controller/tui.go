package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer
	styles tagStyles

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, styles: newTagStyles(lipgloss.NewRenderer(output))}
}

// Start launches the live progress view in check mode. Other modes render on demand.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if newStartConfig(options...).Mode() != ModeCheck {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	program := tea.NewProgram(newProgressModel(), tea.WithOutput(t.output), tea.WithInput(nil), tea.WithoutSignalHandler())
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Error("Failed to run progress view", "error", err)
		}
	}()

	t.program = program
	t.done = done

	return nil
}

// Close stops the progress view if it is still running.
func (t *TUI) Close(_ context.Context) {
	t.stop()
}

// Wait is a no-op: interactive views block inside the call that renders them.
func (t *TUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayRunInfo prints the run settings above the progress view.
func (t *TUI) DisplayRunInfo(ctx context.Context, info m.RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.println(formatRunInfo(info))
}

// DisplayVerdict prints the verdict line above the progress view and updates its counters.
func (t *TUI) DisplayVerdict(ctx context.Context, verdict m.Verdict) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.mu.Lock()
	if t.program != nil {
		t.program.Send(verdictMsg{kind: verdict.Kind})
	}
	t.mu.Unlock()

	t.println(t.styles.line(verdict))
}

// DisplayDiagnostic prints the full message of a failing verdict.
func (t *TUI) DisplayDiagnostic(ctx context.Context, verdict m.Verdict) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.println("\n" + verdict.Diagnostic())
}

// DisplaySummary stops the progress view and prints the per-kind counts.
func (t *TUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.stop()

	_, _ = fmt.Fprintf(t.output, "\n%s%s\n", renderSummaryTable(summary), formatOutcome(summary))
}

// DisplayUnits shows the planned checks, paginated when they do not fit the terminal.
func (t *TUI) DisplayUnits(ctx context.Context, plans []m.UnitPlan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newUnitListModel(plans)

	// Get initial terminal size
	if f, ok := t.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If list is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(t.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// DisplayConsistency prints the result of matching source and test files.
func (t *TUI) DisplayConsistency(ctx context.Context, report m.ConsistencyReport, strict bool) {
	if err := ctx.Err(); err != nil {
		return
	}

	writeConsistency(t.output, report, strict)
}

// DisplayReport prints a persisted run report.
func (t *TUI) DisplayReport(ctx context.Context, report m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	writeReport(t.output, report)
}

// println writes through the running program so lines stay above the live
// view, or directly once it has stopped.
func (t *TUI) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		select {
		case <-t.done:
		default:
			t.program.Println(line)
			return
		}
	}

	_, _ = fmt.Fprintln(t.output, line)
}

func (t *TUI) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program == nil {
		return
	}

	t.program.Send(finishMsg{})
	<-t.done

	t.program = nil
	t.done = nil
}

type verdictMsg struct {
	kind m.VerdictKind
}

type finishMsg struct{}

// progressModel is the live view shown while checks run.
type progressModel struct {
	spinner  spinner.Model
	checked  int
	failures int
	finished bool
}

func newProgressModel() progressModel {
	return progressModel{spinner: spinner.New(spinner.WithSpinner(spinner.Dot))}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case verdictMsg:
		pm.checked++
		if msg.kind.IsFailure() {
			pm.failures++
		}

		return pm, nil

	case finishMsg:
		pm.finished = true
		return pm, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	}

	return pm, nil
}

func (pm progressModel) View() string {
	if pm.finished {
		return ""
	}

	return fmt.Sprintf("%s %d checked, %d failed\n", pm.spinner.View(), pm.checked, pm.failures)
}

// unitListModel represents the Bubble Tea model for the dry-run unit list.
type unitListModel struct {
	plans    []m.UnitPlan
	height   int
	width    int
	offset   int // Current scroll offset
	quitting bool
}

func newUnitListModel(plans []m.UnitPlan) unitListModel {
	return unitListModel{plans: plans}
}

func (ulm unitListModel) Init() tea.Cmd {
	return nil
}

func (ulm unitListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ulm.height = msg.Height
		ulm.width = msg.Width

		return ulm, nil

	case tea.KeyMsg:
		return ulm.handleKeyPress(msg)
	}

	return ulm, nil
}

//nolint:cyclop,exhaustive // Key handling requires multiple cases for UI navigation
func (ulm unitListModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		ulm.quitting = true
		return ulm, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		ulm.quitting = true
		return ulm, tea.Quit

	case "down", "j":
		ulm.offset = min(ulm.offset+1, ulm.maxOffset())
		return ulm, nil

	case "up", "k":
		ulm.offset = max(ulm.offset-1, 0)
		return ulm, nil

	case "g", "home":
		ulm.offset = 0
		return ulm, nil

	case "G", "end":
		ulm.offset = ulm.maxOffset()
		return ulm, nil

	case "d", "pgdown":
		ulm.offset = min(ulm.offset+ulm.itemsPerPage(), ulm.maxOffset())
		return ulm, nil

	case "u", "pgup":
		ulm.offset = max(ulm.offset-ulm.itemsPerPage(), 0)
		return ulm, nil
	}

	return ulm, nil
}

// itemsPerPage calculates how many items can fit on screen.
func (ulm unitListModel) itemsPerPage() int {
	if ulm.height == 0 {
		return 10 // Default
	}
	// Header box and blank (4), title (2), total (2), footer (3), top margin (1).
	reserved := 12

	available := ulm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// maxOffset returns the maximum scroll offset.
func (ulm unitListModel) maxOffset() int {
	maxOff := len(ulm.plans) - ulm.itemsPerPage()
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

// needsPagination returns true if the list is too large to fit on screen.
func (ulm unitListModel) needsPagination() bool {
	if len(ulm.plans) == 0 {
		return false
	}

	return len(ulm.plans) > ulm.itemsPerPage() && ulm.height > 0
}

func (ulm unitListModel) View() string {
	var b strings.Builder

	ulm.renderHeader(&b)

	if len(ulm.plans) == 0 {
		b.WriteString("  📭 No source files found\n")
		return b.String()
	}

	ulm.renderUnitList(&b)

	return b.String()
}

func (ulm unitListModel) renderHeader(b *strings.Builder) {
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║                  Unitcov - Per-Unit Coverage                   ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")
}

func (ulm unitListModel) renderUnitList(b *strings.Builder) {
	total := len(ulm.plans)

	b.WriteString("  🔎 planned checks:\n\n")

	itemsPerPage := ulm.itemsPerPage()
	needsPagination := ulm.needsPagination()

	start := min(ulm.offset, max(total-1, 0))
	end := min(start+itemsPerPage, total)

	displayPlans := ulm.plans
	if needsPagination {
		displayPlans = ulm.plans[start:end]
	}

	excluded := 0

	for _, plan := range ulm.plans {
		if !plan.Empty && plan.Expectation == m.ExpectExcluded {
			excluded++
		}
	}

	for _, plan := range displayPlans {
		row := unitRow(plan)
		fmt.Fprintf(b, "  %s: %s -> %s\n", row[0], row[1], row[2])
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "  📊 Total: %d file(s), %d excluded\n", total, excluded)

	// Footer with navigation help
	if needsPagination {
		b.WriteString("\n")

		currentPage := (ulm.offset / itemsPerPage) + 1
		totalPages := (total + itemsPerPage - 1) / itemsPerPage
		fmt.Fprintf(b, "  Page %d/%d | Showing %d-%d of %d\n",
			currentPage, totalPages, start+1, end, total)
		b.WriteString("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit\n")
	}
}
