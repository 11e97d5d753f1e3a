// Package controller provides output adapters for displaying coverage verification results.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeCheck StartMode = iota
	ModeList
	ModeMatch
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// Mode returns the selected mode.
func (c StartConfig) Mode() StartMode {
	return c.mode
}

// WithCheckMode sets the UI to coverage check mode.
func WithCheckMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
	}
}

// WithListMode sets the UI to dry-run listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithMatchMode sets the UI to file consistency mode.
func WithMatchMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeMatch
	}
}

func newStartConfig(options ...StartOption) StartConfig {
	config := StartConfig{mode: ModeCheck}
	for _, option := range options {
		option(&config)
	}

	return config
}

// UI defines the interface for displaying verification progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, info m.RunInfo)
	DisplayVerdict(ctx context.Context, verdict m.Verdict)
	DisplayDiagnostic(ctx context.Context, verdict m.Verdict)
	DisplaySummary(ctx context.Context, summary m.Summary)
	DisplayUnits(ctx context.Context, plans []m.UnitPlan) error
	DisplayConsistency(ctx context.Context, report m.ConsistencyReport, strict bool)
	DisplayReport(ctx context.Context, report m.RunReport)
}

// NewUI returns the interactive TUI when tty is set and the plain SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
