package model

import (
	"fmt"
	"strings"
	"time"
)

// VerdictKind is the classified outcome of checking one source unit.
type VerdictKind int

const (
	// Skipped means no subprocess was needed (empty marker or initializer without logic).
	Skipped VerdictKind = iota
	// StaleExclusion means an initializer without logic is listed as excluded.
	StaleExclusion
	// Excluded means an excluded unit still fails its coverage check, as expected.
	Excluded
	// NowPassing means an excluded unit is now fully covered; the exclusion is obsolete.
	NowPassing
	// Covered means a unit reached the coverage threshold.
	Covered
	// Uncovered means a unit expected to be covered failed its coverage check.
	Uncovered
	// TimedOut means the coverage check did not finish in time.
	TimedOut
	// Malformed means the unit could not be parsed while checking for executable logic.
	Malformed
)

// String returns the console tag for the kind.
func (k VerdictKind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case StaleExclusion:
		return "stale exclusion"
	case Excluded:
		return "excluded"
	case NowPassing:
		return "now covered"
	case Covered:
		return "ok"
	case Uncovered:
		return "not covered"
	case TimedOut:
		return "timeout"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// IsFailure reports whether the kind fails the run.
func (k VerdictKind) IsFailure() bool {
	switch k {
	case StaleExclusion, NowPassing, Uncovered, TimedOut, Malformed:
		return true
	case Skipped, Excluded, Covered:
		return false
	default:
		return true
	}
}

// AllVerdictKinds lists every kind in display order.
var AllVerdictKinds = []VerdictKind{
	Covered, Excluded, Skipped, Uncovered, NowPassing, StaleExclusion, TimedOut, Malformed,
}

// Skip reasons.
const (
	ReasonEmpty   = "empty"
	ReasonNoLogic = "skip __init__.py file without logic"
)

// Verdict is produced exactly once per checked source unit.
type Verdict struct {
	Kind     VerdictKind
	Source   Path
	Test     Path
	Reason   string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Tag returns the short status shown next to the unit path.
func (v Verdict) Tag() string {
	if v.Kind == Skipped && v.Reason != "" {
		return v.Reason
	}

	return v.Kind.String()
}

// Line returns the one-line console form of the verdict.
func (v Verdict) Line() string {
	return fmt.Sprintf("%s: %s", v.Source, v.Tag())
}

// Diagnostic returns the full message for a failing verdict, with enough
// context to reproduce the check by hand.
func (v Verdict) Diagnostic() string {
	switch v.Kind {
	case StaleExclusion:
		return fmt.Sprintf("%s has no executable logic. Remove it from the exclusion list.", v.Source)
	case NowPassing:
		return fmt.Sprintf("%s is now fully covered by %s. Remove it from the exclusion list.", v.Source, v.Test)
	case Uncovered:
		var b strings.Builder

		fmt.Fprintf(&b, "%s is not fully covered by %s (exit code %d):\n", v.Source, v.Test, v.ExitCode)
		b.WriteString(strings.TrimRight(v.Stdout, "\n"))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(v.Stderr, "\n"))

		return b.String()
	case TimedOut:
		return fmt.Sprintf("%s: timeout after %s running %s", v.Source, v.Duration.Round(time.Millisecond), v.Test)
	case Malformed:
		return fmt.Sprintf("%s: cannot check for executable logic: %s", v.Source, v.Reason)
	case Skipped, Excluded, Covered:
		return v.Line()
	default:
		return v.Line()
	}
}

// Entry returns the report form of the verdict.
func (v Verdict) Entry() ReportEntry {
	return ReportEntry{
		Source:     string(v.Source),
		Test:       string(v.Test),
		Verdict:    v.Kind.String(),
		Diagnostic: v.Diagnostic(),
	}
}

// ParseVerdictKind returns the kind whose String form is tag.
func ParseVerdictKind(tag string) (VerdictKind, bool) {
	for _, kind := range AllVerdictKinds {
		if kind.String() == tag {
			return kind, true
		}
	}

	return 0, false
}
