package domain

import (
	"context"
	"fmt"
	"log/slog"

	"unitcov.dev/pkg/unitcov/internal/controller"
	m "unitcov.dev/pkg/unitcov/internal/model"
	pkg "unitcov.dev/pkg/unitcov/pkg"
)

// Aggregator consumes verdicts as they arrive and derives the run outcome.
type Aggregator interface {
	// Consume displays one line per verdict as soon as it arrives and keeps
	// failing verdicts aside. Once verdicts is closed it displays the full
	// diagnostic of every failure and returns the summary.
	Consume(ctx context.Context, verdicts <-chan m.Verdict) (m.Summary, error)
}

type aggregator struct {
	controller.UI
	spillDir string
}

// NewAggregator constructs an Aggregator that spills failure diagnostics to
// spillDir (empty selects the system temp directory).
func NewAggregator(ui controller.UI, spillDir string) Aggregator {
	return &aggregator{UI: ui, spillDir: spillDir}
}

func (a *aggregator) Consume(ctx context.Context, verdicts <-chan m.Verdict) (m.Summary, error) {
	summary := m.Summary{Counts: make(map[m.VerdictKind]int)}

	failures, err := pkg.NewFileSpill[m.Verdict](a.spillDir)
	if err != nil {
		// Drain so the scheduler can finish.
		for range verdicts {
		}

		return summary, fmt.Errorf("create failure spill: %w", err)
	}

	defer func() {
		if err := failures.Close(); err != nil {
			slog.Error("Failed to close failure spill", "error", err)
		}
	}()

	var spillErr error

	for verdict := range verdicts {
		summary.Total++
		summary.Counts[verdict.Kind]++

		a.DisplayVerdict(ctx, verdict)

		if !verdict.Kind.IsFailure() {
			continue
		}

		summary.Failures++

		if err := failures.Append(verdict); err != nil && spillErr == nil {
			spillErr = err
		}
	}

	if spillErr != nil {
		return summary, fmt.Errorf("record failure: %w", spillErr)
	}

	err = failures.Range(func(_ uint64, verdict m.Verdict) error {
		a.DisplayDiagnostic(ctx, verdict)
		summary.Failed = append(summary.Failed, verdict.Entry())

		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("replay failures: %w", err)
	}

	return summary, nil
}
