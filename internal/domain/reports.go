package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/google/uuid"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// ErrThresholdMismatch is returned when merging runs checked against different thresholds.
var ErrThresholdMismatch = errors.New("reports use different coverage thresholds")

// ViewArgs contains the arguments for displaying a saved run report.
type ViewArgs struct {
	Report m.Path
}

// MergeArgs contains the arguments for combining the reports of sharded runs.
type MergeArgs struct {
	Inputs []m.Path
	Output m.Path
}

// View displays a previously saved run report.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(ctx, args.Report)
	if err != nil {
		slog.Error("Failed to load run report", "path", args.Report, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	w.DisplayReport(ctx, report)

	return nil
}

// Merge combines the reports of sharded runs into one report. It fails with
// ErrCheckFailed when the combined run has failures, so CI can gate on it.
func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	if len(args.Inputs) == 0 {
		return errors.New("no reports to merge")
	}

	reports := make([]m.RunReport, 0, len(args.Inputs))

	for _, input := range args.Inputs {
		report, err := w.LoadReport(ctx, input)
		if err != nil {
			slog.Error("Failed to load run report", "path", input, "error", err)
			return fmt.Errorf("load report: %w", err)
		}

		reports = append(reports, report)
	}

	merged, err := mergeRunReports(uuid.NewString(), reports)
	if err != nil {
		return err
	}

	if args.Output != "" {
		if err := w.SaveReport(ctx, args.Output, merged); err != nil {
			slog.Error("Failed to save merged report", "path", args.Output, "error", err)
			return fmt.Errorf("save report: %w", err)
		}
	}

	w.DisplayReport(ctx, merged)

	slog.Info("Merged run reports", "run_id", merged.RunID, "inputs", len(reports), "total", merged.Total)

	if failures := merged.Summary().Failures; failures > 0 {
		return fmt.Errorf("%w: %d of %d unit(s)", ErrCheckFailed, failures, merged.Total)
	}

	return nil
}

func mergeRunReports(runID string, reports []m.RunReport) (m.RunReport, error) {
	merged := m.RunReport{
		RunID:  runID,
		Counts: make(map[string]int),
	}

	for i, report := range reports {
		if i == 0 {
			merged.StartedAt = report.StartedAt
			merged.FinishedAt = report.FinishedAt
			merged.Threshold = report.Threshold
		}

		if report.Threshold != merged.Threshold {
			return m.RunReport{}, fmt.Errorf("%w: %d and %d", ErrThresholdMismatch, merged.Threshold, report.Threshold)
		}

		if report.StartedAt.Before(merged.StartedAt) {
			merged.StartedAt = report.StartedAt
		}

		if report.FinishedAt.After(merged.FinishedAt) {
			merged.FinishedAt = report.FinishedAt
		}

		for _, p := range report.Packages {
			if !slices.Contains(merged.Packages, p) {
				merged.Packages = append(merged.Packages, p)
			}
		}

		merged.Budget = max(merged.Budget, report.Budget)
		merged.Total += report.Total

		for tag, count := range report.Counts {
			merged.Counts[tag] += count
		}

		merged.Failures = append(merged.Failures, report.Failures...)
	}

	sort.SliceStable(merged.Failures, func(i, j int) bool {
		return merged.Failures[i].Source < merged.Failures[j].Source
	})

	return merged, nil
}
