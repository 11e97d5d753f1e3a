package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	"unitcov.dev/pkg/unitcov/internal/controller"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// Sentinel errors returned by Workflow. Callers map them to the exit status.
var (
	ErrNoPackages  = errors.New("no package directories given")
	ErrCheckFailed = errors.New("coverage check failed")
	ErrMatchFailed = errors.New("source and test files do not match")
	ErrBadSettings = errors.New("invalid run settings")
)

// CheckArgs contains the arguments for a coverage check run.
type CheckArgs struct {
	Root       m.Path
	Packages   []m.Path
	TestsDir   m.Path
	Exclude    []string
	Parallel   int
	Timeout    time.Duration
	Threshold  int
	Command    []string
	DataEnv    string
	ShardIndex int
	ShardCount int
	ReportPath m.Path
	RunID      string
}

// ListArgs contains the arguments for a dry run.
type ListArgs struct {
	Root     m.Path
	Packages []m.Path
	TestsDir m.Path
	Exclude  []string
}

// MatchArgs contains the arguments for the source/test file consistency check.
type MatchArgs struct {
	Root           m.Path
	Packages       []m.Path
	TestsDir       m.Path
	ExcludeSources []string
	ExcludeTests   []string
	Strict         bool
}

// Workflow defines the top-level operations of the tool.
type Workflow interface {
	Check(ctx context.Context, args CheckArgs) error
	List(ctx context.Context, args ListArgs) error
	Match(ctx context.Context, args MatchArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	controller.UI
	pyAdapter   adapter.PythonFileAdapter
	testAdapter adapter.TestRunnerAdapter
	checker     ConsistencyChecker
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	pyAdapter adapter.PythonFileAdapter,
	testAdapter adapter.TestRunnerAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		pyAdapter:       pyAdapter,
		testAdapter:     testAdapter,
		checker:         NewConsistencyChecker(fsAdapter),
	}
}

// Check verifies every source unit under the package directories against its
// own test module and reports one verdict per unit.
func (w *workflow) Check(ctx context.Context, args CheckArgs) error {
	if len(args.Packages) == 0 {
		return ErrNoPackages
	}

	if err := validateCheckArgs(args); err != nil {
		slog.Error("Invalid run settings", "error", err)
		return err
	}

	matcher, err := CompileExclusions(args.Exclude)
	if err != nil {
		slog.Error("Failed to compile exclusion patterns", "error", err)
		return fmt.Errorf("exclusions: %w", err)
	}

	runID := args.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := slog.With("run_id", runID)

	mapper := NewUnitMapper(w.SourceFSAdapter, w.pyAdapter, args.Root, args.TestsDir)
	budget := NewRunBudget(args.Parallel)
	verifier := NewVerifier(mapper, w.SourceFSAdapter, w.testAdapter, budget, VerifierConfig{
		Root:      args.Root,
		Command:   args.Command,
		DataEnv:   args.DataEnv,
		Threshold: args.Threshold,
		Timeout:   args.Timeout,
	})
	scheduler := NewScheduler(verifier, budget.Size())
	aggregator := NewAggregator(w.UI, "")

	if err := w.Start(ctx, controller.WithCheckMode()); err != nil {
		logger.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	info := m.RunInfo{
		RunID:      runID,
		Packages:   args.Packages,
		Budget:     budget.Size(),
		Timeout:    args.Timeout,
		Threshold:  args.Threshold,
		ShardIndex: args.ShardIndex,
		ShardCount: args.ShardCount,
	}
	w.DisplayRunInfo(ctx, info)
	logger.Info("Starting coverage check", "packages", args.Packages, "budget", info.Budget,
		"exclusions", matcher.Len(), "shard", args.ShardIndex, "shards", args.ShardCount)

	startedAt := time.Now()

	tasks, skipped, enumErrors := w.classify(ctx, args, mapper, matcher)
	verdicts, scheduleErrors := scheduler.Schedule(ctx, tasks)

	summary, consumeErr := aggregator.Consume(ctx, mergeVerdictChannels(skipped, verdicts))

	if err := firstError(mergeErrorChannels(enumErrors, scheduleErrors)); err != nil {
		logger.Error("Coverage check aborted", "error", err)
		return fmt.Errorf("check: %w", err)
	}

	if consumeErr != nil {
		logger.Error("Failed to aggregate verdicts", "error", consumeErr)
		return fmt.Errorf("aggregate: %w", consumeErr)
	}

	w.DisplaySummary(ctx, summary)

	if args.ReportPath != "" {
		report := buildRunReport(info, summary, startedAt, time.Now())
		if err := w.SaveReport(ctx, args.ReportPath, report); err != nil {
			logger.Error("Failed to save run report", "path", args.ReportPath, "error", err)
			return fmt.Errorf("save report: %w", err)
		}
	}

	logger.Info("Coverage check finished", "total", summary.Total, "failures", summary.Failures,
		"duration", time.Since(startedAt))

	if !summary.OK() {
		return fmt.Errorf("%w: %d of %d unit(s)", ErrCheckFailed, summary.Failures, summary.Total)
	}

	return nil
}

// List shows what Check would do for every unit without running anything.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if len(args.Packages) == 0 {
		return ErrNoPackages
	}

	matcher, err := CompileExclusions(args.Exclude)
	if err != nil {
		slog.Error("Failed to compile exclusion patterns", "error", err)
		return fmt.Errorf("exclusions: %w", err)
	}

	mapper := NewUnitMapper(w.SourceFSAdapter, w.pyAdapter, args.Root, args.TestsDir)

	var plans []m.UnitPlan

	for _, pkgDir := range args.Packages {
		for unit, err := range w.Walk(ctx, args.Root, pkgDir, m.SourceExt) {
			if err != nil {
				slog.Error("Failed to enumerate source units", "package", pkgDir, "error", err)
				return fmt.Errorf("enumerate %s: %w", pkgDir, err)
			}

			plans = append(plans, m.UnitPlan{
				Unit:        unit,
				Test:        mapper.TestUnitFor(unit),
				Expectation: matcher.Expectation(unit.Path),
				Empty:       mapper.IsEmptyMarker(unit),
			})
		}
	}

	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayUnits(ctx, plans); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display units", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	// Wait for UI to be closed by user (press 'q')
	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

// Match checks that source files and test files pair up by name.
func (w *workflow) Match(ctx context.Context, args MatchArgs) error {
	if len(args.Packages) == 0 {
		return ErrNoPackages
	}

	report, err := w.checker.Check(ctx, args)
	if err != nil {
		slog.Error("Failed to match source and test files", "error", err)
		return fmt.Errorf("match: %w", err)
	}

	if err := w.Start(ctx, controller.WithMatchMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	w.DisplayConsistency(ctx, report, args.Strict)

	slog.Info("Matched source and test files", "missing", len(report.MissingTests), "unknown", len(report.UnknownTests))

	if len(report.MissingTests) > 0 || (args.Strict && len(report.UnknownTests) > 0) {
		return fmt.Errorf("%w: %d missing, %d unknown", ErrMatchFailed, len(report.MissingTests), len(report.UnknownTests))
	}

	return nil
}

// classify enumerates the source units lazily. Empty markers become verdicts
// right away; every other unit in this shard becomes a task.
func (w *workflow) classify(
	ctx context.Context,
	args CheckArgs,
	mapper UnitMapper,
	matcher *Matcher,
) (<-chan m.Task, <-chan m.Verdict, <-chan error) {
	tasks := make(chan m.Task)
	skipped := make(chan m.Verdict)
	errorChannel := make(chan error, 1)

	go func() {
		defer close(errorChannel)
		defer close(skipped)
		defer close(tasks)

		index := 0

		for _, pkgDir := range args.Packages {
			for unit, err := range w.Walk(ctx, args.Root, pkgDir, m.SourceExt) {
				if err != nil {
					errorChannel <- fmt.Errorf("enumerate %s: %w", pkgDir, err)
					return
				}

				selected := inShard(index, args.ShardIndex, args.ShardCount)
				index++

				if !selected {
					continue
				}

				if mapper.IsEmptyMarker(unit) {
					verdict := m.Verdict{Kind: m.Skipped, Source: unit.Path, Reason: m.ReasonEmpty}

					select {
					case <-ctx.Done():
						errorChannel <- ctx.Err()
						return
					case skipped <- verdict:
					}

					continue
				}

				task := m.Task{Unit: unit, Expectation: matcher.Expectation(unit.Path)}

				select {
				case <-ctx.Done():
					errorChannel <- ctx.Err()
					return
				case tasks <- task:
				}
			}
		}
	}()

	return tasks, skipped, errorChannel
}

// validateCheckArgs rejects settings no run can honor. A zero timeout selects
// DefaultUnitTimeout.
func validateCheckArgs(args CheckArgs) error {
	if args.Threshold < 0 || args.Threshold > MaxThreshold {
		return fmt.Errorf("%w: threshold %d is outside 0..%d", ErrBadSettings, args.Threshold, MaxThreshold)
	}

	if args.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrBadSettings, args.Timeout)
	}

	if args.ShardCount > 1 && (args.ShardIndex < 0 || args.ShardIndex >= args.ShardCount) {
		return fmt.Errorf("%w: shard %d/%d", ErrBadSettings, args.ShardIndex, args.ShardCount)
	}

	return nil
}

// inShard distributes units round-robin over shards in enumeration order.
func inShard(index, shardIndex, shardCount int) bool {
	if shardCount <= 1 {
		return true
	}

	return index%shardCount == shardIndex
}

func buildRunReport(info m.RunInfo, summary m.Summary, startedAt, finishedAt time.Time) m.RunReport {
	packages := make([]string, 0, len(info.Packages))
	for _, p := range info.Packages {
		packages = append(packages, string(p))
	}

	counts := make(map[string]int, len(summary.Counts))
	for kind, count := range summary.Counts {
		counts[kind.String()] = count
	}

	return m.RunReport{
		RunID:      info.RunID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Packages:   packages,
		Budget:     info.Budget,
		Threshold:  info.Threshold,
		Total:      summary.Total,
		Counts:     counts,
		Failures:   summary.Failed,
	}
}

func mergeVerdictChannels(ch1, ch2 <-chan m.Verdict) <-chan m.Verdict {
	merged := make(chan m.Verdict)

	go func() {
		defer close(merged)

		for ch1 != nil || ch2 != nil {
			select {
			case verdict, ok := <-ch1:
				if !ok {
					ch1 = nil
					continue
				}

				merged <- verdict
			case verdict, ok := <-ch2:
				if !ok {
					ch2 = nil
					continue
				}

				merged <- verdict
			}
		}
	}()

	return merged
}

func mergeErrorChannels(ch1, ch2 <-chan error) <-chan error {
	merged := make(chan error, 1)

	go func() {
		defer close(merged)

		var first error

		for ch1 != nil || ch2 != nil {
			select {
			case err, ok := <-ch1:
				if !ok {
					ch1 = nil
				} else if first == nil {
					first = err
				}
			case err, ok := <-ch2:
				if !ok {
					ch2 = nil
				} else if first == nil {
					first = err
				}
			}
		}

		if first != nil {
			merged <- first
		}
	}()

	return merged
}

func firstError(errs <-chan error) error {
	for err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
