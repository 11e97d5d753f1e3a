package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// DefaultUnitTimeout bounds a single coverage subprocess.
const DefaultUnitTimeout = 60 * time.Second

// DefaultThreshold is the required coverage percentage.
const DefaultThreshold = 100

// MaxThreshold is the highest coverage percentage a run can require.
const MaxThreshold = 100

// DefaultDataEnv is the variable the coverage tool reads its data file name from.
const DefaultDataEnv = "COVERAGE_FILE"

// DefaultRunnerCommand runs pytest from PATH.
var DefaultRunnerCommand = []string{"pytest"}

// VerifierConfig holds the settings shared by every coverage check of a run.
type VerifierConfig struct {
	Root      m.Path
	Command   []string
	DataEnv   string
	Threshold int
	Timeout   time.Duration
}

// Verifier runs the isolated coverage check of one source unit and turns its
// outcome into a verdict.
type Verifier interface {
	// Verify returns the unit's verdict. The error is non-nil only when the
	// whole run must stop: the runner could not be launched or ctx ended.
	Verify(ctx context.Context, task m.Task) (m.Verdict, error)
}

type verifier struct {
	mapper      UnitMapper
	fsAdapter   adapter.SourceFSAdapter
	testAdapter adapter.TestRunnerAdapter
	budget      *RunBudget
	config      VerifierConfig
}

// NewVerifier constructs a Verifier. Subprocesses are bounded by budget.
func NewVerifier(
	mapper UnitMapper,
	fsAdapter adapter.SourceFSAdapter,
	testAdapter adapter.TestRunnerAdapter,
	budget *RunBudget,
	config VerifierConfig,
) Verifier {
	if len(config.Command) == 0 {
		config.Command = DefaultRunnerCommand
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultUnitTimeout
	}

	return &verifier{
		mapper:      mapper,
		fsAdapter:   fsAdapter,
		testAdapter: testAdapter,
		budget:      budget,
		config:      config,
	}
}

func (v *verifier) Verify(ctx context.Context, task m.Task) (m.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return m.Verdict{}, err
	}

	unit := task.Unit
	excluded := task.Expectation == m.ExpectExcluded
	testPath := v.mapper.TestUnitFor(unit)

	trivial, err := v.mapper.IsTrivialInitializer(ctx, unit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return m.Verdict{}, ctxErr
		}

		slog.Error("Failed to check initializer for logic", "unit", unit.Path, "error", err)

		return m.Verdict{Kind: m.Malformed, Source: unit.Path, Test: testPath, Reason: err.Error()}, nil
	}

	if trivial {
		if excluded {
			return m.Verdict{Kind: m.StaleExclusion, Source: unit.Path, Test: testPath}, nil
		}

		return m.Verdict{Kind: m.Skipped, Source: unit.Path, Test: testPath, Reason: m.ReasonNoLogic}, nil
	}

	run := adapter.CoverageRun{
		Command:   v.config.Command,
		Dir:       string(v.config.Root),
		Target:    v.mapper.CoverageTarget(unit),
		Threshold: v.config.Threshold,
		TestPath:  string(testPath),
		DataEnv:   v.config.DataEnv,
		DataFile:  string(v.mapper.ArtifactFor(ctx, unit)),
	}

	if err := v.budget.Acquire(ctx); err != nil {
		return m.Verdict{}, err
	}
	defer v.budget.Release()

	result, timedOut, err := v.runIsolated(ctx, run)
	if err != nil {
		return m.Verdict{}, err
	}

	verdict := m.Verdict{
		Source:   unit.Path,
		Test:     testPath,
		ExitCode: result.ExitCode,
		Duration: result.Duration,
	}

	switch {
	case timedOut:
		verdict.Kind = m.TimedOut
		verdict.Duration = v.config.Timeout
	case excluded && !result.Passed():
		verdict.Kind = m.Excluded
	case excluded:
		verdict.Kind = m.NowPassing
	case result.Passed():
		verdict.Kind = m.Covered
	default:
		verdict.Kind = m.Uncovered
		verdict.Stdout = string(result.Stdout)
		verdict.Stderr = string(result.Stderr)
	}

	slog.Debug("Verified unit", "unit", unit.Path, "verdict", verdict.Kind.String(),
		"exitCode", verdict.ExitCode, "duration", verdict.Duration)

	return verdict, nil
}

// runIsolated runs the subprocess under the per-unit timeout. The coverage
// artifact is removed on every return path, before the caller releases its
// budget slot.
func (v *verifier) runIsolated(ctx context.Context, run adapter.CoverageRun) (adapter.CoverageResult, bool, error) {
	defer v.cleanupArtifact(ctx, m.Path(run.DataFile))

	runCtx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	slog.Debug("Starting coverage run", "target", run.Target, "test", run.TestPath, "dataFile", run.DataFile)

	result, err := v.testAdapter.RunCoverage(runCtx, run)
	if err == nil {
		return result, false, nil
	}

	if errors.Is(err, adapter.ErrRunnerLaunch) {
		slog.Error("Failed to launch test runner", "command", run.Command, "error", err)
		return result, false, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, false, ctxErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Coverage run timed out", "target", run.Target, "timeout", v.config.Timeout)
		return result, true, nil
	}

	return result, false, fmt.Errorf("run coverage for %s: %w", run.Target, err)
}

func (v *verifier) cleanupArtifact(ctx context.Context, artifact m.Path) {
	// The artifact must go even when the run was cancelled.
	if err := v.fsAdapter.Remove(context.WithoutCancel(ctx), artifact); err != nil {
		slog.Error("Failed to remove coverage artifact", "path", artifact, "error", err)
	}
}
