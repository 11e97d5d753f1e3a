package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ErrRunnerLaunch marks a runner that could not be started at all. It is
// fatal for the whole run: the runner is unusable for every unit.
var ErrRunnerLaunch = errors.New("failed to launch test runner")

// DefaultWaitDelay bounds how long output pipes may stay open after the
// runner process has been killed.
const DefaultWaitDelay = 2 * time.Second

// CoverageRun describes one isolated coverage check.
type CoverageRun struct {
	// Command is the runner executable followed by any fixed leading arguments.
	Command []string
	// Dir is the working directory, normally the project root.
	Dir string
	// Target is the module to measure, in the runner's dotted addressing.
	Target string
	// Threshold is the minimum coverage percentage.
	Threshold int
	// TestPath is the test module to execute.
	TestPath string
	// DataEnv names the environment variable that receives DataFile.
	DataEnv string
	// DataFile is the coverage data artifact of this run.
	DataFile string
}

// Args returns the full runner argument list, without the executable.
func (r CoverageRun) Args() []string {
	args := make([]string, 0, len(r.Command)+10)
	if len(r.Command) > 1 {
		args = append(args, r.Command[1:]...)
	}

	return append(args,
		"-qq",
		"--disable-pytest-warnings",
		"--cov", r.Target,
		"--cov-fail-under", strconv.Itoa(r.Threshold),
		"--cov-report", "term-missing:skip-covered",
		r.TestPath,
	)
}

// CoverageResult is the captured outcome of a finished runner process.
type CoverageResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Passed reports whether the runner exited with status zero.
func (r CoverageResult) Passed() bool {
	return r.ExitCode == 0
}

// TestRunnerAdapter abstracts the external coverage runner.
type TestRunnerAdapter interface {
	// RunCoverage executes one coverage check and waits for it. A non-zero exit
	// is reported through CoverageResult, not as an error. The error is
	// ErrRunnerLaunch when the process cannot start, or ctx.Err() when the
	// context ended before the process did.
	RunCoverage(ctx context.Context, run CoverageRun) (CoverageResult, error)
}

// LocalTestRunnerAdapter provides a concrete implementation using os/exec.
type LocalTestRunnerAdapter struct {
	waitDelay time.Duration
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter.
func NewLocalTestRunnerAdapter() *LocalTestRunnerAdapter {
	return &LocalTestRunnerAdapter{waitDelay: DefaultWaitDelay}
}

// RunCoverage implements TestRunnerAdapter.
func (a *LocalTestRunnerAdapter) RunCoverage(ctx context.Context, run CoverageRun) (CoverageResult, error) {
	if len(run.Command) == 0 || run.Command[0] == "" {
		return CoverageResult{}, fmt.Errorf("%w: empty runner command", ErrRunnerLaunch)
	}

	// #nosec G204 - the runner command comes from the user's own configuration
	cmd := exec.CommandContext(ctx, run.Command[0], run.Args()...)
	cmd.Dir = run.Dir
	cmd.WaitDelay = a.waitDelay

	cmd.Env = os.Environ()
	if run.DataEnv != "" {
		cmd.Env = append(cmd.Env, run.DataEnv+"="+run.DataFile)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CoverageResult{}, ctxErr
		}

		return CoverageResult{}, fmt.Errorf("%w %q: %w", ErrRunnerLaunch, run.Command[0], err)
	}

	waitErr := cmd.Wait()

	result := CoverageResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, ctxErr
	}

	if waitErr != nil {
		var exitErr *exec.ExitError

		switch {
		case errors.As(waitErr, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// The runner exited but a child kept the output pipes open.
			result.ExitCode = cmd.ProcessState.ExitCode()
		default:
			return result, fmt.Errorf("wait for test runner: %w", waitErr)
		}
	}

	return result, nil
}
