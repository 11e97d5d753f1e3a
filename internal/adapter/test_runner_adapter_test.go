package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// These tests exercise LocalTestRunnerAdapter against small shell scripts
// standing in for pytest, so the real subprocess path is used.

func writeRunnerScript(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("runner scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-pytest")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write runner script: %v", err)
	}

	return path
}

func TestCoverageRun_Args(t *testing.T) {
	run := CoverageRun{
		Command:   []string{"python", "-m", "pytest"},
		Target:    "pkg.sub.mod",
		Threshold: 100,
		TestPath:  "test/pkg/sub/test_mod.py",
	}

	got := strings.Join(run.Args(), " ")
	want := "-m pytest -qq --disable-pytest-warnings --cov pkg.sub.mod --cov-fail-under 100 " +
		"--cov-report term-missing:skip-covered test/pkg/sub/test_mod.py"

	if got != want {
		t.Fatalf("Args() = %q, want %q", got, want)
	}
}

func TestLocalTestRunnerAdapter_RunCoverage_Success(t *testing.T) {
	script := writeRunnerScript(t, `echo "target=$4 data=$COVERAGE_FILE test=$9"`+"\nexit 0\n")
	dir := t.TempDir()

	adapter := NewLocalTestRunnerAdapter()
	result, err := adapter.RunCoverage(context.Background(), CoverageRun{
		Command:   []string{script},
		Dir:       dir,
		Target:    "pkg.mod",
		Threshold: 100,
		TestPath:  "test/pkg/test_mod.py",
		DataEnv:   "COVERAGE_FILE",
		DataFile:  filepath.Join(dir, ".coverage-pkg-mod.py"),
	})
	if err != nil {
		t.Fatalf("RunCoverage() error = %v", err)
	}

	if !result.Passed() {
		t.Fatalf("RunCoverage() exit code = %d, want 0", result.ExitCode)
	}

	out := string(result.Stdout)
	for _, want := range []string{"target=pkg.mod", "data=" + filepath.Join(dir, ".coverage-pkg-mod.py"), "test=test/pkg/test_mod.py"} {
		if !strings.Contains(out, want) {
			t.Fatalf("RunCoverage() stdout = %q, missing %q", out, want)
		}
	}
}

func TestLocalTestRunnerAdapter_RunCoverage_Failure(t *testing.T) {
	script := writeRunnerScript(t, "echo 'TOTAL 10 2 80%'\necho 'FAIL Required test coverage of 100% not reached' >&2\nexit 2\n")

	adapter := NewLocalTestRunnerAdapter()
	result, err := adapter.RunCoverage(context.Background(), CoverageRun{Command: []string{script}, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("RunCoverage() error = %v", err)
	}

	if result.ExitCode != 2 {
		t.Fatalf("RunCoverage() exit code = %d, want 2", result.ExitCode)
	}

	if !strings.Contains(string(result.Stdout), "TOTAL") || !strings.Contains(string(result.Stderr), "not reached") {
		t.Fatalf("RunCoverage() did not capture output: stdout=%q stderr=%q", result.Stdout, result.Stderr)
	}
}

func TestLocalTestRunnerAdapter_RunCoverage_Timeout(t *testing.T) {
	script := writeRunnerScript(t, "exec sleep 30\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	adapter := NewLocalTestRunnerAdapter()
	start := time.Now()
	_, err := adapter.RunCoverage(ctx, CoverageRun{Command: []string{script}, Dir: t.TempDir()})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunCoverage() error = %v, want context.DeadlineExceeded", err)
	}

	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("RunCoverage() took %s after timeout", elapsed)
	}
}

func TestLocalTestRunnerAdapter_RunCoverage_LaunchFailure(t *testing.T) {
	adapter := NewLocalTestRunnerAdapter()

	tests := []struct {
		name    string
		command []string
	}{
		{"missing binary", []string{filepath.Join(t.TempDir(), "no-such-runner")}},
		{"empty command", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.RunCoverage(context.Background(), CoverageRun{Command: tt.command, Dir: t.TempDir()})
			if !errors.Is(err, ErrRunnerLaunch) {
				t.Fatalf("RunCoverage() error = %v, want ErrRunnerLaunch", err)
			}
		})
	}
}
