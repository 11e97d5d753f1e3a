package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unitcov.dev/pkg/unitcov/internal/domain"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "unitcov", configBaseName)
	assert.Equal(t, "unitcov.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "exclude", excludeFlagName)
	assert.Equal(t, "parallel", runParallelFlagName)
	assert.Equal(t, "run.parallel", runParallelConfigKey)
	assert.Equal(t, "paths.exclude", excludeConfigKey)
	assert.Equal(t, "tool.pytest.individual_coverage.exclude", pyprojectExcludeKey)
	assert.Equal(t, "UNITCOV", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func writePyproject(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(contents), 0o644))
}

func TestLoadPyprojectExclusions(t *testing.T) {
	t.Run("reads list", func(t *testing.T) {
		dir := t.TempDir()
		writePyproject(t, dir, pyprojectWithExclusions)

		got, err := loadPyprojectExclusions(dir, "pyproject.toml")
		require.NoError(t, err)
		assert.Equal(t, []string{"pkg/legacy.py", "pkg/gen/*"}, got)
	})

	t.Run("absolute path", func(t *testing.T) {
		dir := t.TempDir()
		writePyproject(t, dir, pyprojectWithExclusions)

		got, err := loadPyprojectExclusions("/nowhere", filepath.Join(dir, "pyproject.toml"))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("disabled", func(t *testing.T) {
		got, err := loadPyprojectExclusions(t.TempDir(), " ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadPyprojectExclusions(t.TempDir(), "pyproject.toml")
		require.Error(t, err)
	})

	t.Run("missing table", func(t *testing.T) {
		dir := t.TempDir()
		writePyproject(t, dir, "[project]\nname = \"demo\"\n")

		_, err := loadPyprojectExclusions(dir, "pyproject.toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), pyprojectExcludeKey)
	})

	t.Run("malformed toml", func(t *testing.T) {
		dir := t.TempDir()
		writePyproject(t, dir, "[tool.pytest\nexclude = \n")

		_, err := loadPyprojectExclusions(dir, "pyproject.toml")
		require.Error(t, err)
	})
}

func TestExclusionPatterns_MergesConfigAndPyproject(t *testing.T) {
	dir := t.TempDir()
	writePyproject(t, dir, pyprojectWithExclusions)

	newRootCmd()
	t.Setenv("UNITCOV_PATHS_EXCLUDE", "pkg/first.py")

	got, err := exclusionPatterns(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/first.py", "pkg/legacy.py", "pkg/gen/*"}, got)
}

func TestRunTimeout(t *testing.T) {
	newCheckCmd()

	t.Run("configured", func(t *testing.T) {
		t.Setenv("UNITCOV_RUN_TIMEOUT", "90s")

		timeout, err := runTimeout()
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, timeout)
	})

	t.Run("default", func(t *testing.T) {
		timeout, err := runTimeout()
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultUnitTimeout, timeout)
	})

	for _, value := range []string{"abc", "90", "0s", "-5s"} {
		t.Run("rejects "+value, func(t *testing.T) {
			t.Setenv("UNITCOV_RUN_TIMEOUT", value)

			_, err := runTimeout()
			require.Error(t, err)
			assert.Contains(t, err.Error(), runTimeoutConfigKey)
		})
	}
}

func TestRunThreshold(t *testing.T) {
	newCheckCmd()

	t.Run("default", func(t *testing.T) {
		threshold, err := runThreshold()
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultThreshold, threshold)
	})

	for _, value := range []string{"0", "55", "100"} {
		t.Run("accepts "+value, func(t *testing.T) {
			t.Setenv("UNITCOV_RUN_THRESHOLD", value)

			threshold, err := runThreshold()
			require.NoError(t, err)
			assert.Equal(t, value, strconv.Itoa(threshold))
		})
	}

	for _, value := range []string{"150", "-1", "abc", "50.5"} {
		t.Run("rejects "+value, func(t *testing.T) {
			t.Setenv("UNITCOV_RUN_THRESHOLD", value)

			_, err := runThreshold()
			require.Error(t, err)
			assert.Contains(t, err.Error(), runThresholdConfigKey)
		})
	}
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestConfigureLogger_WritesToFile(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	logPath := filepath.Join(t.TempDir(), "unitcov.log")

	configureLogger(logPath, true)
	slog.Debug("debug line", "unit", "pkg/a.py")

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "debug line")
	assert.Contains(t, string(contents), "unit=pkg/a.py")
}

func TestLoadPyprojectExclusions_DemoProject(t *testing.T) {
	got, err := loadPyprojectExclusions(filepath.Join("..", "examples", "demo"), defaultPyprojectFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/legacy.py"}, got)
}
