package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"unitcov.dev/pkg/unitcov/internal/domain"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "unitcov"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	testsFlagName       = "tests"
	excludeFlagName     = "exclude"
	pyprojectFlagName   = "pyproject"
	runParallelFlagName = "parallel"
	timeoutFlagName     = "timeout"
	thresholdFlagName   = "threshold"
	runnerFlagName      = "runner"
	reportFlagName      = "report"
	shardFlagName       = "shard"
	strictFlagName      = "strict"
	verboseFlagName     = "verbose"

	packagesConfigKey     = "paths.packages"
	testsConfigKey        = "paths.tests"
	excludeConfigKey      = "paths.exclude"
	pyprojectConfigKey    = "exclude.pyproject"
	runParallelConfigKey  = "run.parallel"
	runTimeoutConfigKey   = "run.timeout"
	runThresholdConfigKey = "run.threshold"
	runnerCommandKey      = "runner.command"
	runnerDataEnvKey      = "runner.data_env"
	reportPathConfigKey   = "report.path"
	matchExcludeSrcKey    = "match.exclude_src"
	matchExcludeTestsKey  = "match.exclude_tests"

	defaultPyprojectFile = "pyproject.toml"

	// pyprojectExcludeKey is where the exclusion list lives inside pyproject.toml.
	pyprojectExcludeKey = "tool.pytest.individual_coverage.exclude"

	envPrefix = "UNITCOV"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".unitcov.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

// configErr is set when an existing config file cannot be read.
var configErr error

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(packagesConfigKey, []string{})
	viper.SetDefault(testsConfigKey, domain.DefaultTestsDir)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(pyprojectConfigKey, defaultPyprojectFile)
	viper.SetDefault(runParallelConfigKey, domain.DefaultBudgetSize())
	viper.SetDefault(runTimeoutConfigKey, domain.DefaultUnitTimeout.String())
	viper.SetDefault(runThresholdConfigKey, domain.DefaultThreshold)
	viper.SetDefault(runnerCommandKey, domain.DefaultRunnerCommand)
	viper.SetDefault(runnerDataEnvKey, domain.DefaultDataEnv)
	viper.SetDefault(reportPathConfigKey, "")
	viper.SetDefault(matchExcludeSrcKey, []string{})
	viper.SetDefault(matchExcludeTestsKey, domain.DefaultMatchTestExcludes)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		configErr = fmt.Errorf("read %s: %w", configFileName, err)
	}
}

// loadPyprojectExclusions reads the exclusion list kept in the project's
// pyproject.toml. An empty file name disables the lookup; a missing file or
// table is a configuration error.
func loadPyprojectExclusions(root, file string) ([]string, error) {
	if strings.TrimSpace(file) == "" {
		return nil, nil
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	pyproject := viper.New()
	pyproject.SetConfigFile(path)
	pyproject.SetConfigType("toml")

	if err := pyproject.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if !pyproject.IsSet(pyprojectExcludeKey) {
		return nil, fmt.Errorf("%s: no %s list", path, pyprojectExcludeKey)
	}

	return pyproject.GetStringSlice(pyprojectExcludeKey), nil
}

// exclusionPatterns merges the configured patterns with the pyproject list.
func exclusionPatterns(root string) ([]string, error) {
	patterns := append([]string{}, viper.GetStringSlice(excludeConfigKey)...)

	fromPyproject, err := loadPyprojectExclusions(root, viper.GetString(pyprojectConfigKey))
	if err != nil {
		return nil, err
	}

	return append(patterns, fromPyproject...), nil
}

// runTimeout parses run.timeout. Anything but a positive duration is a
// configuration error.
func runTimeout() (time.Duration, error) {
	value := strings.TrimSpace(viper.GetString(runTimeoutConfigKey))

	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", runTimeoutConfigKey, value, err)
	}

	if timeout <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", runTimeoutConfigKey, value)
	}

	return timeout, nil
}

// runThreshold parses run.threshold, a percentage in 0..100.
func runThreshold() (int, error) {
	value := strings.TrimSpace(viper.GetString(runThresholdConfigKey))

	threshold, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", runThresholdConfigKey, value, err)
	}

	if threshold < 0 || threshold > domain.MaxThreshold {
		return 0, fmt.Errorf("invalid %s %d: must be within 0..%d", runThresholdConfigKey, threshold, domain.MaxThreshold)
	}

	return threshold, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
