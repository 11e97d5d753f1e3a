// Package cmd provides the root command and CLI setup for unitcov.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	"unitcov.dev/pkg/unitcov/internal/controller"
	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var pyAdapter adapter.PythonFileAdapter
var testAdapter adapter.TestRunnerAdapter
var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI

// testsDirFlag is the root of the test tree, shared by all commands.
var testsDirFlag string

// excludePatterns is a root-level flag listing exclusion globs.
var excludePatterns []string

// pyprojectFlag names the pyproject.toml holding more exclusion globs.
var pyprojectFlag string

var verboseFlag bool

func init() {
	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	pyAdapter = adapter.NewLocalPythonFileAdapter()
	testAdapter = adapter.NewLocalTestRunnerAdapter()
	reportStore = adapter.NewReportStore()
	workflow = domain.NewWorkflow(
		fsAdapter,
		pyAdapter,
		testAdapter,
		reportStore,
		ui,
	)
}

const packagesHelp = `Packages are directories of Python modules, relative to the current
directory. Every *.py file below them is one unit. The test of pkg/sub/mod.py
is test/pkg/sub/test_mod.py; the test of pkg/sub/__init__.py is
test/pkg/test_sub.py.`

const rootLongDescription = `Unitcov checks that every Python module is fully covered by its own test
module, on its own. Each module runs in an isolated coverage subprocess;
modules on the exclusion list must still fall short, so stale entries are
caught.

` + packagesHelp

const checkLongDescription = `Check per-module coverage for the given packages.

` + packagesHelp

const listLongDescription = `List the modules a check would cover, with their test modules and
expectations, without running anything.

` + packagesHelp

const matchLongDescription = `Check that every module has a test module and every test module has a
module, matching by file name only.

` + packagesHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unitcov",
		Short: "Per-module coverage checker for Python projects",
		Long:  rootLongDescription,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flags parsed fine; runtime failures should not print usage.
			cmd.SilenceUsage = true

			if configErr != nil {
				return configErr
			}

			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&testsDirFlag, testsFlagName, domain.DefaultTestsDir, "root directory of the test tree")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(testsFlagName), testsConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", nil, "exclude modules matching glob (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&pyprojectFlag, pyprojectFlagName, defaultPyprojectFile,
		"pyproject.toml with a [tool.pytest.individual_coverage] exclude list (empty to disable)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(pyprojectFlagName), pyprojectConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "write debug logs")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

// resolveTarget finds the project root and expresses the package directories
// relative to it.
func resolveTarget(ctx context.Context, args []string) (m.Path, []m.Path, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("working directory: %w", err)
	}

	root, err := fsAdapter.FindProjectRoot(ctx, m.Path(cwd))
	if err != nil {
		slog.Debug("No project marker found, using working directory as root", "cwd", cwd, "error", err)

		root = m.Path(cwd)
	}

	packages, err := resolvePackages(string(root), cwd, parsePackages(args))
	if err != nil {
		return "", nil, err
	}

	return root, packages, nil
}

// parsePackages returns the positional arguments, or the configured packages
// when none are given.
func parsePackages(args []string) []string {
	if len(args) > 0 {
		return args
	}

	return viper.GetStringSlice(packagesConfigKey)
}

func resolvePackages(root, cwd string, packages []string) ([]m.Path, error) {
	paths := make([]m.Path, 0, len(packages))

	for _, pkg := range packages {
		abs := pkg
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, pkg)
		}

		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("package %s is outside the project root %s", pkg, root)
		}

		paths = append(paths, m.Path(filepath.ToSlash(rel)))
	}

	return paths, nil
}
