package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

var checkParallelFlag int
var checkTimeoutFlag string
var checkThresholdFlag int
var checkRunnerFlag []string
var checkReportFlag string
var checkShardFlag string

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [packages...]",
		Short: "Check per-module coverage",
		Long:  checkLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shardIndex, shardCount, err := parseShardFlag(checkShardFlag)
			if err != nil {
				return err
			}

			timeout, err := runTimeout()
			if err != nil {
				return err
			}

			threshold, err := runThreshold()
			if err != nil {
				return err
			}

			root, packages, err := resolveTarget(ctx, args)
			if err != nil {
				return err
			}

			exclude, err := exclusionPatterns(string(root))
			if err != nil {
				return err
			}

			return workflow.Check(ctx, domain.CheckArgs{
				Root:       root,
				Packages:   packages,
				TestsDir:   m.Path(viper.GetString(testsConfigKey)),
				Exclude:    exclude,
				Parallel:   viper.GetInt(runParallelConfigKey),
				Timeout:    timeout,
				Threshold:  threshold,
				Command:    viper.GetStringSlice(runnerCommandKey),
				DataEnv:    viper.GetString(runnerDataEnvKey),
				ShardIndex: shardIndex,
				ShardCount: shardCount,
				ReportPath: m.Path(viper.GetString(reportPathConfigKey)),
			})
		},
	}

	configureCheckFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func configureCheckFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&checkParallelFlag, runParallelFlagName, "p", domain.DefaultBudgetSize(), "number of coverage runs in flight")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().StringVar(&checkTimeoutFlag, timeoutFlagName, domain.DefaultUnitTimeout.String(), "time limit of a single coverage run")
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), runTimeoutConfigKey)

	cmd.Flags().IntVar(&checkThresholdFlag, thresholdFlagName, domain.DefaultThreshold, "minimum coverage percentage of every module")
	bindFlagToConfig(cmd.Flags().Lookup(thresholdFlagName), runThresholdConfigKey)

	cmd.Flags().StringSliceVar(&checkRunnerFlag, runnerFlagName, domain.DefaultRunnerCommand, "runner executable and leading arguments, comma separated")
	bindFlagToConfig(cmd.Flags().Lookup(runnerFlagName), runnerCommandKey)

	cmd.Flags().StringVar(&checkReportFlag, reportFlagName, "", "write a YAML run report to this file")
	bindFlagToConfig(cmd.Flags().Lookup(reportFlagName), reportPathConfigKey)

	cmd.Flags().StringVarP(&checkShardFlag, shardFlagName, "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")
}

// parseShardFlag reads INDEX/TOTAL. An empty value means a single shard.
func parseShardFlag(shard string) (int, int, error) {
	if shard == "" {
		return 0, 1, nil
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || fmt.Sprintf("%d/%d", index, total) != shard {
		return 0, 0, fmt.Errorf("invalid --%s %q: want INDEX/TOTAL", shardFlagName, shard)
	}

	if total <= 0 || index < 0 || index >= total {
		return 0, 0, fmt.Errorf("invalid --%s %q: need 0 <= INDEX < TOTAL", shardFlagName, shard)
	}

	return index, total, nil
}
