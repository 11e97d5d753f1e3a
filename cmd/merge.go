package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

var errNoReport = errors.New("no report given: pass a path or set report.path")

var mergeOutputFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge reports...",
		Short: "Merge sharded run reports into one",
		Long: `Merge the reports written by check --shard runs into a single report and
print the combined outcome. The merge fails when any shard had failures.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]m.Path, 0, len(args))
			for _, arg := range args {
				inputs = append(inputs, m.Path(arg))
			}

			return workflow.Merge(cmd.Context(), domain.MergeArgs{
				Inputs: inputs,
				Output: m.Path(mergeOutputFlag),
			})
		},
	}

	cmd.Flags().StringVarP(&mergeOutputFlag, "output", "o", "", "write the merged report to this file")

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
