package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [report]",
		Short: "View a previously written run report",
		Long:  "View a run report written by check --report. Without an argument the configured report path is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := viper.GetString(reportPathConfigKey)
			if len(args) == 1 {
				report = args[0]
			}

			if report == "" {
				return errNoReport
			}

			return workflow.View(cmd.Context(), domain.ViewArgs{Report: m.Path(report)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
