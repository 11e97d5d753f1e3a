package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

var matchStrictFlag bool

// matchCmd represents the match command.
var matchCmd = newMatchCmd()

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [packages...]",
		Short: "Check that modules and test modules pair up",
		Long:  matchLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, packages, err := resolveTarget(ctx, args)
			if err != nil {
				return err
			}

			return workflow.Match(ctx, domain.MatchArgs{
				Root:           root,
				Packages:       packages,
				TestsDir:       m.Path(viper.GetString(testsConfigKey)),
				ExcludeSources: viper.GetStringSlice(matchExcludeSrcKey),
				ExcludeTests:   viper.GetStringSlice(matchExcludeTestsKey),
				Strict:         matchStrictFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&matchStrictFlag, strictFlagName, false, "also fail on test modules without a module")

	return cmd
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
