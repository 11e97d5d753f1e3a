package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"unitcov.dev/pkg/unitcov/internal/domain"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [packages...]",
		Short: "List modules with their test modules and expectations",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			root, packages, err := resolveTarget(ctx, args)
			if err != nil {
				return err
			}

			exclude, err := exclusionPatterns(string(root))
			if err != nil {
				return err
			}

			return workflow.List(ctx, domain.ListArgs{
				Root:     root,
				Packages: packages,
				TestsDir: m.Path(viper.GetString(testsConfigKey)),
				Exclude:  exclude,
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
