package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mallcatalog/pipeline"
)

func init() {
	rootCmd.AddCommand(retireCmd)
}

var retireCmd = &cobra.Command{
	Use:   "retire <mall-id>",
	Short: "Remove every product of a mall from the catalog.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		store, err := pipeline.OpenStore(cmd.Context(), g.Config, g.Logger)
		if err != nil {
			return fmt.Errorf("failed to open catalog store: %w", err)
		}
		defer store.Close()

		removed, err := pipeline.NewMerger(g.Config, store, g.Logger).Retire(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Retired %s: %d products removed\n", args[0], removed)
		return nil
	},
}
