package commands

import (
	"github.com/spf13/cobra"

	"mallcatalog/services"
)

func init() {
	rootCmd.AddCommand(mallsCmd)
}

var mallsCmd = &cobra.Command{
	Use:   "malls",
	Short: "Prints the configured malls.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		if jsonOutput {
			return services.WriteJSON(cmd.OutOrStdout(), g.Malls.All())
		}
		services.PrintMalls(cmd.OutOrStdout(), g.Malls.All())
		return nil
	},
}
