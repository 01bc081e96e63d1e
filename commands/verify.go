package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"mallcatalog/pipeline"
	"mallcatalog/services"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <mall-id>",
	Short: "Re-check a mall's catalog records and print diagnostics.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		// retired malls can still be verified from their stored records
		mall, err := g.Malls.Get(args[0])
		if err != nil {
			g.Logger.Warn("%v, checking domains against stored mall URLs", err)
			mall = nil
		}

		store, err := pipeline.OpenStore(cmd.Context(), g.Config, g.Logger)
		if err != nil {
			return fmt.Errorf("failed to open catalog store: %w", err)
		}
		defer store.Close()

		catalog, _, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		report := services.NewVerifier(g.Config.PriceCeiling, g.Logger).Verify(catalog, args[0], mall)
		if jsonOutput {
			return services.WriteJSON(cmd.OutOrStdout(), report)
		}
		services.PrintVerificationReport(cmd.OutOrStdout(), report)
		return nil
	},
}
