package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mallcatalog/models"
	"mallcatalog/pipeline"
	"mallcatalog/services"
)

var (
	scrapeAll         bool
	scrapeConcurrency int
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeAll, "all", false, "scrape every configured mall")
	scrapeCmd.Flags().IntVar(&scrapeConcurrency, "concurrency", 0, "malls scraped at once (overrides MAX_CONCURRENCY)")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <mall-id>...",
	Short: "Scrape malls and merge their products into the catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		cfg, logger := g.Config, g.Logger

		var malls []*models.MallConfig
		switch {
		case scrapeAll:
			malls = g.Malls.All()
		case len(args) > 0:
			for _, id := range args {
				mall, err := g.Malls.Get(id)
				if err != nil {
					return err
				}
				malls = append(malls, mall)
			}
		default:
			return errors.New("name at least one mall id, or pass --all")
		}

		logger.Info("Scraping %d malls | Concurrency: %d | Rate delay: %dms | Retries: %d",
			len(malls), cfg.MaxConcurrency, cfg.RateLimitDelay, cfg.MaxRetries)

		store, err := pipeline.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open catalog store: %w", err)
		}
		defer store.Close()

		runner := pipeline.NewRunner(cfg, pipeline.NewFetcher(cfg, logger), pipeline.NewMerger(cfg, store, logger),
			pipeline.NewRawStorage(cfg, logger), logger)
		runner.SetConcurrency(scrapeConcurrency)

		results := runner.RunBatch(cmd.Context(), malls)

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := services.WriteJSON(out, results); err != nil {
				return err
			}
		} else {
			services.PrintRunSummary(out, results)
			for _, res := range results {
				if res.Merge != nil && res.Merge.Stats != nil && res.Merge.Stats.Count > 0 {
					services.PrintStats(out, res.MallID, res.Merge.Stats)
				}
			}
		}

		if n := pipeline.Failures(results); n > 0 {
			return fmt.Errorf("%d of %d malls failed", n, len(results))
		}
		return nil
	},
}
