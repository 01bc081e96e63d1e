package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mallcatalog/config"
	"mallcatalog/utils"
)

type globalsKey struct{}

// Globals is the bootstrap state shared by every subcommand
type Globals struct {
	Config *config.Config
	Malls  *config.Malls
	Logger *utils.Logger
}

func setGlobals(ctx context.Context, value *Globals) context.Context {
	return context.WithValue(ctx, globalsKey{}, value)
}

func getGlobals(ctx context.Context) *Globals {
	return ctx.Value(globalsKey{}).(*Globals)
}

var (
	configPath string
	mallsPath  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "mallcatalog",
	Short:         "mallcatalog scrapes regional Korean shopping malls into one product catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// ================== Bootstrap ====================
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if mallsPath != "" {
			cfg.MallsPath = mallsPath
		}

		logger := utils.NewLoggerTo(os.Stderr, cfg.LogLevel)
		for _, src := range cfg.Sources {
			logger.Info("Loaded config from %s", src)
		}
		malls, err := config.LoadMalls(cfg.MallsPath)
		if err != nil {
			return fmt.Errorf("failed to load malls: %w", err)
		}
		logger.Debug("Loaded %d malls from %s", malls.Len(), cfg.MallsPath)

		cmd.SetContext(setGlobals(cmd.Context(), &Globals{Config: cfg, Malls: malls, Logger: logger}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mallcatalog.json5", "application config file (a .local variant overrides it)")
	rootCmd.PersistentFlags().StringVar(&mallsPath, "malls", "", "mall config file (overrides MALLS_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print reports as JSON instead of tables")
}

// ExecuteContext runs the CLI. Errors are printed to stderr and returned for the exit code.
func ExecuteContext(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
