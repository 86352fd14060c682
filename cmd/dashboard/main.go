package main

import (
	"context"
	"fmt"
	"os"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/config"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type appKey struct{}

// app is the state shared by every subcommand
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

var sourceFlag string

var rootCmd = &cobra.Command{
	Use:   "dt-brewers",
	Short: "dt-brewers - fermentation digital twin dashboard",
	Long: `dt-brewers serves live and historical fermentation telemetry from a
synthetic or remote data source and forwards operator commands to the
brewing controller behind a verification gate.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "",
		"data source to start with: synthetic or remote (overrides DATA_SOURCE)")
}

func loadApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if sourceFlag != "" {
		variant, err := provider.ParseVariant(sourceFlag)
		if err != nil {
			return err
		}
		cfg.Provider.Default = string(variant)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: initLogger(cfg.Logging),
	}

	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
	return nil
}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
