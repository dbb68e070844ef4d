package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gamedex/gamedex/internal/config"
	"github.com/gamedex/gamedex/pkg/logging"
)

var (
	configFile string
	verbose    bool

	cfg *config.Config

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "gamedex",
	Short: "Game library synchronizer",
	Long: `Gamedex pulls your owned games from Steam, Epic Games, GOG, and
itch.io, matches them against the IGDB catalog for metadata, and keeps
the merged collection in a local database.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command with signal-aware context cancellation.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.gamedex.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

func setup(_ *cobra.Command, _ []string) error {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logging.SetDefault(logging.Default().Level(zerolog.DebugLevel))
	}

	c, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg = c
	return nil
}
