package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gamedex/gamedex/internal/config"
	"github.com/gamedex/gamedex/internal/engine"
	"github.com/gamedex/gamedex/internal/igdb"
	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/internal/store/sqlite"
	"github.com/gamedex/gamedex/internal/storefront"
	"github.com/gamedex/gamedex/internal/storefront/epic"
	"github.com/gamedex/gamedex/internal/storefront/gog"
	"github.com/gamedex/gamedex/internal/storefront/itch"
	"github.com/gamedex/gamedex/internal/storefront/steam"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/logging"
)

var forceUpdate bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import and reconcile game libraries from all configured storefronts",
	Long: `Sync walks every configured storefront, imports owned games, matches
them against the IGDB catalog, and merges the results into the local
library. Storefronts without credentials are skipped.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&forceUpdate, "force", false,
		"re-resolve metadata for games already in the library")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	var catalogOpts []igdb.Option
	if cfg.IGDBProxyURL != "" {
		catalogOpts = append(catalogOpts, igdb.WithBaseURL(cfg.IGDBProxyURL))
	}
	catalog := igdb.NewClient(ratelimit.NewGate(ratelimit.IGDBInterval), cfg.IGDBClientID, catalogOpts...)
	resolver := igdb.NewResolver(catalog)

	adapters := []storefront.Adapter{
		steam.New(
			storefront.NewClient(steam.Name, ratelimit.NewGate(ratelimit.SteamInterval)),
			resolver, store, config.SteamCredential(), cfg.SteamAPIKey),
		epic.New(
			storefront.NewClient(epic.Name, ratelimit.NewGate(ratelimit.EpicInterval)),
			resolver, store, config.EpicCredential()),
		gog.New(
			storefront.NewClient(gog.Name, ratelimit.NewGate(ratelimit.GogInterval)),
			resolver, store, config.GogCredential()),
		itch.New(
			storefront.NewClient(itch.Name, ratelimit.NewGate(ratelimit.ItchInterval)),
			resolver, store, config.ItchCredential()),
	}

	var missing map[string][]games.Game
	eng := engine.New(store, adapters,
		engine.WithCatalog(catalog),
		engine.WithProgress(printProgress),
		engine.WithEvents(func(ev engine.RunEvent) {
			switch e := ev.(type) {
			case engine.ErrorMessage:
				fmt.Fprintf(os.Stderr, "%s: %s\n", e.Title, e.Detail)
			case engine.LoggedOut:
				fmt.Fprintf(os.Stderr, "%s: session expired, please sign in again\n", e.Storefront)
			case engine.Info:
				fmt.Println(e.Message)
			case engine.MissingGames:
				missing = e.ByStorefront
			}
		}))

	if err := eng.SeedGenres(ctx); err != nil {
		logging.Warn().Err(err).Msg("genre seeding failed")
	}
	if err := eng.Sync(ctx, forceUpdate); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if len(missing) > 0 {
		if err := printMissing(missing); err != nil {
			return err
		}
	}
	return nil
}

// printProgress renders a coarse progress line on stderr. Terminal
// control sequences are deliberately avoided so output stays readable
// when piped.
func printProgress(fraction float64) {
	if fraction == engine.NotLoading {
		return
	}
	fmt.Fprintf(os.Stderr, "\rprogress: %3.0f%%", fraction*100)
	if fraction >= 1 {
		fmt.Fprintln(os.Stderr)
	}
}

// printMissing writes the games no catalog match was found for, grouped
// by storefront, as YAML on stdout.
func printMissing(missing map[string][]games.Game) error {
	type entry struct {
		Title    string `yaml:"title"`
		PlayTime int64  `yaml:"play_time,omitempty"`
	}
	report := make(map[string][]entry, len(missing))
	for storefront, list := range missing {
		entries := make([]entry, 0, len(list))
		for _, g := range list {
			entries = append(entries, entry{Title: g.Title, PlayTime: g.PlayTime})
		}
		report[storefront] = entries
	}
	out, err := yaml.Marshal(map[string]any{"unmatched": report})
	if err != nil {
		return fmt.Errorf("render unmatched report: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
