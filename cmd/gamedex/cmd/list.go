package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gamedex/gamedex/internal/store/sqlite"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored game collection",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	collection, err := store.Games(cmd.Context())
	if err != nil {
		return err
	}

	type entry struct {
		Title    string   `yaml:"title"`
		Status   string   `yaml:"status,omitempty"`
		PlayTime int64    `yaml:"play_time,omitempty"`
		Sources  []string `yaml:"sources,omitempty"`
	}
	entries := make([]entry, 0, len(collection))
	for _, g := range collection {
		entries = append(entries, entry{
			Title:    g.Title,
			Status:   string(g.Status),
			PlayTime: g.PlayTime,
			Sources:  g.Sources,
		})
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("render collection: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
