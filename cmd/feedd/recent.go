package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Twirlie/discordbot/internal/config"
	"github.com/Twirlie/discordbot/internal/state"
)

var recentCount int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recent feed items from the database as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := state.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()

		items, err := state.NewStore(db).LoadRecent(cmd.Context(), recentCount)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentCount, "count", "n", 10, "number of items to print")
}
