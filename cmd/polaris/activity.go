package main

import (
	"encoding/json"
	"fmt"

	"github.com/harunnryd/polaris/internal/activity"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect the activity feed",
	Long:  `Read the activity feed recorded after each successful chat turn.`,
}

var activityLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		log, err := activity.NewLog(cfg.Activity)
		if err != nil {
			return fmt.Errorf("open activity log: %w", err)
		}
		entries, err := log.List(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("read activity log: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		fmt.Fprintln(out, newFormatter().FormatActivity(entries))
		return nil
	},
}

func init() {
	activityLsCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries (0 for all)")
	activityLsCmd.Flags().Bool("json", false, "Print entries as JSON")
	activityCmd.AddCommand(activityLsCmd)
	rootCmd.AddCommand(activityCmd)
}
