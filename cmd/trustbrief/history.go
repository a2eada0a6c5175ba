package main

import (
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/trustbrief/internal/middleware"
	"github.com/bryanwahyu/trustbrief/internal/report"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show (max 100)")
	historyCmd.Flags().Bool("json", false, "Print runs as JSON")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs (requires database.driver)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		app, done, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer done()

		runs, err := app.Service.Runs(commandContext(cmd), middleware.ValidateLimit(limit))
		if err != nil {
			return err
		}
		if asJSON {
			return report.JSON(cmd.OutOrStdout(), runs)
		}
		return report.Runs(cmd.OutOrStdout(), runs)
	},
}
