package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/report"
)

func init() {
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(compareCmd)

	assessCmd.Flags().Bool("refresh", false, "Skip the cache and assess again")
	assessCmd.Flags().String("format", "text", "Output format: text, json or brief")
	compareCmd.Flags().Bool("refresh", false, "Skip the cache for both products")
	compareCmd.Flags().Bool("json", false, "Print the comparison as JSON")
}

var assessCmd = &cobra.Command{
	Use:   "assess [product or URL]",
	Short: "Produce a trust brief for one product",
	Example: `  trustbrief assess Slack
  trustbrief assess "https://zoom.us" --format brief
  trustbrief assess "1Password" --refresh --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		target := strings.Join(args, " ")
		app, done, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer done()

		a, err := app.Service.Assess(commandContext(cmd), target, refresh)
		if err != nil {
			return describe(err)
		}
		return report.Write(cmd.OutOrStdout(), a, format)
	},
}

var compareCmd = &cobra.Command{
	Use:     "compare [product A] [product B]",
	Short:   "Compare two products side by side",
	Example: `  trustbrief compare Slack "Microsoft Teams"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		app, done, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer done()

		c, err := app.Service.Compare(commandContext(cmd), args[0], args[1], refresh)
		if err != nil {
			return describe(err)
		}
		if asJSON {
			return report.JSON(cmd.OutOrStdout(), c)
		}
		return report.Comparison(cmd.OutOrStdout(), c)
	},
}

// describe turns pipeline errors into a one-line message naming the stage.
func describe(err error) error {
	var serr *assessment.StageError
	if !errors.As(err, &serr) {
		return err
	}
	if serr.Timeout() {
		return fmt.Errorf("assessment of %q timed out in the %s stage", serr.Input, serr.Stage)
	}
	return fmt.Errorf("assessment of %q failed in the %s stage: %w", serr.Input, serr.Stage, serr.Err)
}
