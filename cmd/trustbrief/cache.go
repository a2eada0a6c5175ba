package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/trustbrief/internal/middleware"
	"github.com/bryanwahyu/trustbrief/internal/report"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheListCmd.Flags().Bool("json", false, "Print entries as JSON")
	cacheGetCmd.Flags().String("format", "json", "Output format: text, json or brief")
	cacheClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached assessments",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached assessments, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		app, done, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer done()

		entries, err := app.Service.Entries(commandContext(cmd))
		if err != nil {
			return err
		}
		if asJSON {
			return report.JSON(cmd.OutOrStdout(), entries)
		}
		return report.Entries(cmd.OutOrStdout(), entries, time.Now())
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one cached assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := middleware.ValidateCacheKey(args[0]); err != nil {
			return err
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		app, done, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer done()

		a, err := app.Service.Get(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return report.Write(cmd.OutOrStdout(), a, format)
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Delete one cached assessment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := middleware.ValidateCacheKey(args[0]); err != nil {
			return err
		}
		app, done, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer done()

		if err := app.Service.Delete(commandContext(cmd), args[0]); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached assessment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		app, done, err := setup(cmd, false)
		if err != nil {
			return err
		}
		defer done()

		if !yes {
			fmt.Fprint(cmd.OutOrStdout(), "This will delete every cached assessment. Are you sure? (yes/no): ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		n, err := app.Service.Clear(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached assessments\n", n)
		return nil
	},
}
