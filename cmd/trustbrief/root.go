package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/trustbrief/internal/bootstrap"
	"github.com/bryanwahyu/trustbrief/internal/config"
	"github.com/bryanwahyu/trustbrief/internal/telemetry"
)

var exit = os.Exit

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "trustbrief",
	Short: "CISO-ready trust briefs for software products",
	Long: `trustbrief resolves a product name or URL to a vendor, gathers public
security evidence (security pages, CISA KEV), classifies the product in a
fixed taxonomy and suggests safer alternatives. Results are cached.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug logging")
}

// setup loads configuration and wires the service for one command run.
func setup(cmd *cobra.Command, needAI bool) (*bootstrap.App, func(), error) {
	path := cfgFile
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if needAI {
		if err := cfg.RequireAI(); err != nil {
			return nil, nil, err
		}
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	closeLog := telemetry.InitLogger(telemetry.Options{
		Level:  level,
		Format: "text",
		File:   cfg.Log.File,
		Output: cmd.ErrOrStderr(),
	})

	app, err := bootstrap.New(commandContext(cmd), cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return app, func() {
		_ = app.Close()
		closeLog()
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
