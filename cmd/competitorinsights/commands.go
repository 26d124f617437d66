package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"CompetitorInsights/internal/app"
	"CompetitorInsights/internal/config"
	"CompetitorInsights/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "competitorinsights",
		Short:         "Competitor news scraping, signal detection and alerting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config (default $COMPETITOR_INSIGHTS_CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newScrapeCmd(),
		newSeedCmd(),
		newDetectCmd(),
		newListenCmd(),
		newMigrateCmd(),
	)
	return root
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(fn func(*app.Application) error) error {
	cfg := config.LoadFrom(cfgFile)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application := app.New(cfg, logger)
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()
	return fn(application)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, WebSocket feed, live listener and scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Fetch news for every competitor and store new events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				report, err := a.Scrape(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample events for the tracked competitors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				report, err := a.Seed(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Extract business signals from recent news",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				report, err := a.Detect(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Route newly stored signals to notifications until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				return a.Listen(cmd.Context())
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and the signal notification trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.Application) error {
				return a.Migrate(cmd.Context())
			})
		},
	}
}
