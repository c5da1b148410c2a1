package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prestige-production/outreach/internal/app"
	"github.com/prestige-production/outreach/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Outreach - client outreach campaign orchestrator",
	Long:  `Outreach runs approval-gated email campaigns: each prospect is posted to Discord for a human decision, approved emails are sent immediately, and opens/clicks are tracked.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a campaign",
	Long:  `Fetch the client list, request approval for every client in parallel, send approved emails and emit the final report.`,
	RunE:  runCampaign,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the open/click tracking service on its own",
	RunE:  runTracking,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived campaign runs",
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("outreach version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

var historyLimit int

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(runCmd, trackCmd, historyCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runCampaign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	report, err := application.Run(context.Background())

	if report != nil {
		if werr := report.WriteJSON(os.Stdout); werr != nil {
			application.Logger().Error("failed to write report", "error", werr)
		}
	}

	switch {
	case errors.Is(err, app.ErrInterrupted):
		os.Exit(130)
	case err != nil:
		return err
	case report.Failed():
		os.Exit(1)
	}
	return nil
}

func runTracking(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.NewTracking(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.RunTracking(context.Background())
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.NewHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Shutdown(context.Background())

	entries, err := application.Journal().List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  %-22s total=%d approved=%d rejected=%d errors=%d\n",
			e.StartedAt.Format("2006-01-02 15:04"),
			e.RunID[:8],
			e.Outcome,
			e.Total, e.Approved, e.Rejected, e.Errors,
		)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Campaign: %s\n", cfg.Campaign.Name)
	fmt.Printf("  From: %s <%s>\n", cfg.Campaign.FromName, cfg.Campaign.FromEmail)
	fmt.Printf("  Source: %s (%s)\n", cfg.Source.Path, cfg.Source.Type)
	fmt.Printf("  Approval timeout: %s\n", cfg.Approval.Timeout)
	fmt.Printf("  SMTP: %s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)
	fmt.Printf("  Tracking: %s\n", cfg.Tracking.ListenAddr)
	return nil
}
