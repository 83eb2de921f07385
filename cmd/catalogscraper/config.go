package main

import (
	"fmt"
	"os"

	"catalogscraper/pkg/config"
	"catalogscraper/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage catalogscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (CATALOGSCRAPER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file holding the defaults",
	Long: `Write every option with its default value to a YAML file.

The file is created as 'catalogscraper.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check it.

This command checks:
  - YAML syntax
  - Value ranges and known strategy/backend names
  - Input file presence
  - Output and log directory accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "catalogscraper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Point discovery.categories_file at your category map")
	fmt.Fprintln(ui.Output, "2. Run 'catalogscraper config validate'")
	fmt.Fprintln(ui.Output, "3. Run 'catalogscraper discover', then 'catalogscraper download'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var warnings []string
	if _, err := os.Stat(cfg.Discovery.CategoriesFile); err != nil {
		warnings = append(warnings, fmt.Sprintf("category map not found: %s", cfg.Discovery.CategoriesFile))
	}
	if _, err := os.Stat(cfg.Download.LinksFile); err != nil {
		warnings = append(warnings, fmt.Sprintf("links file not found (run discover first): %s", cfg.Download.LinksFile))
	}
	if cfg.RateLimit.Strategy == "none" {
		warnings = append(warnings, "rate limiting is disabled")
	}

	if err := os.MkdirAll(cfg.Download.OutputDir, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(ui.Output, "  - %s\n", w)
		}
		fmt.Fprintln(ui.Output)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Fetch engine: %s\n", cfg.Fetcher.Engine)
	fmt.Fprintf(ui.Output, "  Concurrency: discover %d, download %d\n", cfg.Discovery.MaxConcurrent, cfg.Download.MaxConcurrent)
	fmt.Fprintf(ui.Output, "  Rate limit: %s, %d requests/minute\n", cfg.RateLimit.Strategy, cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(ui.Output, "  Checkpoint: %s, scraped log: %s\n", cfg.Checkpoint.Backend, cfg.Checkpoint.ScrapedLogBackend)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
