package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"catalogscraper/pkg/config"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	notify     bool
	quiet      bool
	plain      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catalogscraper",
	Short: "Crawl a fashion catalog for product links and product images",
	Long: `catalogscraper crawls a catalog in two resumable stages.

  discover   visits every category page of a category map and records the
             product links found there
  download   visits every discovered product page and saves its images under
             <output>/<gender>/<category>/

Both stages checkpoint after every page. Re-running a stage skips everything
already complete, so an interrupted run is resumed by running it again.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetColor(!noColor && term.IsTerminal(int(os.Stdout.Fd())))

		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./catalogscraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a stage finishes")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print failed items only")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "print progress lines instead of the interactive dashboard")

	rootCmd.SetVersionTemplate(`catalogscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration for cmd and initializes the global
// logger. Only flags the user actually set override lower-priority sources.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "int":
			v, _ := cmd.Flags().GetInt(f.Name)
			flags[f.Name] = v
		case "bool":
			v, _ := cmd.Flags().GetBool(f.Name)
			flags[f.Name] = v
		default:
			flags[f.Name] = f.Value.String()
		}
	})

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"version": version,
		"command": cmd.Name(),
	}).Debug("catalogscraper starting")

	return cfg, nil
}

// runContext is cancelled on SIGINT or SIGTERM
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
