package main

import (
	"fmt"

	"catalogscraper/pkg/catalog"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/scraper"
	"catalogscraper/pkg/ui"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Collect product links from every category page",
	Long: `Visit every category page listed in the category map and record the
product links found on it.

The category map is a JSON object of gender -> {category -> url}. Results are
written to the links file after every page, in the form
gender -> {category -> [product urls]}, which is the input of 'download'.
Categories already complete are skipped.`,
	Example: `  # Discover with defaults (zara_categories.json -> zara_product_links.json)
  catalogscraper discover

  # Custom files and more concurrent pages
  catalogscraper discover --categories cats.json --links links.json --discovery-concurrent 8`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().String("categories", "", "category map JSON file")
	discoverCmd.Flags().String("links", "", "product links JSON file (also the discovery checkpoint)")
	discoverCmd.Flags().Int("discovery-concurrent", 0, "pages visited concurrently")
	discoverCmd.Flags().Int("link-cap", 0, "maximum product links per category page")
	discoverCmd.Flags().String("engine", "", "fetch engine (http, colly)")
	discoverCmd.Flags().Int("requests-per-minute", 0, "request rate limit")
	discoverCmd.Flags().Int("max-attempts", 0, "fetch attempts per page")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	categories, err := catalog.LoadCategoryMap(cfg.Discovery.CategoriesFile)
	if err != nil {
		return err
	}
	ui.PrintInfo("Categories", cfg.Discovery.CategoriesFile)

	ctx, stop := runContext()
	defer stop()

	reporter, log, closeReporter := newReporter(cfg, stop)
	defer closeReporter()

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, "discover", cfg.Discovery.OutputFile, models.KindLink, log)
	if err != nil {
		return err
	}
	defer closeStore()

	s := scraper.New(client, client, nil, newExtractor(cfg, log), scraper.Options{
		DiscoveryConcurrency: cfg.Discovery.MaxConcurrent,
		LinkCap:              cfg.Discovery.LinkCap,
	}, log)
	s.SetReporter(reporter)

	summary, runErr := s.DiscoverLinks(ctx, store, categories)
	closeReporter()
	finishStage(summary, logger.GetLogger())
	return runErr
}

// finishStage renders the summary and sends the optional notification
func finishStage(summary *models.Summary, log logger.Logger) {
	if summary == nil {
		return
	}
	fmt.Fprintln(ui.Output)
	fmt.Fprintln(ui.Output, ui.RenderSummary(summary))

	if notify {
		if err := ui.NewNotifier().StageFinished(summary); err != nil {
			log.WithError(err).Debug("Desktop notification failed")
		}
	}
}
