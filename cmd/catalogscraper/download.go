package main

import (
	"catalogscraper/pkg/catalog"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/scraper"
	"catalogscraper/pkg/storage"
	"catalogscraper/pkg/ui"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download product images for every discovered product",
	Long: `Visit every product page in the links file, extract its images and save
the ones not yet on disk under <output>/<gender>/<category>/.

A product is complete once every image found on its page is on disk; partial
products are revisited on the next run and only missing files are fetched.`,
	Example: `  # Download with defaults
  catalogscraper download

  # Custom output and skip anything attempted before
  catalogscraper download --output ./images --skip-attempted`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().String("links", "", "product links JSON file")
	downloadCmd.Flags().StringP("output", "o", "", "image output directory")
	downloadCmd.Flags().Int("download-concurrent", 0, "product pages processed concurrently")
	downloadCmd.Flags().String("scraped-log", "", "scraped log JSON file")
	downloadCmd.Flags().Bool("skip-attempted", false, "skip products present in the scraped log")
	downloadCmd.Flags().String("engine", "", "fetch engine (http, colly)")
	downloadCmd.Flags().Int("requests-per-minute", 0, "request rate limit")
	downloadCmd.Flags().Int("max-attempts", 0, "fetch attempts per page or image")
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	links, err := catalog.LoadLinkResults(cfg.Download.LinksFile)
	if err != nil {
		return err
	}
	ui.PrintInfo("Products", cfg.Download.LinksFile)

	out, err := storage.NewManager(cfg.Download.OutputDir)
	if err != nil {
		return err
	}
	ui.PrintInfo("Output", out.Root())

	ctx, stop := runContext()
	defer stop()

	reporter, log, closeReporter := newReporter(cfg, stop)
	defer closeReporter()

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, "download", cfg.Download.CheckpointFile, models.KindImage, log)
	if err != nil {
		return err
	}
	defer closeStore()

	scraped, closeLog, err := openScrapedLog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLog()

	s := scraper.New(client, client, out, newExtractor(cfg, log), scraper.Options{
		DownloadConcurrency: cfg.Download.MaxConcurrent,
		SkipAttempted:       cfg.Download.SkipAttempted,
	}, log)
	s.SetReporter(reporter)

	summary, runErr := s.DownloadImages(ctx, store, scraped, links)
	closeReporter()
	finishStage(summary, logger.GetLogger())
	return runErr
}
