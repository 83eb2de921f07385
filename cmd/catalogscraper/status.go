package main

import (
	"fmt"
	"os"

	"catalogscraper/pkg/catalog"
	"catalogscraper/pkg/checkpoint"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/storage"
	"catalogscraper/pkg/ui"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint progress for both stages",
	Long: `Load the discovery and download checkpoints and report how much of each
stage is complete. Nothing is fetched and nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := runContext()
	defer stop()

	ui.PrintHighlight("[DISCOVER]")
	if categories, err := catalog.LoadCategoryMap(cfg.Discovery.CategoriesFile); err == nil {
		ui.PrintInfo("Categories", fmt.Sprint(len(categories.DiscoveryItems())))
	} else {
		ui.PrintWarning("Category map unavailable", err)
	}

	links, closeLinks, err := openStore(ctx, cfg, "discover", cfg.Discovery.OutputFile, models.KindLink, log)
	if err != nil {
		return err
	}
	defer closeLinks()
	printProgress(links)

	fmt.Fprintln(ui.Output)
	ui.PrintHighlight("[DOWNLOAD]")
	if products, err := catalog.LoadLinkResults(cfg.Download.LinksFile); err == nil {
		ui.PrintInfo("Products", fmt.Sprint(len(products.DownloadItems())))
	} else {
		ui.PrintWarning("Links file unavailable", err)
	}

	images, closeImages, err := openStore(ctx, cfg, "download", cfg.Download.CheckpointFile, models.KindImage, log)
	if err != nil {
		return err
	}
	defer closeImages()
	printProgress(images)

	scraped, closeLog, err := openScrapedLog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLog()
	ui.PrintInfo("Attempted", fmt.Sprint(scraped.Len()))

	if _, err := os.Stat(cfg.Download.OutputDir); err == nil {
		out, err := storage.NewManager(cfg.Download.OutputDir)
		if err != nil {
			return err
		}
		files, err := out.Count()
		if err != nil {
			return err
		}
		ui.PrintInfo("Files on disk", fmt.Sprint(files))
	}
	return nil
}

const maxListed = 10

// printProgress reports a stage's counts and names the first recorded keys
// that are not complete yet
func printProgress(store *checkpoint.Store) {
	keys, completed := store.Stats()
	ui.PrintInfo("Recorded", fmt.Sprint(keys))
	ui.PrintInfo("Complete", fmt.Sprint(completed))

	var pending []models.Key
	for _, k := range store.Keys() {
		if !store.IsComplete(k) {
			pending = append(pending, k)
		}
	}
	if len(pending) == 0 {
		return
	}

	ui.PrintWarning("Incomplete", len(pending))
	for i, k := range pending {
		if i == maxListed {
			fmt.Fprintln(ui.Output, ui.Dim(fmt.Sprintf("  ... and %d more", len(pending)-maxListed)))
			break
		}
		fmt.Fprintln(ui.Output, ui.Dim("  "+k.String()))
	}
}
