package scraper

import (
	"context"
	"fmt"

	"catalogscraper/internal/downloader"
	"catalogscraper/pkg/catalog"
	"catalogscraper/pkg/checkpoint"
	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/extractor"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/page"
)

// Reporter receives per-item outcomes as they happen. Calls are serialized.
type Reporter interface {
	Start(stage models.Stage, total, skipped int)
	Item(key models.Key, outcome models.Outcome, records int, err error)
}

// Options tunes a Scraper
type Options struct {
	DiscoveryConcurrency int
	DownloadConcurrency  int
	// LinkCap bounds links per category page; < 1 means extractor.DefaultLinkCap
	LinkCap int
	// SkipAttempted also skips product URLs found in the scraped log
	SkipAttempted bool
}

// Scraper orchestrates the discovery and download stages
type Scraper struct {
	navigator page.Navigator
	assets    *downloader.Assets
	extractor *extractor.Extractor
	opts      Options
	logger    logger.Logger
	reporter  Reporter
}

// New creates a Scraper. fetcher and storage are only used by the download stage.
func New(nav page.Navigator, fetcher page.Fetcher, storage downloader.AssetStorage, ex *extractor.Extractor, opts Options, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.DiscoveryConcurrency < 1 {
		opts.DiscoveryConcurrency = 1
	}
	if opts.DownloadConcurrency < 1 {
		opts.DownloadConcurrency = 1
	}
	return &Scraper{
		navigator: nav,
		assets:    downloader.NewAssets(fetcher, storage, log),
		extractor: ex,
		opts:      opts,
		logger:    log,
		reporter:  nopReporter{},
	}
}

// SetReporter sets where per-item outcomes are reported
func (s *Scraper) SetReporter(r Reporter) {
	if r == nil {
		r = nopReporter{}
	}
	s.reporter = r
}

// DiscoverLinks visits every category page not yet complete in store and
// records its product links. A page yielding links is complete.
func (s *Scraper) DiscoverLinks(ctx context.Context, store *checkpoint.Store, categories catalog.CategoryMap) (*models.Summary, error) {
	op := func(ctx context.Context, log logger.Logger, item models.WorkItem) downloader.Result {
		return s.discoverOne(ctx, log, store, item)
	}
	skip := func(item models.WorkItem) bool {
		return store.IsComplete(item.Key)
	}
	return s.run(ctx, models.StageDiscover, categories.DiscoveryItems(), s.opts.DiscoveryConcurrency, skip, op)
}

// DownloadImages visits every product page not yet complete in store,
// extracts its images and downloads the ones missing on disk. A product is
// complete once every extracted image is on disk.
func (s *Scraper) DownloadImages(ctx context.Context, store *checkpoint.Store, scraped *checkpoint.ScrapedLog, links catalog.LinkResults) (*models.Summary, error) {
	op := func(ctx context.Context, log logger.Logger, item models.WorkItem) downloader.Result {
		return s.downloadOne(ctx, log, store, scraped, item)
	}
	skip := func(item models.WorkItem) bool {
		if store.IsComplete(item.Key) {
			return true
		}
		return s.opts.SkipAttempted && scraped != nil && scraped.Contains(item.URL)
	}
	return s.run(ctx, models.StageDownload, links.DownloadItems(), s.opts.DownloadConcurrency, skip, op)
}

type stageOp func(ctx context.Context, log logger.Logger, item models.WorkItem) downloader.Result

func (s *Scraper) run(ctx context.Context, stage models.Stage, items []models.WorkItem, capacity int, skip func(models.WorkItem) bool, op stageOp) (*models.Summary, error) {
	summary := models.NewSummary(stage)
	log := s.logger.WithFields(map[string]interface{}{
		"run_id": summary.RunID,
		"stage":  string(stage),
	})

	var pending, skipped []models.WorkItem
	for _, item := range items {
		if skip(item) {
			skipped = append(skipped, item)
			continue
		}
		pending = append(pending, item)
	}

	log.InfoWithFields("Stage started", map[string]interface{}{
		"items":    len(items),
		"pending":  len(pending),
		"skipped":  len(skipped),
		"capacity": capacity,
	})
	s.reporter.Start(stage, len(items), len(skipped))

	for _, item := range skipped {
		summary.Count(models.OutcomeSkipped, 0)
		logger.LogItem(log, string(stage), item.Key.Group, item.Key.Subgroup, string(models.OutcomeSkipped), 0, nil)
		s.reporter.Item(item.Key, models.OutcomeSkipped, 0, nil)
	}

	pool := downloader.NewPool(capacity, log)
	pool.OnResult = func(r downloader.Result) {
		summary.Count(r.Outcome, r.Records)
		logger.LogItem(log, string(stage), r.Item.Key.Group, r.Item.Key.Subgroup, string(r.Outcome), r.Records, r.Err)
		s.reporter.Item(r.Item.Key, r.Outcome, r.Records, r.Err)
	}
	pool.Run(ctx, pending, func(ctx context.Context, item models.WorkItem) downloader.Result {
		return op(ctx, log, item)
	})

	summary.Finish()
	log.InfoWithFields("Stage finished", map[string]interface{}{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
		"records":   summary.Records,
		"peak":      pool.Peak(),
		"duration":  summary.Duration,
	})

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%s interrupted: %w", stage, err)
	}
	return summary, nil
}

func (s *Scraper) discoverOne(ctx context.Context, log logger.Logger, store *checkpoint.Store, item models.WorkItem) downloader.Result {
	p, err := s.navigator.Navigate(ctx, item.URL)
	if err != nil {
		return failed(err)
	}
	rs := s.extractor.Links(p, s.opts.LinkCap)
	p.Close()

	if err := store.Record(ctx, item.Key, rs, rs.Len() > 0); err != nil {
		return failed(err)
	}
	if rs.Len() == 0 {
		return failed(errs.New(errs.ErrorTypeParsing, item.URL, "no product links found"))
	}

	log.DebugWithFields("Category links recorded", map[string]interface{}{
		"url":   item.URL,
		"links": rs.Len(),
	})
	return downloader.Result{Outcome: models.OutcomeSucceeded, Records: rs.Len()}
}

func (s *Scraper) downloadOne(ctx context.Context, log logger.Logger, store *checkpoint.Store, scraped *checkpoint.ScrapedLog, item models.WorkItem) downloader.Result {
	p, err := s.navigator.Navigate(ctx, item.URL)
	if err != nil {
		return failed(err)
	}
	rs := s.extractor.Images(p)
	p.Close()

	// a loaded page counts as attempted even when it yields nothing
	if scraped != nil {
		if err := scraped.Add(ctx, item.URL); err != nil {
			log.WithError(err).WithField("url", item.URL).Warn("Failed to update scraped log")
		}
	}

	if rs.Len() == 0 {
		if err := store.Record(ctx, item.Key, rs, false); err != nil {
			return failed(err)
		}
		return failed(errs.New(errs.ErrorTypeParsing, item.URL, "no product images found"))
	}

	report, dlErr := s.assets.DownloadAll(ctx, item.Folder, rs.Records())
	complete := report.OnDisk() == rs.Len()

	if err := store.Record(ctx, item.Key, rs, complete); err != nil {
		return failed(err)
	}

	log.DebugWithFields("Product images processed", map[string]interface{}{
		"url":        item.URL,
		"images":     rs.Len(),
		"existing":   report.Existing,
		"downloaded": report.Downloaded,
		"failed":     report.Failed,
	})

	if !complete {
		return downloader.Result{Outcome: models.OutcomeFailed, Records: report.Downloaded, Err: dlErr}
	}
	return downloader.Result{Outcome: models.OutcomeSucceeded, Records: report.Downloaded}
}

func failed(err error) downloader.Result {
	return downloader.Result{Outcome: models.OutcomeFailed, Err: err}
}

type nopReporter struct{}

func (nopReporter) Start(models.Stage, int, int)                {}
func (nopReporter) Item(models.Key, models.Outcome, int, error) {}
