// Package scraper runs the two crawl stages against a catalog.
//
// Discovery visits every category page of a category map and records the
// product links found there. Download visits every product page of the
// resulting link map, extracts its images and saves the ones missing on
// disk under <output>/<gender>/<category>/.
//
// Both stages share one shape:
//
//   - work items are built in sorted order from the input map
//   - items already complete in the checkpoint store are skipped
//   - the rest run through a bounded worker pool
//   - each item's result is written to the checkpoint store before its pool
//     slot is released, so an interrupted run loses at most in-flight items
//
// The checkpoint store (and, for downloads, the scraped log) is opened by
// the caller and passed in:
//
//	store, err := checkpoint.Open(ctx, checkpoint.NewFileBackend(cfg.Discovery.OutputFile), models.KindLink, log)
//	s := scraper.New(client, client, storageMgr, ex, scraper.Options{DiscoveryConcurrency: 4}, log)
//	summary, err := s.DiscoverLinks(ctx, store, categories)
//
// Running a stage twice against unchanged pages fetches nothing the second time.
package scraper
