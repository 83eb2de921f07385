package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/page"
)

// AssetStorage is where downloaded files land
type AssetStorage interface {
	Exists(folder []string, filename string) bool
	Save(r io.Reader, folder []string, filename string) error
}

// Assets downloads image records into storage, skipping files already on disk
type Assets struct {
	fetcher page.Fetcher
	storage AssetStorage
	logger  logger.Logger
}

// NewAssets creates an asset downloader
func NewAssets(fetcher page.Fetcher, storage AssetStorage, log logger.Logger) *Assets {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Assets{fetcher: fetcher, storage: storage, logger: log}
}

// AssetReport counts what happened to one item's records
type AssetReport struct {
	Existing   int
	Downloaded int
	Failed     int
}

// OnDisk is the number of records whose file is present
func (r AssetReport) OnDisk() int { return r.Existing + r.Downloaded }

// DownloadAll fetches every record not yet on disk. Individual failures are
// joined into the returned error; the other records still proceed. It stops
// early when ctx is done.
func (a *Assets) DownloadAll(ctx context.Context, folder []string, records []models.Record) (AssetReport, error) {
	var report AssetReport
	var failures []error

	for _, rec := range records {
		if a.storage.Exists(folder, rec.Filename) {
			report.Existing++
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Failed += len(records) - report.OnDisk() - report.Failed
			failures = append(failures, err)
			break
		}

		if err := a.download(ctx, folder, rec); err != nil {
			report.Failed++
			failures = append(failures, err)
			a.logger.WithError(err).WithField("url", rec.URL).Warn("Asset download failed")
			continue
		}
		report.Downloaded++
	}

	return report, errors.Join(failures...)
}

func (a *Assets) download(ctx context.Context, folder []string, rec models.Record) error {
	data, _, err := a.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rec.Filename, err)
	}
	if err := a.storage.Save(bytes.NewReader(data), folder, rec.Filename); err != nil {
		return fmt.Errorf("save %s: %w", rec.Filename, err)
	}
	a.logger.DebugWithFields("Asset saved", map[string]interface{}{
		"file": rec.Filename,
		"size": len(data),
	})
	return nil
}
