package main

import (
	"context"
	"fmt"
	"strings"

	"catalogscraper/pkg/checkpoint"
	"catalogscraper/pkg/config"
	"catalogscraper/pkg/extractor"
	"catalogscraper/pkg/fetch"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
	"catalogscraper/pkg/ratelimit"
	"catalogscraper/pkg/retry"
)

// newClient builds the configured fetch engine with its limiter and retry policy
func newClient(cfg *config.Config, log logger.Logger) (fetch.Client, error) {
	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	client, err := fetch.New(cfg.Fetcher, fetch.Options{
		Limiter: limiter,
		Retry:   retry.FromConfig(cfg.Retry, log),
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	logger.LogComponentStart(log, "fetcher", map[string]interface{}{
		"engine":         cfg.Fetcher.Engine,
		"rate_strategy":  cfg.RateLimit.Strategy,
		"rpm":            cfg.RateLimit.RequestsPerMinute,
		"max_attempts":   cfg.Retry.MaxAttempts,
		"respect_robots": cfg.Fetcher.RespectRobots,
	})
	return client, nil
}

func newExtractor(cfg *config.Config, log logger.Logger) *extractor.Extractor {
	return extractor.New(extractor.Options{
		LinkPrefix:    cfg.Discovery.LinkPrefix,
		ProductMarker: cfg.Discovery.ProductMarker,
		Brand:         cfg.Download.Brand,
	}, log)
}

// openStore opens the checkpoint for one stage. name identifies the stage's
// document in MongoDB; path is the results file for the file backend.
// The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config, name, path string, kind models.Kind, log logger.Logger) (*checkpoint.Store, func(), error) {
	var backend checkpoint.Backend
	closer := func() {}

	switch strings.ToLower(cfg.Checkpoint.Backend) {
	case "mongo":
		mb, err := checkpoint.NewMongoBackend(ctx, cfg.Checkpoint.MongoURI, cfg.Checkpoint.MongoDatabase, cfg.Checkpoint.MongoCollection, name)
		if err != nil {
			return nil, closer, err
		}
		backend = mb
		closer = func() {
			if err := mb.Close(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}
	default:
		backend = checkpoint.NewFileBackend(path)
	}

	store, err := checkpoint.Open(ctx, backend, kind, log)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return store, closer, nil
}

// openScrapedLog opens the download stage's scraped log
func openScrapedLog(ctx context.Context, cfg *config.Config, log logger.Logger) (*checkpoint.ScrapedLog, func(), error) {
	var backend checkpoint.LogBackend
	closer := func() {}

	switch strings.ToLower(cfg.Checkpoint.ScrapedLogBackend) {
	case "redis":
		client, err := checkpoint.DialRedis(ctx, cfg.Checkpoint.RedisAddr)
		if err != nil {
			return nil, closer, err
		}
		backend = checkpoint.NewRedisLog(client, cfg.Checkpoint.RedisKey)
		closer = func() { _ = client.Close() }
	default:
		backend = checkpoint.NewFileLog(cfg.Download.ScrapedLogFile)
	}

	scraped, err := checkpoint.OpenScrapedLog(ctx, backend, log)
	if err != nil {
		closer()
		return nil, func() {}, err
	}
	return scraped, closer, nil
}
