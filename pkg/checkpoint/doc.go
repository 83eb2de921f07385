// Package checkpoint holds the durable crawl state.
//
// A Store maps work-item keys (group, subgroup) to the values extracted for
// them and tracks which keys are complete. Each Record call rewrites the
// whole store through a Backend before returning: FileBackend (JSON files,
// atomic rename) or MongoBackend (one upserted document).
//
// ScrapedLog is the coarser set of product URLs already attempted by the
// download stage, kept in a JSON list file or a Redis set.
package checkpoint
