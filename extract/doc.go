// Package extract turns transcript chunks into raw knowledge records.
//
// The Extractor batches chunks, sends each batch to a KnowledgeExtractor on
// a worker pool, and tags every returned concept, relationship and quote
// with the provenance of its source chunk. All model calls share one
// tokens-per-minute RateLimiter, so concurrency can be tuned independently
// of the provider's throughput ceiling. Batches that fail after retries are
// reported in the result rather than aborting the run.
package extract
