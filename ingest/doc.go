// Package ingest orchestrates the ingestion pipeline: transcripts are
// chunked, knowledge is extracted in rate-limited batches, records are
// normalized and merged into the graph while chunk embeddings fill the
// vector index, and finally recurring concepts are linked across episodes.
// The whole run is idempotent because every record carries a
// content-derived id.
package ingest
