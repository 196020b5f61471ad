// Package chunk splits raw transcripts into overlapping windows.
//
// The Chunker produces ~2,000-character segments with ~200 characters of
// overlap, preferring to break on recognizable speaker-turn or timestamp
// boundaries ("[hh:mm:ss] — Speaker" or "SPEAKER:") and falling back to
// character counts otherwise. Chunk boundaries are deterministic, which the
// content-derived identifiers downstream rely on for idempotent ingestion.
package chunk
