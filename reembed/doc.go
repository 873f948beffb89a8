// Package reembed backfills chunk embeddings with the configured embedding model.
//
// Chunks are visited in ID order in fixed-size batches. Each batch is embedded
// with retry and exponential backoff, normalized to unit length and written back
// with the new model name and dimension. Progress is reported to a writer.
package reembed
