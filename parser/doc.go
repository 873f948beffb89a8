// Package parser converts raw document buffers into core.ParsedContent.
//
// Each supported format is a Parser. A Registry is built once at startup with
// NewRegistry or NewDefaultRegistry and passed to whoever needs to parse; lookup
// returns the first registered parser whose CanHandle accepts the MIME type and
// falls back to the plain text parser otherwise.
//
// Unrecoverable failures are reported as *core.ParseError. The PDF parser is the
// only one with a degraded path: when the remote extraction service is
// unavailable or fails, it extracts what it can locally and marks the result's
// metadata with extraction=fallback and a warning.
package parser
