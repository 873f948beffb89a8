// Package filetype classifies uploaded buffers.
//
// A Resolver sniffs the MIME type of a buffer (content first, file name only to
// refine generic text), computes a content hash used as the document's
// content-addressing key, and enforces an upload size limit expressed as a
// human-readable string ("100MB").
//
// Validation failures are reported with the shared error taxonomy in package core:
// oversized or empty uploads produce *core.ValidationError and malformed size
// strings produce *core.FormatError.
package filetype
