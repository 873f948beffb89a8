// Package blob provides storage.BlobStore implementations for raw uploaded files:
// local filesystem, in-memory, Amazon S3 (or any S3-compatible endpoint) and MinIO.
package blob

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/scriptorium/storage"
)

// NewKey returns a fresh object key for an upload, keeping the file's extension.
func NewKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return "uploads/" + uuid.NewString() + ext
}

// cleanRef normalizes ref to a relative slash path and rejects refs that are
// empty or climb out of the store root.
func cleanRef(ref string) (string, error) {
	ref = strings.ReplaceAll(ref, `\`, "/")
	cleaned := path.Clean("/" + ref)[1:]
	if cleaned == "" || cleaned == "." || strings.HasPrefix(ref, "/") || strings.Contains(ref, "..") {
		return "", storage.ErrInvalidBlobRef
	}
	return cleaned, nil
}
