package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

var (
	// ErrIngesterRequired is returned when an ingester is not provided.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrDocumentStoreRequired is returned when a document store is not provided.
	ErrDocumentStoreRequired = errors.New("document store required")

	// ErrJobStoreRequired is returned when a job store is not provided.
	ErrJobStoreRequired = errors.New("job store required")
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		maxBytes   *http.MaxBytesError
		validation *core.ValidationError
		format     *core.FormatError
		parse      *core.ParseError
		embedding  *core.EmbeddingError
		timeout    *core.TimeoutError
	)
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, core.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation), errors.As(err, &format),
		errors.Is(err, core.ErrInvalidOptions), errors.Is(err, storage.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.As(err, &embedding):
		return http.StatusBadGateway
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error body. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
