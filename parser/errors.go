package parser

import "errors"

var (
	// ErrNoText indicates the input produced no extractable text.
	ErrNoText = errors.New("no extractable text")

	// ErrMissingDocumentPart indicates an office container lacks its main document part.
	ErrMissingDocumentPart = errors.New("document part not found")
)
