package models

import "errors"

// Sentinel errors for the request and pipeline failure classes. Callers wrap
// these with fmt.Errorf and %w; the HTTP layer maps them to status codes with
// errors.Is.
var (
	// ErrConfiguration marks invalid settings (bad chunk size/overlap,
	// pinned-model mismatch). Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat marks an upload with an extension outside the
	// supported set.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrPayloadTooLarge marks an upload exceeding the configured maximum size.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrExtraction marks corrupt or unreadable document content.
	ErrExtraction = errors.New("text extraction failed")

	// ErrDimensionMismatch marks a vector whose dimensionality differs from
	// the index. Always a misconfiguration; the index is never corrupted.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidQuery marks an empty or malformed query request.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound marks a lookup for a document or message that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGeneration marks a failed hosted-LLM call. Recoverable: retrieval
	// results are still returned.
	ErrGeneration = errors.New("answer generation failed")
)
