package loader

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("loader: unsupported format")

	// ErrInvalidXES is returned when an XES document is malformed.
	ErrInvalidXES = errors.New("loader: invalid XES document")

	// ErrEmptyInput is returned when a tabular source has no header row.
	ErrEmptyInput = errors.New("loader: input is empty")

	// ErrInvalidTimestamp is returned when timestamp parsing fails.
	ErrInvalidTimestamp = errors.New("loader: invalid timestamp format")

	// ErrContextCanceled is returned when the context is canceled.
	ErrContextCanceled = errors.New("loader: context canceled")
)
