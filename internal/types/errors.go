package types

import "errors"

// Error taxonomy for container parsing and serialization. Every failure
// surfaced by the stream, box and container layers wraps exactly one of
// these sentinels so callers can classify failures with errors.Is.
var (
	// ErrUnexpectedEOF is returned when the byte source is exhausted
	// before a read could be satisfied. Partial box data cannot be
	// recovered, so this is always terminal for the current operation.
	ErrUnexpectedEOF = errors.New("unexpected end of data")

	// ErrInvalidData is returned when the container structure itself is
	// malformed: a header whose bounds escape its parent, an unsupported
	// full-box version, or a length computation that overflows.
	ErrInvalidData = errors.New("invalid container data")

	// ErrOutOfRange is returned when a position or segment request falls
	// outside the bounds of the byte source. This is a contract
	// violation at the API boundary, not a property of the file.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrClosed is returned when an operation is attempted on a reader
	// or writer after its owning open/save operation completed.
	ErrClosed = errors.New("stream already closed")
)
