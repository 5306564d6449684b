// File: internal/interfaces/byte_source.go
package interfaces

import "io"

// ByteSource is a seekable, readable byte range of known total length.
// The container core borrows a source for the duration of one parse
// pass; ownership stays with the caller.
type ByteSource interface {
	io.ReaderAt

	// Size returns the total length of the source in bytes.
	Size() int64
}

// ByteSink receives the serialized container. Serialization is a single
// forward pass, so an appendable writer is all the core needs.
type ByteSink interface {
	io.Writer
}

// SourceCloser is a ByteSource bound to an underlying resource that
// must be released when the operation completes.
type SourceCloser interface {
	ByteSource
	io.Closer
}
