// Package device provides the byte sources the container core reads
// from: local files and in-memory buffers. The core itself never
// assumes a transport; anything satisfying interfaces.ByteSource works.
package device

import (
	"fmt"
	"io"
	"os"
)

// FileSource provides read access to an AVIF file on disk.
type FileSource struct {
	file *os.File
	size int64
}

// OpenFile opens path for reading and captures its length.
func OpenFile(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}
	return &FileSource{file: file, size: stat.Size()}, nil
}

// ReadAt implements io.ReaderAt over the file.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the file length in bytes.
func (s *FileSource) Size() int64 {
	return s.size
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// MemorySource serves a byte slice as a ByteSource, mainly for tests
// and callers that already hold the file in memory.
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps data without copying it.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// ReadAt implements io.ReaderAt over the slice.
func (s *MemorySource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.data)) {
		return 0, fmt.Errorf("read at %d outside buffer of %d bytes", off, len(s.data))
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the buffer length.
func (s *MemorySource) Size() int64 {
	return int64(len(s.data))
}
