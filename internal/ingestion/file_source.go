package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

const maxLineSize = 4 << 20

// FileSource reads newline-delimited JSON messages from a file or stdin.
// Blank lines are skipped. Commit is a no-op.
type FileSource struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int64
}

// NewFileSource opens path for reading. "-" reads stdin.
func NewFileSource(path string) (*FileSource, error) {
	if path == "-" || path == "" {
		return NewReaderSource(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event file: %w", err)
	}
	s := NewReaderSource(f)
	s.closer = f
	return s, nil
}

// NewReaderSource reads messages from r.
func NewReaderSource(r io.Reader) *FileSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &FileSource{scanner: scanner}
}

// Fetch returns the next non-blank line, or io.EOF at end of input.
func (s *FileSource) Fetch(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read line %d: %w", s.line+1, err)
			}
			return nil, io.EOF
		}
		s.line++

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		value := make([]byte, len(line))
		copy(value, line)
		return NewDelivery(value, s.line), nil
	}
}

// Commit is a no-op; files are re-read from the start.
func (s *FileSource) Commit(context.Context, *Delivery) error {
	return nil
}

// Close closes the underlying file, if any.
func (s *FileSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
