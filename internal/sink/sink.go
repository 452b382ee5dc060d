package sink

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink closed")

// OpenError is returned when the sink file cannot be opened or created.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open sink %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// File is an append-only text file. It never seeks or truncates.
type File struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	createdAt time.Time
	closed    bool
}

// Open opens path for appending, creating it if it does not exist.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	s := &File{
		path: path,
		file: f,
	}
	if info, err := f.Stat(); err == nil {
		s.createdAt = fileCreationTime(info)
	}
	return s, nil
}

// Append writes all parts with a single write call, so a reader never sees
// one part without the others.
func (s *File) Append(parts ...[]byte) (int, error) {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := s.file.Write(buf)
	if err != nil {
		return n, fmt.Errorf("append to %s: %w", s.path, err)
	}
	return n, nil
}

// Size returns the current length of the file in bytes.
func (s *File) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", s.path, err)
	}
	return info.Size(), nil
}

func (s *File) Path() string {
	return s.path
}

// CreatedAt is the best creation time the platform exposes for the file.
func (s *File) CreatedAt() time.Time {
	return s.createdAt
}

// Close releases the file handle. Calling it more than once is a no-op.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
