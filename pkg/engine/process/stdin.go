package process

import (
	"io"
	"sync"
)

// stdinWriter serializes writes to the child's stdin and appends the
// newline every USI command line requires.
type stdinWriter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// WriteLine writes line followed by a single newline.
func (s *stdinWriter) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// Close closes the underlying stdin pipe.
func (s *stdinWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
