package testutils

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// LinesSource is an in-memory corpus.Source over fixed lines.
type LinesSource struct {
	mu    sync.Mutex
	Lines []string

	// FailOpen causes Open to return an error.
	FailOpen bool

	opens int
}

func NewLinesSource(lines ...string) *LinesSource {
	return &LinesSource{Lines: lines}
}

func (s *LinesSource) Open(_ context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailOpen {
		return nil, errors.New("mock corpus unavailable")
	}
	s.opens++

	body := strings.Join(s.Lines, "\n")
	if len(s.Lines) > 0 {
		body += "\n"
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// Append adds lines to the end of the corpus.
func (s *LinesSource) Append(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lines = append(s.Lines, lines...)
}

// Opens returns how many times the corpus was opened.
func (s *LinesSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *LinesSource) String() string {
	return "mem://corpus"
}
