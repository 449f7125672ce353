// Package corpus streams newline-delimited corpus records from a file or an
// HTTP endpoint.
package corpus

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source opens a fresh sequential stream over the corpus. Every call to Open
// starts from the first line; resuming is done by skipping lines.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)

	// String describes the source for logs.
	String() string
}

// NewSource returns a Source for the given location. http:// and https://
// locations are streamed over HTTP, anything else is treated as a local path
// (an optional file:// prefix is stripped).
func NewSource(location string) (Source, error) {
	switch {
	case location == "":
		return nil, errors.New("corpus source is required")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location, nil), nil
	default:
		return NewFileSource(strings.TrimPrefix(location, "file://")), nil
	}
}

// FileSource reads the corpus from a local file. Files ending in .gz are
// decompressed transparently.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Open opens the corpus file.
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}

	if !strings.HasSuffix(s.Path, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening gzip corpus: %w", err)
	}
	return &gzipReadCloser{Reader: gz, file: f}, nil
}

func (s *FileSource) String() string {
	return "file://" + s.Path
}

type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// HTTPSource streams the corpus body of a GET request.
type HTTPSource struct {
	URL        string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client gets a client without an
// overall timeout, since the body of a large corpus streams for a long time.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 60 * time.Second,
			},
		}
	}
	return &HTTPSource{URL: url, httpClient: client}
}

// Open issues the GET request and returns the streaming body.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating corpus request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting corpus: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("corpus returned status %d: %s", resp.StatusCode, string(body))
	}

	if strings.HasSuffix(s.URL, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("opening gzip corpus: %w", err)
		}
		return &bodyGzipReadCloser{Reader: gz, body: resp.Body}, nil
	}

	return resp.Body, nil
}

func (s *HTTPSource) String() string {
	return s.URL
}

type bodyGzipReadCloser struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g *bodyGzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}
