package recipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Source provides the raw JSON corpus: an array of records.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads the corpus from a local JSON file.
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	return f, nil
}

func (s FileSource) String() string { return s.Path }

// HTTPSource fetches the corpus from a static URL.
type HTTPSource struct {
	URL    string
	Token  string // optional bearer token
	Client *http.Client
}

// NewHTTPSource creates an HTTPSource with a bounded request timeout.
func NewHTTPSource(url, token string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("corpus endpoint returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *HTTPSource) String() string { return s.URL }

// Bytes is an in-memory Source, mostly useful for embedded fixtures.
type Bytes []byte

func (b Bytes) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (b Bytes) String() string { return "memory" }
