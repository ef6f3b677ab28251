package github

import (
	"context"
	"fmt"
	"io"
	"net/http"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time check: *RawFetcher implements book.ContentFetcher.
var _ book.ContentFetcher = (*RawFetcher)(nil)

const userAgent = "git-book-reader"

// MaxContentBytes caps a single fetched body.
const MaxContentBytes = 8 << 20

// RawFetcher downloads file bodies from raw content addresses. Requests go
// through the go-github client's http.Client so they carry the configured
// token or App credentials.
type RawFetcher struct {
	hc *http.Client
}

// NewRawFetcher creates a RawFetcher sharing gh's transport.
func NewRawFetcher(gh *gogithub.Client) *RawFetcher {
	return &RawFetcher{hc: gh.Client()}
}

// FetchContent returns the raw bytes at address.
func (f *RawFetcher) FetchContent(ctx context.Context, address string) ([]byte, error) {
	op := "GET " + address
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, http.NoBody)
	if err != nil {
		return nil, book.NetworkError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, book.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // non-actionable after reading

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, book.RateLimitedError{Op: op, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, book.NetworkError{Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentBytes+1))
	if err != nil {
		return nil, book.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > MaxContentBytes {
		return nil, book.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", MaxContentBytes)}
	}
	return body, nil
}
