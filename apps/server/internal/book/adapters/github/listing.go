// Package github implements the book listing and content ports against the
// GitHub REST API using go-github. Wire it up with an authenticated
// *github.Client from apps/server/internal/platform/github.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time check: *Adapter implements book.ListingClient.
var _ book.ListingClient = (*Adapter)(nil)

// Adapter resolves default branches and lists repository trees.
type Adapter struct {
	gh *gogithub.Client
}

// New creates an Adapter from an authenticated *github.Client.
func New(gh *gogithub.Client) *Adapter {
	return &Adapter{gh: gh}
}

// DefaultBranch returns the repository's default branch name.
func (a *Adapter) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := a.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", mapError("get repository", err)
	}
	branch := r.GetDefaultBranch()
	if branch == "" {
		return "", book.NetworkError{Op: "get repository", Err: errors.New("response has no default branch")}
	}
	return branch, nil
}

// ListEntries lists every path of the tree at revision in one recursive call.
// Entries other than blobs and trees (submodules) are skipped. An empty
// repository yields an empty listing.
func (a *Adapter) ListEntries(ctx context.Context, owner, repo, revision string) (*book.Listing, error) {
	tree, _, err := a.gh.Git.GetTree(ctx, owner, repo, escapeRevision(revision), true)
	if err != nil {
		var errResp *gogithub.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusConflict {
			return &book.Listing{}, nil
		}
		return nil, mapError("get tree", err)
	}

	entries := make([]book.Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		var kind book.Kind
		switch e.GetType() {
		case "blob":
			kind = book.KindFile
		case "tree":
			kind = book.KindDirectory
		default:
			continue
		}
		entry := book.Entry{Path: e.GetPath(), Kind: kind}
		if e.Size != nil {
			size := int64(e.GetSize())
			entry.Size = &size
		}
		entries = append(entries, entry)
	}
	return &book.Listing{Entries: entries, Truncated: tree.GetTruncated()}, nil
}

// escapeRevision percent-encodes each segment of a branch name; go-github
// formats the revision into the request path as is.
func escapeRevision(rev string) string {
	segs := strings.Split(rev, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// mapError turns go-github failures into book errors. Throttling, primary or
// secondary, becomes RateLimitedError; everything else is a NetworkError.
func mapError(op string, err error) error {
	var (
		rateErr  *gogithub.RateLimitError
		abuseErr *gogithub.AbuseRateLimitError
		errResp  *gogithub.ErrorResponse
	)
	switch {
	case errors.As(err, &rateErr):
		return book.RateLimitedError{Op: op, Status: statusOf(rateErr.Response), ResetAt: rateErr.Rate.Reset.Time}
	case errors.As(err, &abuseErr):
		var reset time.Time
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return book.RateLimitedError{Op: op, Status: statusOf(abuseErr.Response), ResetAt: reset}
	case errors.As(err, &errResp):
		status := statusOf(errResp.Response)
		if status == http.StatusForbidden || status == http.StatusTooManyRequests {
			return book.RateLimitedError{Op: op, Status: status}
		}
		return book.NetworkError{Op: op, Status: status, Err: err}
	default:
		return book.NetworkError{Op: op, Err: err}
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
