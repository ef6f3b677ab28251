package book

import "context"

// Listing is the flat tree of one repository revision.
type Listing struct {
	Entries []Entry
	// Truncated is set when the host returned only part of the tree.
	Truncated bool
}

// ListingClient talks to the repository host. Implementations live in
// adapters (e.g. adapters/github).
type ListingClient interface {
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)
	ListEntries(ctx context.Context, owner, repo, revision string) (*Listing, error)
}

// ContentFetcher downloads the raw body at a content address.
type ContentFetcher interface {
	FetchContent(ctx context.Context, address string) ([]byte, error)
}

// ContentStore is the memoization backend of ContentCache. Entries may vanish
// at any time; a miss is reported as ok=false with a nil error.
type ContentStore interface {
	Get(ctx context.Context, address string) (text string, ok bool, err error)
	Set(ctx context.Context, address, text string) error
}

// HistoryStore persists the recent-repository list under a fixed key.
type HistoryStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// HistoryKey is the fixed name the recent-repository list is stored under.
const HistoryKey = "recentRepos"
