package book

import (
	"net/url"
	"strings"
)

// DefaultRawBaseURL serves raw file bodies for public GitHub repositories.
const DefaultRawBaseURL = "https://raw.githubusercontent.com"

// AddressResolver maps a file path inside a repository to a content address.
type AddressResolver func(path string) string

// RawAddressResolver builds addresses of the form
// {base}/{owner}/{repo}/{revision}/{path}. Each segment of revision and path is
// percent-encoded on its own so slashes stay separators.
func RawAddressResolver(baseURL string, repo Repository) AddressResolver {
	if baseURL == "" {
		baseURL = DefaultRawBaseURL
	}
	root := strings.TrimRight(baseURL, "/") + "/" +
		url.PathEscape(repo.Owner) + "/" +
		url.PathEscape(repo.Name) + "/" +
		escapeSegments(repo.Branch)

	return func(path string) string {
		return root + "/" + escapeSegments(path)
	}
}

func escapeSegments(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
