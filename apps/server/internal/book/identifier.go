package book

import (
	"strings"
)

const githubHost = "github.com"

// Repository names a repository at a resolved revision.
type Repository struct {
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Branch string `json:"branch,omitempty"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseIdentifier extracts owner and repository name from user input. It
// accepts anything containing a github.com segment followed by owner and repo
// ("https://github.com/apple/swift", "github.com/apple/swift.git/tree/main")
// and the "owner/repo" shorthand. A trailing ".git" is dropped from the name.
func ParseIdentifier(input string) (Repository, error) {
	cleaned := strings.TrimSpace(input)
	if i := strings.IndexAny(cleaned, "?#"); i >= 0 {
		cleaned = cleaned[:i]
	}
	parts := strings.Split(cleaned, "/")

	var owner, name string
	switch idx := indexOf(parts, githubHost); {
	case idx >= 0:
		if idx+2 >= len(parts) {
			return Repository{}, InvalidIdentifierError{Input: input}
		}
		owner, name = parts[idx+1], parts[idx+2]
	case len(parts) == 2 && !strings.Contains(cleaned, ":"):
		owner, name = parts[0], parts[1]
	default:
		return Repository{}, InvalidIdentifierError{Input: input}
	}

	name = strings.TrimSuffix(name, ".git")
	if !validSegment(owner) || !validSegment(name) {
		return Repository{}, InvalidIdentifierError{Input: input}
	}
	return Repository{Owner: owner, Name: name}, nil
}

func indexOf(parts []string, s string) int {
	for i, p := range parts {
		if strings.EqualFold(p, s) {
			return i
		}
	}
	return -1
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, " \t")
}
