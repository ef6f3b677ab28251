package book

import (
	"errors"
	"fmt"
	"time"
)

// InvalidIdentifierError is returned when a repository reference does not
// parse into an owner and a repository name.
type InvalidIdentifierError struct {
	Input string
}

// Error implements the error interface.
func (e InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid GitHub repository %q (example: https://github.com/apple/swift)", e.Input)
}

// RateLimitedError is returned when the remote host throttles the caller.
// ResetAt is zero when the host did not say when the limit lifts.
type RateLimitedError struct {
	Op      string
	Status  int
	ResetAt time.Time
}

// Error implements the error interface.
func (e RateLimitedError) Error() string {
	msg := fmt.Sprintf("%s: GitHub API rate limit exceeded", e.Op)
	if !e.ResetAt.IsZero() {
		msg += ", resets at " + e.ResetAt.UTC().Format(time.RFC3339)
	}
	return msg + ". Try again later."
}

// NetworkError wraps a transport failure, a non-success status or an
// undecodable response. Status is zero when no response was received.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

// Error implements the error interface.
func (e NetworkError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s returned %d", e.Op, e.Status)
	}
}

// Unwrap returns the underlying cause.
func (e NetworkError) Unwrap() error { return e.Err }

// ContentDecodeError is returned when a fetched body is not valid text.
type ContentDecodeError struct {
	Address string
}

// Error implements the error interface.
func (e ContentDecodeError) Error() string {
	return fmt.Sprintf("content at %s is not valid UTF-8 text", e.Address)
}

// NoRepositoryError is returned when content is requested before any
// repository has loaded successfully.
type NoRepositoryError struct{}

// Error implements the error interface.
func (NoRepositoryError) Error() string { return "no repository loaded" }

// NodeNotFoundError is returned when a path is not part of the current tree.
type NodeNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e NodeNotFoundError) Error() string {
	return fmt.Sprintf("%q is not in the current repository tree", e.Path)
}

// NotAFileError is returned when file content is requested for a directory.
type NotAFileError struct {
	Path string
}

// Error implements the error interface.
func (e NotAFileError) Error() string {
	return fmt.Sprintf("%q is a directory", e.Path)
}

// ErrorKind classifies err for presentation. Unknown errors are "network"
// since every remaining failure comes from the transport.
func ErrorKind(err error) string {
	var (
		invalid  InvalidIdentifierError
		limited  RateLimitedError
		decode   ContentDecodeError
		noRepo   NoRepositoryError
		notFound NodeNotFoundError
		notFile  NotAFileError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return "invalid_identifier"
	case errors.As(err, &limited):
		return "rate_limited"
	case errors.As(err, &decode):
		return "content_decode"
	case errors.As(err, &noRepo):
		return "no_repository"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &notFile):
		return "not_a_file"
	default:
		return "network"
	}
}
