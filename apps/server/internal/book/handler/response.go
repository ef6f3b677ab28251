package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type snapshotResponse struct {
	Status     book.Status      `json:"status"`
	Generation uint64           `json:"generation"`
	Identifier string           `json:"identifier,omitempty"`
	Repository *book.Repository `json:"repository,omitempty"`
	Truncated  bool             `json:"truncated,omitempty"`
	Superseded bool             `json:"superseded,omitempty"`
	Nodes      int              `json:"nodes,omitempty"`
	Tree       *book.Tree       `json:"tree,omitempty"`
	Error      *errorBody       `json:"error,omitempty"`
}

// toSnapshot renders snap. The tree is only included when withTree is set;
// event streams carry the node count alone.
func toSnapshot(snap book.Snapshot, withTree bool) snapshotResponse {
	out := snapshotResponse{
		Status:     snap.Status,
		Generation: snap.Generation,
		Identifier: snap.Identifier,
		Truncated:  snap.Truncated,
		Superseded: snap.Superseded,
	}
	if snap.Repository.Owner != "" {
		repo := snap.Repository
		out.Repository = &repo
	}
	if snap.Tree != nil {
		out.Nodes = snap.Tree.Len()
		if withTree {
			out.Tree = snap.Tree
		}
	}
	if snap.Err != nil {
		out.Error = &errorBody{Error: snap.Err.Error(), Kind: book.ErrorKind(snap.Err)}
	}
	return out
}

// statusFor maps a book error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch book.ErrorKind(err) {
	case "invalid_identifier", "not_a_file":
		return http.StatusBadRequest
	case "no_repository", "not_found":
		return http.StatusNotFound
	case "rate_limited":
		return http.StatusTooManyRequests
	case "content_decode":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// respondError writes err as a JSON error body. Upstream failures are logged;
// client mistakes are not.
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		h.log.Error(msg, "path", c.Request.URL.Path, "error", err)
	}
	var limited book.RateLimitedError
	if errors.As(err, &limited) && !limited.ResetAt.IsZero() {
		c.Header("X-RateLimit-Reset", limited.ResetAt.UTC().Format(http.TimeFormat))
	}
	c.JSON(status, errorBody{Error: err.Error(), Kind: book.ErrorKind(err)})
}
