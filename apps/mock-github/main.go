// Command mock-github serves the slice of the GitHub REST API and the raw
// content host that git-book-reader talks to, backed by seeded in-memory
// repositories.
package main

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nbhson/git-book-reader/pkg/logging"
)

// repo is one seeded repository on its default branch.
type repo struct {
	DefaultBranch string
	Files         map[string][]byte
	// Throttled repos answer every API call with a primary rate-limit error.
	Throttled bool
}

// treeEntry mirrors an item of GitHub's git/trees response.
type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size *int   `json:"size,omitempty"`
}

// store holds repositories keyed by "owner/repo".
type store struct {
	mu    sync.RWMutex
	repos map[string]*repo
}

func newStore() *store {
	return &store{repos: make(map[string]*repo)}
}

func (s *store) put(fullName string, r *repo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[fullName] = r
}

func (s *store) get(owner, name string) (*repo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.repos[owner+"/"+name]
	return r, ok
}

func (s *store) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.repos))
	for k := range s.repos {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// tree lists every file of r plus the directories implied by their paths,
// sorted by path like the real endpoint.
func (r *repo) tree() []treeEntry {
	dirs := make(map[string]bool)
	entries := make([]treeEntry, 0, len(r.Files))
	for path, body := range r.Files {
		size := len(body)
		entries = append(entries, treeEntry{
			Path: path, Mode: "100644", Type: "blob", SHA: fakeSHA(path), Size: &size,
		})
		for dir := parentDir(path); dir != ""; dir = parentDir(dir) {
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		entries = append(entries, treeEntry{Path: dir, Mode: "040000", Type: "tree", SHA: fakeSHA(dir)})
	}
	slices.SortFunc(entries, func(a, b treeEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries
}

func parentDir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

func fakeSHA(s string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x%016x%08x", h, h^0x9e3779b97f4a7c15, uint32(h))
}

func main() {
	log := logging.New("mock-github")
	s := newStore()

	seedRepos(s)
	log.Info("seeded repos", "repos", len(s.names()))

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	registerRoutes(r, s, log)

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func registerRoutes(r *gin.Engine, s *store, log *slog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, renderIndex(s.names()))
	})

	api := r.Group("/repos/:owner/:repo")
	api.Use(func(c *gin.Context) {
		rp, ok := s.get(c.Param("owner"), c.Param("repo"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}
		if rp.Throttled {
			reset := time.Now().Add(time.Hour).Unix()
			c.Header("X-RateLimit-Limit", "60")
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "API rate limit exceeded for 127.0.0.1."})
			return
		}
		c.Set("repo", rp)
		c.Next()
	})

	api.GET("", func(c *gin.Context) {
		rp := c.MustGet("repo").(*repo)
		owner, name := c.Param("owner"), c.Param("repo")
		c.JSON(http.StatusOK, gin.H{
			"name":           name,
			"full_name":      owner + "/" + name,
			"owner":          gin.H{"login": owner},
			"default_branch": rp.DefaultBranch,
			"private":        false,
		})
	})

	api.GET("/git/trees/:sha", func(c *gin.Context) {
		rp := c.MustGet("repo").(*repo)
		if c.Param("sha") != rp.DefaultBranch {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
			return
		}
		if len(rp.Files) == 0 {
			c.JSON(http.StatusConflict, gin.H{"message": "Git Repository is empty."})
			return
		}
		entries := rp.tree()
		if c.Query("recursive") == "" {
			entries = slices.DeleteFunc(entries, func(e treeEntry) bool { return strings.Contains(e.Path, "/") })
		}
		log.Info("tree listed", "owner", c.Param("owner"), "repo", c.Param("repo"), "entries", len(entries))
		c.JSON(http.StatusOK, gin.H{
			"sha":       fakeSHA(c.Param("owner") + "/" + c.Param("repo")),
			"tree":      entries,
			"truncated": false,
		})
	})

	// Raw content host: /raw/{owner}/{repo}/{branch}/{path}. Branch names
	// containing slashes are matched against the default branch.
	r.GET("/raw/:owner/:repo/*rest", func(c *gin.Context) {
		rp, ok := s.get(c.Param("owner"), c.Param("repo"))
		if !ok {
			c.String(http.StatusNotFound, "404: Not Found")
			return
		}
		rest := strings.TrimPrefix(c.Param("rest"), "/")
		path, found := strings.CutPrefix(rest, rp.DefaultBranch+"/")
		body, exists := rp.Files[path]
		if !found || !exists {
			c.String(http.StatusNotFound, "404: Not Found")
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
	})
}

func renderIndex(names []string) string {
	var b strings.Builder
	b.WriteString("<!doctype html><html><head><title>mock-github</title></head><body><h1>Seeded repositories</h1><ul>")
	for _, n := range names {
		b.WriteString("<li><code>https://github.com/" + html.EscapeString(n) + "</code></li>")
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}
