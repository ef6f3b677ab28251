package book

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// markdownExt is the only file extension kept in a tree (case-insensitive).
const markdownExt = ".md"

// IsMarkdown reports whether path names a markdown file.
func IsMarkdown(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), markdownExt)
}

// draft is the mutable form of a node while a tree is being assembled.
type draft struct {
	path     string
	name     string
	kind     Kind
	children []*draft
}

// Build turns a flat listing into a pruned, sorted tree.
//
// Only directories and markdown files are kept. Ancestor directories implied by
// a kept file but missing from the listing are synthesized. Directories with no
// file anywhere beneath them are removed. Every level is ordered directories
// first, then by case-insensitive name. resolve is called once per file node
// to fill ContentAddress; it may be nil.
//
// Build never fails: malformed paths are dropped and an empty listing yields an
// empty tree.
func Build(entries []Entry, resolve AddressResolver) *Tree {
	drafts := make(map[string]*draft, len(entries))
	var files []string

	for _, e := range entries {
		p, ok := cleanPath(e.Path)
		if !ok {
			continue
		}
		switch e.Kind {
		case KindDirectory:
		case KindFile:
			if !IsMarkdown(p) {
				continue
			}
		default:
			continue
		}
		// Duplicate paths: the last entry wins.
		drafts[p] = &draft{path: p, name: baseName(p), kind: e.Kind}
	}

	for p, d := range drafts {
		if d.kind == KindFile {
			files = append(files, p)
		}
	}
	for _, p := range files {
		for dir := parentPath(p); dir != ""; dir = parentPath(dir) {
			existing, ok := drafts[dir]
			if !ok {
				drafts[dir] = &draft{path: dir, name: baseName(dir), kind: KindDirectory}
				continue
			}
			if existing.kind != KindDirectory {
				break
			}
		}
	}

	var roots []*draft
	for p, d := range drafts {
		parent := parentPath(p)
		if parent == "" {
			roots = append(roots, d)
			continue
		}
		// An entry whose parent is missing or is a file cannot be linked and
		// falls out of the tree.
		if pd, ok := drafts[parent]; ok && pd.kind == KindDirectory {
			pd.children = append(pd.children, d)
		}
	}

	t := &Tree{
		ID:     uuid.New(),
		byPath: make(map[string]NodeID),
	}
	t.roots = t.emit(prune(roots), NoParent, resolve)
	return t
}

// prune drops directories with no surviving file below them, post-order, and
// sorts what is left.
func prune(level []*draft) []*draft {
	kept := make([]*draft, 0, len(level))
	for _, d := range level {
		if d.kind == KindDirectory {
			d.children = prune(d.children)
			if len(d.children) == 0 {
				continue
			}
		}
		kept = append(kept, d)
	}
	slices.SortFunc(kept, compareDrafts)
	return kept
}

func compareDrafts(a, b *draft) int {
	if a.kind != b.kind {
		if a.kind == KindDirectory {
			return -1
		}
		return 1
	}
	if c := strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name)); c != 0 {
		return c
	}
	return strings.Compare(a.name, b.name)
}

// emit appends level to the arena in pre-order and returns the new ids.
func (t *Tree) emit(level []*draft, parent NodeID, resolve AddressResolver) []NodeID {
	ids := make([]NodeID, 0, len(level))
	for _, d := range level {
		id := NodeID(len(t.nodes))
		n := Node{
			ID:     id,
			Name:   d.name,
			Path:   d.path,
			Kind:   d.kind,
			Parent: parent,
		}
		if d.kind == KindFile && resolve != nil {
			n.ContentAddress = resolve(d.path)
		}
		t.nodes = append(t.nodes, n)
		t.byPath[d.path] = id

		if d.kind == KindDirectory {
			children := t.emit(d.children, id, resolve)
			t.nodes[id].Children = children
		}
		ids = append(ids, id)
	}
	return ids
}

// cleanPath trims surrounding slashes and rejects paths with empty segments.
func cleanPath(p string) (string, bool) {
	p = strings.Trim(p, "/")
	if p == "" || strings.Contains(p, "//") {
		return "", false
	}
	return p, true
}

func parentPath(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

func baseName(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
