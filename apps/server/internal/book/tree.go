package book

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind distinguishes files from directories in a listing and in a tree.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is one item of a flat repository listing.
type Entry struct {
	Path string
	Kind Kind
	Size *int64 // nil when the listing does not report it
}

// NodeID indexes a Node inside the Tree that owns it. It is only meaningful
// together with that Tree.
type NodeID int

// NoParent is the Parent of every root node.
const NoParent NodeID = -1

// Node is one element of a built tree. Children and Parent are indexes into
// the owning Tree's arena, never pointers.
type Node struct {
	ID             NodeID
	Name           string
	Path           string
	Kind           Kind
	ContentAddress string   // files only
	Children       []NodeID // nil for files, non-nil for directories
	Parent         NodeID
}

// IsDir reports whether n is a directory.
func (n Node) IsDir() bool { return n.Kind == KindDirectory }

// Tree is the immutable result of one Build. It owns every node in an arena;
// Tree.ID is fresh for every build, so (Tree.ID, NodeID) is never reused.
type Tree struct {
	ID     uuid.UUID
	nodes  []Node
	roots  []NodeID
	byPath map[string]NodeID
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Roots returns the root-level nodes in display order.
func (t *Tree) Roots() []Node {
	if t == nil {
		return nil
	}
	return t.collect(t.roots)
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Lookup returns the node at path.
func (t *Tree) Lookup(path string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	id, ok := t.byPath[path]
	if !ok {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Children returns the ordered children of id. Files have none.
func (t *Tree) Children(id NodeID) []Node {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	return t.collect(n.Children)
}

// Parent returns the parent of id, or false for roots.
func (t *Tree) Parent(id NodeID) (Node, bool) {
	n, ok := t.Node(id)
	if !ok || n.Parent == NoParent {
		return Node{}, false
	}
	return t.nodes[n.Parent], true
}

// Breadcrumb returns the chain of nodes from the root down to id, inclusive.
// It walks parent links only, so it costs O(depth).
func (t *Tree) Breadcrumb(id NodeID) []Node {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	var chain []Node
	for {
		chain = append(chain, n)
		if n.Parent == NoParent {
			break
		}
		n = t.nodes[n.Parent]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Walk visits every node in pre-order (display order). Returning false from
// fn stops the walk.
func (t *Tree) Walk(fn func(Node) bool) {
	if t == nil {
		return
	}
	var visit func(ids []NodeID) bool
	visit = func(ids []NodeID) bool {
		for _, id := range ids {
			n := t.nodes[id]
			if !fn(n) {
				return false
			}
			if !visit(n.Children) {
				return false
			}
		}
		return true
	}
	visit(t.roots)
}

func (t *Tree) collect(ids []NodeID) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = t.nodes[id]
	}
	return out
}

// TreeNode is the nested JSON shape of a tree node.
type TreeNode struct {
	ID             NodeID      `json:"id"`
	Name           string      `json:"name"`
	Path           string      `json:"path"`
	Kind           Kind        `json:"kind"`
	ContentAddress string      `json:"contentAddress,omitempty"`
	Children       []*TreeNode `json:"children,omitempty"`
}

// Nested materializes the arena as a nested document.
func (t *Tree) Nested() []*TreeNode {
	if t == nil {
		return []*TreeNode{}
	}
	var build func(ids []NodeID) []*TreeNode
	build = func(ids []NodeID) []*TreeNode {
		out := make([]*TreeNode, 0, len(ids))
		for _, id := range ids {
			n := t.nodes[id]
			tn := &TreeNode{
				ID:             n.ID,
				Name:           n.Name,
				Path:           n.Path,
				Kind:           n.Kind,
				ContentAddress: n.ContentAddress,
			}
			if n.IsDir() {
				tn.Children = build(n.Children)
			}
			out = append(out, tn)
		}
		return out
	}
	return build(t.roots)
}

// MarshalJSON renders the tree as {"id": ..., "roots": [nested nodes]}.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string      `json:"id"`
		Roots []*TreeNode `json:"roots"`
	}{
		ID:    t.ID.String(),
		Roots: t.Nested(),
	})
}
