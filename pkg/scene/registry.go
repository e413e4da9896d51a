package scene

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/tableau/pkg/domain"
)

// Registry is the path-keyed store of committed scene nodes.
// Reads are safe for concurrent use. Writes only happen through a Manager,
// which applies a transaction's staged nodes while holding its exclusive scope.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]domain.Node
	seq   uint64
}

// NewRegistry creates a registry containing only the root node.
func NewRegistry() *Registry {
	root, _ := domain.NewNode(domain.RootPath, domain.NodeTypeGeneric, nil)
	return &Registry{
		nodes: map[string]domain.Node{domain.RootPath: root},
	}
}

// Get returns the committed node at path.
// The returned payload shares slices with the registry and must not be modified.
func (r *Registry) Get(path string) (domain.Node, error) {
	clean, err := domain.CleanPath(path)
	if err != nil {
		return domain.Node{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[clean]
	if !ok {
		return domain.Node{}, fmt.Errorf("%w: node %s", domain.ErrNotFound, clean)
	}
	return n, nil
}

// Children returns the sorted paths of the immediate children of path.
func (r *Registry) Children(path string) ([]string, error) {
	clean, err := domain.CleanPath(path)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.nodes[clean]; !ok {
		return nil, fmt.Errorf("%w: node %s", domain.ErrNotFound, clean)
	}
	var children []string
	for p := range r.nodes {
		if p != domain.RootPath && domain.ParentPath(p) == clean {
			children = append(children, p)
		}
	}
	sort.Strings(children)
	return children, nil
}

// Paths returns every registered path, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.nodes))
	for p := range r.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of nodes, root included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Seq returns the sequence number of the last committed batch.
func (r *Registry) Seq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seq
}

// Snapshot returns every node except the root, parents first, with the
// sequence number it is consistent with.
func (r *Registry) Snapshot() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]domain.Node, 0, len(r.nodes)-1)
	for p, n := range r.nodes {
		if p == domain.RootPath {
			continue
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := strings.Count(nodes[i].Path, "/"), strings.Count(nodes[j].Path, "/")
		if di != dj {
			return di < dj
		}
		return nodes[i].Path < nodes[j].Path
	})
	return domain.Snapshot{Seq: r.seq, Nodes: nodes}
}

func (r *Registry) lookup(path string) (domain.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[path]
	return n, ok
}

// descendants returns the committed paths strictly below path.
func (r *Registry) descendants(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for p := range r.nodes {
		if domain.IsDescendant(p, path) {
			out = append(out, p)
		}
	}
	return out
}

// apply installs a transaction's staged nodes and advances the sequence.
// Callers must hold the owning Manager's scope.
func (r *Registry) apply(staged map[string]stagedNode, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for p, s := range staged {
		if s.removed {
			delete(r.nodes, p)
			continue
		}
		r.nodes[p] = s.node
	}
	r.seq = seq
}
