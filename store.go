package symrt

import "sync"

// Store is the owning registry of expression nodes. It keeps the single
// durable reference that holds a node alive between runtime calls;
// everything else passes handles. Entries leave the store only through the
// garbage collector's sweep.
type Store struct {
	mu    sync.Mutex
	nodes map[Handle]*Node
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nodes: make(map[Handle]*Node)}
}

// Register adds a node to the store and returns its handle. Registration
// is idempotent: a node whose expression is already registered returns the
// stored node's handle, and the store does not grow.
func (s *Store) Register(n *Node) (Handle, *Node) {
	h := n.id()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.nodes[h]; ok {
		return h, existing
	}
	s.nodes[h] = n
	return h, n
}

// Lookup resolves a handle to its node. A handle that was never registered
// or has been collected indicates the instrumentation let a handle outlive
// its expression; that contract violation is fatal.
func (s *Store) Lookup(h Handle) *Node {
	s.mu.Lock()
	n, ok := s.nodes[h]
	s.mu.Unlock()
	assert(ok, "symrt.Store: unknown expression handle %#x", uintptr(h))
	return n
}

// Len returns the number of registered expressions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}
