package symrt

// RootSource enumerates expression nodes a collaborator currently keeps
// alive, such as accumulated path constraints or queued address facts.
// Everything reachable from these roots survives a collection.
type RootSource interface {
	ExpressionRoots() []*Node
}

// collect sweeps the store if it has grown to at least threshold entries.
// The store lock is held for the whole mark and sweep, so a re-entrant
// registration from a collaborator callback cannot interleave with an
// in-progress collection.
func (s *Store) collect(threshold int, sources []RootSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.nodes) < threshold {
		return
	}

	// Mark: every node transitively reachable from the roots.
	var stack []*Node
	for _, src := range sources {
		stack = append(stack, src.ExpressionRoots()...)
	}
	reachable := make(map[Handle]struct{})
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h := n.id()
		if _, ok := reachable[h]; ok {
			continue
		}
		reachable[h] = struct{}{}
		stack = append(stack, n.operands...)
	}

	// Sweep: evict everything else.
	for h := range s.nodes {
		if _, ok := reachable[h]; !ok {
			delete(s.nodes, h)
		}
	}
}
