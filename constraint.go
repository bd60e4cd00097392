package symrt

// constraintLog journals every node forwarded to the solver. The journal
// doubles as the solver's root set for garbage collection: an expression
// referenced by an accumulated path constraint must stay resolvable.
type constraintLog struct {
	nodes []*Node
}

func (l *constraintLog) append(n *Node) {
	l.nodes = append(l.nodes, n)
}

// ExpressionRoots implements RootSource.
func (l *constraintLog) ExpressionRoots() []*Node { return l.nodes }

// deferred is one queued address fact: a symbolic address whose concrete
// value has been observed, waiting for its dependencies to be pinned.
type deferred struct {
	deps     *DepSet
	addr     *Node
	concrete uint64
}

// delayQueue holds address-equality constraints whose emission is delayed
// until a branch proves their dependency set exact. Entries are keyed by
// dependency-set content; the insertion checks keep the queue free of
// entries another entry or the exact set already covers.
type delayQueue struct {
	entries []deferred
}

// insert queues a fact unless a queued entry's dependency set is a
// superset of deps (the broader fact resolves first and covers this one).
// The scan is linear in the queue size; queues stay small in practice.
func (q *delayQueue) insert(deps *DepSet, addr *Node, concrete uint64) bool {
	for _, e := range q.entries {
		if deps.SubsetOf(e.deps) {
			return false
		}
	}
	q.entries = append(q.entries, deferred{deps: deps, addr: addr, concrete: concrete})
	return true
}

// take removes and returns the first entry whose dependency set is a
// subset of brDeps. At most one entry resolves per call.
func (q *delayQueue) take(brDeps *DepSet) (deferred, bool) {
	for i, e := range q.entries {
		if e.deps.SubsetOf(brDeps) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return deferred{}, false
}

func (q *delayQueue) len() int { return len(q.entries) }

// ExpressionRoots implements RootSource: queued address expressions must
// survive collection until their constraint is emitted.
func (q *delayQueue) ExpressionRoots() []*Node {
	roots := make([]*Node, 0, len(q.entries))
	for _, e := range q.entries {
		roots = append(roots, e.addr)
	}
	return roots
}

//
// Path constraints
//

// PushPathConstraint records a branch decision. The zero handle means the
// condition was fully concrete and there is nothing to record. Constraints
// reach the solver in the order branches were taken.
func (r *Runtime) PushPathConstraint(x Handle, taken bool, site uint64) {
	r.pushConstraint(x, taken, site, false)
}

// PushSanitizerConstraint records a branch decision originating from a
// sanitizer check rather than branch instrumentation. The provenance tag
// affects solver-side bookkeeping only.
func (r *Runtime) PushSanitizerConstraint(x Handle, taken bool, site uint64) {
	r.pushConstraint(x, taken, site, true)
}

func (r *Runtime) pushConstraint(x Handle, taken bool, site uint64, fromSanitizer bool) {
	if x == 0 {
		return
	}
	n := r.store.Lookup(x)
	r.solver.AddConstraint(r.boolForm(n), taken, site, fromSanitizer)
	r.log.append(n)
}

// Feasible reports whether x is satisfiable together with the accumulated
// path constraints. The solver scope opened for the query is released on
// every exit path, including a panicking satisfiability check.
func (r *Runtime) Feasible(x Handle) (bool, error) {
	n := r.store.Lookup(x)
	// gosmt canonicalizes expressions at construction time, so no separate
	// simplification pass is needed before encoding.
	cond := r.boolForm(n)

	r.solver.Push()
	defer r.solver.Pop()
	r.solver.Assert(cond)
	return r.solver.Check()
}

//
// Delayed address constraints
//

// DeferAddressEquality records that the symbolic address addr was
// concretely observed at concrete while computing value. The equality
// constraint is not emitted yet: it is queued under value's dependency
// set and resolves once a later branch covers those dependencies.
// Already-pinned and already-covered facts are discarded.
func (r *Runtime) DeferAddressEquality(value, addr Handle, concrete uint64) {
	if value == 0 || addr == 0 {
		return
	}
	deps := r.store.Lookup(value).Dependencies()
	if deps.SubsetOf(r.exact) {
		return
	}
	r.queue.insert(deps, r.store.Lookup(addr), concrete)
}

// ResolveDeferred emits at most one queued address equality whose
// dependency set the branch condition covers. The synthetic constraint is
// pushed as an always-taken fact with site zero; callers invoke this
// before pushing the branch's own constraint so the address fact precedes
// the branch that reasons about it. The resolved dependencies merge into
// the exact set and never queue again.
func (r *Runtime) ResolveDeferred(branch Handle) {
	if branch == 0 || r.queue.len() == 0 {
		return
	}
	brDeps := r.store.Lookup(branch).Dependencies()
	e, ok := r.queue.take(brDeps)
	if !ok {
		return
	}
	addr := e.addr.id()
	eq := r.BuildEqual(r.BuildInteger(e.concrete, Width64), addr)
	r.PushPathConstraint(eq, true, 0)
	r.exact = r.exact.Union(e.deps)
}

// IsExact reports whether every input byte x depends on has been pinned by
// an emitted address equality. It is false while nothing has been pinned.
func (r *Runtime) IsExact(x Handle) bool {
	if r.exact.Empty() {
		return false
	}
	return r.store.Lookup(x).Dependencies().SubsetOf(r.exact)
}
