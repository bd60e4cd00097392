package symrt_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"

	"github.com/y4ngyy/symrt"
)

func TestPushPathConstraint(t *testing.T) {
	t.Run("ReachesSolver", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})

		x, y := r.GetInputByte(0, 1), r.GetInputByte(1, 2)
		eq := r.BuildEqual(x, y)
		r.PushPathConstraint(eq, true, 7)

		if got := len(solver.Constraints); got != 1 {
			t.Fatalf("unexpected constraint count: %d\n%s", got, spew.Sdump(solver.Constraints))
		}
		c := solver.Constraints[0]
		if !c.Taken || c.Site != 7 || c.FromSanitizer {
			t.Fatalf("unexpected constraint: %s", spew.Sdump(c))
		}
		deps := r.Store().Lookup(eq).Dependencies()
		if diff := cmp.Diff([]uint64{0, 1}, deps.Offsets()); diff != "" {
			t.Fatalf("unexpected dependencies (-want +got):\n%s", diff)
		}
	})

	t.Run("ConcreteConditionNoop", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})
		r.PushPathConstraint(0, true, 7)
		if len(solver.Constraints) != 0 {
			t.Fatal("no constraint expected for a concrete condition")
		}
	})

	t.Run("Sanitizer", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})
		cond := r.BuildEqual(r.GetInputByte(0, 1), r.BuildInteger(1, 8))
		r.PushSanitizerConstraint(cond, false, 9)
		c := solver.Constraints[0]
		if !c.FromSanitizer || c.Taken || c.Site != 9 {
			t.Fatalf("unexpected constraint: %s", spew.Sdump(c))
		}
	})

	t.Run("BitvectorConditionCoerced", func(t *testing.T) {
		// A bitvector branch condition is recorded as "value != 0".
		r, solver := NewTestRuntime(symrt.Config{})
		r.PushPathConstraint(r.GetInputByte(0, 1), true, 3)
		if len(solver.Constraints) != 1 {
			t.Fatal("expected one constraint")
		}
	})
}

func TestFeasible(t *testing.T) {
	t.Run("BalancedScopes", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})
		cond := r.BuildEqual(r.GetInputByte(0, 1), r.BuildInteger(5, 8))

		for i := 0; i < 3; i++ {
			if ok, err := r.Feasible(cond); err != nil {
				t.Fatal(err)
			} else if !ok {
				t.Fatal("expected feasible")
			}
		}
		if solver.PushN != solver.PopN {
			t.Fatalf("leaked solver scope: %d pushes, %d pops", solver.PushN, solver.PopN)
		}
	})

	t.Run("ScopeReleasedOnError", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})
		solver.CheckFunc = func() (bool, error) { return false, errCheckFailed }
		cond := r.BuildEqual(r.GetInputByte(0, 1), r.BuildInteger(5, 8))

		if _, err := r.Feasible(cond); err != errCheckFailed {
			t.Fatalf("unexpected error: %v", err)
		}
		if solver.PushN != solver.PopN {
			t.Fatalf("leaked solver scope: %d pushes, %d pops", solver.PushN, solver.PopN)
		}
	})

	t.Run("ScopeReleasedOnPanic", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})
		solver.CheckFunc = func() (bool, error) { panic("backend crashed") }
		cond := r.BuildEqual(r.GetInputByte(0, 1), r.BuildInteger(5, 8))

		func() {
			defer func() { recover() }()
			r.Feasible(cond)
		}()
		if solver.PushN != solver.PopN {
			t.Fatalf("leaked solver scope: %d pushes, %d pops", solver.PushN, solver.PopN)
		}
	})
}

func TestDelayQueue(t *testing.T) {
	t.Run("ResolveEmitsOneEquality", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})

		value := r.BuildAdd(r.GetInputByte(0, 1), r.GetInputByte(1, 2))
		addr := r.BuildZExt(value, 56)
		r.DeferAddressEquality(value, addr, 0x7fff1000)
		if len(solver.Constraints) != 0 {
			t.Fatal("constraint emitted before resolution")
		}

		// A branch covering {0, 1, 2} resolves the queued {0, 1} fact.
		branch := r.BuildEqual(
			r.BuildAdd(value, r.GetInputByte(2, 3)),
			r.BuildInteger(9, 8),
		)
		r.ResolveDeferred(branch)

		if got := len(solver.Constraints); got != 1 {
			t.Fatalf("unexpected constraint count: %d\n%s", got, spew.Sdump(solver.Constraints))
		}
		c := solver.Constraints[0]
		if !c.Taken || c.Site != 0 {
			t.Fatalf("unexpected synthetic constraint: %s", spew.Sdump(c))
		}
		if !r.IsExact(value) {
			t.Fatal("value's dependencies must be exact after resolution")
		}

		// Resolving again finds an empty queue.
		r.ResolveDeferred(branch)
		if len(solver.Constraints) != 1 {
			t.Fatal("queue entry resolved twice")
		}
	})

	t.Run("PinnedFactsNotRequeued", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})

		value := r.GetInputByte(0, 1)
		addr := r.BuildZExt(value, 56)
		r.DeferAddressEquality(value, addr, 0x1000)
		r.ResolveDeferred(r.BuildEqual(value, r.BuildInteger(7, 8)))
		if len(solver.Constraints) != 1 {
			t.Fatal("expected one resolution")
		}

		// The same dependencies are already exact: observing them again
		// queues nothing, so nothing can resolve.
		r.DeferAddressEquality(value, addr, 0x2000)
		r.ResolveDeferred(r.BuildEqual(value, r.BuildInteger(8, 8)))
		if len(solver.Constraints) != 1 {
			t.Fatal("already-pinned fact queued again")
		}
	})

	t.Run("CoveredFactsNotQueued", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})

		broad := r.BuildAdd(r.GetInputByte(0, 1), r.GetInputByte(1, 2))
		narrow := r.GetInputByte(0, 1)
		r.DeferAddressEquality(broad, r.BuildZExt(broad, 56), 0x1000)
		r.DeferAddressEquality(narrow, r.BuildZExt(narrow, 56), 0x2000)

		// One branch covering the broad set resolves it; the narrow fact
		// was never queued, so a second resolve finds nothing.
		branch := r.BuildEqual(broad, r.BuildInteger(3, 8))
		r.ResolveDeferred(branch)
		r.ResolveDeferred(branch)
		if got := len(solver.Constraints); got != 1 {
			t.Fatalf("unexpected constraint count: %d", got)
		}
	})

	t.Run("NonCoveringBranch", func(t *testing.T) {
		r, solver := NewTestRuntime(symrt.Config{})

		value := r.BuildAdd(r.GetInputByte(0, 1), r.GetInputByte(1, 2))
		r.DeferAddressEquality(value, r.BuildZExt(value, 56), 0x1000)

		// {0} does not cover {0, 1}.
		r.ResolveDeferred(r.BuildEqual(r.GetInputByte(0, 1), r.BuildInteger(1, 8)))
		if len(solver.Constraints) != 0 {
			t.Fatal("branch with narrower dependencies must not resolve")
		}
	})
}

func TestIsExact(t *testing.T) {
	r, _ := NewTestRuntime(symrt.Config{})

	x := r.GetInputByte(0, 1)
	if r.IsExact(x) {
		t.Fatal("nothing is exact before any resolution")
	}

	r.DeferAddressEquality(x, r.BuildZExt(x, 56), 0x1000)
	r.ResolveDeferred(r.BuildEqual(x, r.BuildInteger(7, 8)))
	if !r.IsExact(x) {
		t.Fatal("expected exact dependencies")
	}

	// A constant has no dependencies at all, so it is trivially exact
	// once the exact set is non-empty.
	if !r.IsExact(r.BuildInteger(1, 8)) {
		t.Fatal("expected empty dependency set to be exact")
	}

	y := r.GetInputByte(5, 0)
	if r.IsExact(y) {
		t.Fatal("unpinned input byte cannot be exact")
	}
}
