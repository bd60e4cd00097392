package callstack_test

import (
	"testing"

	"github.com/y4ngyy/symrt/callstack"
)

func TestManager_Context(t *testing.T) {
	t.Run("StableWithoutEvents", func(t *testing.T) {
		m := callstack.NewManager()
		m.VisitCall(1)
		m.VisitCall(2)
		if m.Context() != m.Context() {
			t.Fatal("context hash must be stable between events")
		}
	})

	t.Run("ChangesOnCall", func(t *testing.T) {
		m := callstack.NewManager()
		m.VisitCall(1)
		before := m.Context()
		m.VisitCall(2)
		if m.Context() == before {
			t.Fatal("expected a different context after a call")
		}
	})

	t.Run("RestoredOnReturn", func(t *testing.T) {
		m := callstack.NewManager()
		m.VisitCall(1)
		before := m.Context()
		m.VisitCall(2)
		m.VisitRet(2)
		if m.Context() != before {
			t.Fatal("expected the caller's context after a return")
		}
	})

	t.Run("OrderSensitive", func(t *testing.T) {
		a := callstack.NewManager()
		a.VisitCall(1)
		a.VisitCall(2)
		b := callstack.NewManager()
		b.VisitCall(2)
		b.VisitCall(1)
		if a.Context() == b.Context() {
			t.Fatal("stacks with the same sites in a different order must differ")
		}
	})
}

func TestManager_VisitRet_EmptyStack(t *testing.T) {
	m := callstack.NewManager()
	before := m.Context()
	m.VisitRet(42)
	if m.Depth() != 0 {
		t.Fatalf("unexpected depth: %d", m.Depth())
	}
	if m.Context() != before {
		t.Fatal("ignored return must not change the context")
	}
}

func TestManager_Depth(t *testing.T) {
	m := callstack.NewManager()
	for i, want := range []int{1, 2, 3} {
		m.VisitCall(uint64(i))
		if m.Depth() != want {
			t.Fatalf("depth=%d, want %d", m.Depth(), want)
		}
	}
	m.VisitRet(2)
	if m.Depth() != 2 {
		t.Fatalf("depth=%d, want 2", m.Depth())
	}
}

func TestManager_LastBasicBlock(t *testing.T) {
	m := callstack.NewManager()
	if m.LastBasicBlock() != 0 {
		t.Fatal("expected zero before any block is visited")
	}
	m.VisitBasicBlock(7)
	m.VisitBasicBlock(9)
	if m.LastBasicBlock() != 9 {
		t.Fatalf("last block=%d, want 9", m.LastBasicBlock())
	}

	// Block events do not disturb the call context.
	before := m.Context()
	m.VisitBasicBlock(11)
	if m.Context() != before {
		t.Fatal("basic-block visit must not change the context")
	}
}
