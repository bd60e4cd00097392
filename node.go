package symrt

import "github.com/borzacchiello/gosmt"

// Node pairs a gosmt expression with the operand nodes it was built from
// and the set of input bytes its value depends on. The gosmt builder
// hash-conses expressions, so structurally equal expressions share an
// identity; the store unifies their nodes at registration.
//
// Exactly one of bv and cond is set: comparisons and boolean connectives
// produce boolean-sorted expressions, everything else a bitvector. The
// builder coerces between the two forms where an entry point requires it.
type Node struct {
	bv   *gosmt.BVExprPtr
	cond *gosmt.BoolExprPtr

	operands []*Node
	deps     *DepSet
}

// id returns the raw identity of the underlying expression.
func (n *Node) id() Handle {
	if n.bv != nil {
		return Handle(n.bv.Id())
	}
	return Handle(n.cond.Id())
}

// IsBool returns true if the node is boolean-sorted.
func (n *Node) IsBool() bool { return n.cond != nil }

// Bits returns the bit width of the node. Boolean nodes have width one.
func (n *Node) Bits() uint {
	if n.bv != nil {
		return n.bv.Size()
	}
	return WidthBool
}

// Dependencies returns the set of input-byte offsets the node's value
// depends on. Constants return the empty set.
func (n *Node) Dependencies() *DepSet { return n.deps }

// String returns the gosmt rendering of the expression.
func (n *Node) String() string {
	if n.bv != nil {
		return n.bv.String()
	}
	return n.cond.String()
}

// unionDeps builds the dependency set of a derived node from its operands.
func unionDeps(operands []*Node) *DepSet {
	deps := NewDepSet()
	for _, op := range operands {
		deps = deps.Union(op.deps)
	}
	return deps
}
