package symrt

import (
	"github.com/borzacchiello/gosmt"

	"github.com/y4ngyy/symrt/callstack"
	"github.com/y4ngyy/symrt/smt"
)

// hostBits is the pointer width of the host, in bits.
const hostBits = 32 << (^uintptr(0) >> 63)

// Builder translates runtime entry points into gosmt expression
// construction and registers every result in the store. Operand handles
// are resolved through the store first; passing an unregistered handle is
// a fatal instrumentation error.
type Builder struct {
	eb    *gosmt.ExprBuilder
	store *Store
	prune *pruner
}

// NewBuilder returns a builder registering results in store. With pruning
// enabled, operations in hot calling contexts stop producing symbolic
// results after a cutoff, and the affected values continue concretely.
func NewBuilder(eb *gosmt.ExprBuilder, store *Store, stack *callstack.Manager, pruning bool) *Builder {
	b := &Builder{eb: eb, store: store}
	if pruning {
		assert(stack != nil, "symrt: pruning requires a call-stack manager")
		b.prune = newPruner(stack)
	}
	return b
}

// registerBV stores a bitvector node derived from the given operands.
func (b *Builder) registerBV(e *gosmt.BVExprPtr, operands ...*Node) Handle {
	h, _ := b.store.Register(&Node{bv: e, operands: operands, deps: unionDeps(operands)})
	return h
}

// registerBool stores a boolean node derived from the given operands.
func (b *Builder) registerBool(e *gosmt.BoolExprPtr, operands ...*Node) Handle {
	h, _ := b.store.Register(&Node{cond: e, operands: operands, deps: unionDeps(operands)})
	return h
}

// bvForm returns the bitvector form of a node, converting a boolean to a
// single bit.
func (b *Builder) bvForm(n *Node) *gosmt.BVExprPtr {
	if n.bv != nil {
		return n.bv
	}
	e, err := b.eb.ITE(n.cond, b.eb.BVV(1, WidthBool), b.eb.BVV(0, WidthBool))
	assert(err == nil, "symrt: bool to bitvector: %v", err)
	return e
}

// boolForm returns the boolean form of a node, converting a bitvector to
// the condition "value != 0".
func (b *Builder) boolForm(n *Node) *gosmt.BoolExprPtr {
	if n.cond != nil {
		return n.cond
	}
	eq, err := b.eb.Eq(n.bv, b.eb.BVV(0, n.bv.Size()))
	assert(err == nil, "symrt: bitvector to bool: %v", err)
	ne, err := b.eb.BoolNot(eq)
	assert(err == nil, "symrt: bitvector to bool: %v", err)
	return ne
}

func (b *Builder) allow() bool {
	return b.prune == nil || b.prune.allow()
}

// binary builds a bitvector-valued binary operation.
func (b *Builder) binary(x, y Handle, f func(l, r *gosmt.BVExprPtr) (*gosmt.BVExprPtr, error)) Handle {
	lhs, rhs := b.store.Lookup(x), b.store.Lookup(y)
	if !b.allow() {
		return 0
	}
	e, err := f(b.bvForm(lhs), b.bvForm(rhs))
	assert(err == nil, "symrt: binary operation: %v", err)
	return b.registerBV(e, lhs, rhs)
}

// compare builds a boolean-valued comparison.
func (b *Builder) compare(x, y Handle, f func(l, r *gosmt.BVExprPtr) (*gosmt.BoolExprPtr, error)) Handle {
	lhs, rhs := b.store.Lookup(x), b.store.Lookup(y)
	if !b.allow() {
		return 0
	}
	e, err := f(b.bvForm(lhs), b.bvForm(rhs))
	assert(err == nil, "symrt: comparison: %v", err)
	return b.registerBool(e, lhs, rhs)
}

// boolBinary builds a boolean connective.
func (b *Builder) boolBinary(x, y Handle, f func(l, r *gosmt.BoolExprPtr) (*gosmt.BoolExprPtr, error)) Handle {
	lhs, rhs := b.store.Lookup(x), b.store.Lookup(y)
	if !b.allow() {
		return 0
	}
	e, err := f(b.boolForm(lhs), b.boolForm(rhs))
	assert(err == nil, "symrt: boolean operation: %v", err)
	return b.registerBool(e, lhs, rhs)
}

//
// Constants
//

func (b *Builder) constant(value int64, width uint) Handle {
	h, _ := b.store.Register(&Node{bv: b.eb.BVV(value, width), deps: NewDepSet()})
	return h
}

// BuildInteger builds a constant of the given width from a 64-bit value.
// On hosts narrower than 64 bits the native-width path is preferred and
// wide construction is used only when the value would not survive the
// round trip through the native width.
func (b *Builder) BuildInteger(value uint64, bits uint8) Handle {
	assert(bits > 0, "symrt: zero-width integer constant")
	if hostBits == Width64 {
		return b.constant(int64(value), uint(bits))
	}
	if v := uint64(uintptr(value)); v == value {
		return b.constant(int64(v), uint(bits))
	}
	return b.wideConstant(value, uint(bits))
}

// wideConstant assembles a constant wider than the host word from 32-bit
// halves; the builder folds the concat immediately.
func (b *Builder) wideConstant(value uint64, width uint) Handle {
	hi := b.eb.BVV(int64(value>>32), Width32)
	lo := b.eb.BVV(int64(value&0xffffffff), Width32)
	e, err := b.eb.Concat(hi, lo)
	assert(err == nil, "symrt: wide constant: %v", err)
	if width < Width64 {
		e, err = b.eb.Extract(e, width-1, 0)
	} else if width > Width64 {
		e, err = b.eb.ZExt(e, width-Width64)
	}
	assert(err == nil, "symrt: wide constant: %v", err)
	h, _ := b.store.Register(&Node{bv: e, deps: NewDepSet()})
	return h
}

// BuildInteger128 builds a 128-bit constant from two 64-bit words.
func (b *Builder) BuildInteger128(high, low uint64) Handle {
	e, err := b.eb.Concat(b.eb.BVV(int64(high), Width64), b.eb.BVV(int64(low), Width64))
	assert(err == nil, "symrt: 128-bit constant: %v", err)
	h, _ := b.store.Register(&Node{bv: e, deps: NewDepSet()})
	return h
}

// BuildNullPointer builds a zero constant of pointer width.
func (b *Builder) BuildNullPointer() Handle {
	return b.constant(0, hostBits)
}

// BuildTrue builds the boolean constant true.
func (b *Builder) BuildTrue() Handle { return b.BuildBool(true) }

// BuildFalse builds the boolean constant false.
func (b *Builder) BuildFalse() Handle { return b.BuildBool(false) }

// BuildBool builds a boolean constant.
func (b *Builder) BuildBool(value bool) Handle {
	h, _ := b.store.Register(&Node{cond: b.eb.BoolVal(value), deps: NewDepSet()})
	return h
}

//
// Arithmetic and bitwise operators
//

func (b *Builder) BuildAdd(x, y Handle) Handle { return b.binary(x, y, b.eb.Add) }

// BuildSub lowers subtraction to addition of the negation; gosmt has no
// subtraction constructor.
func (b *Builder) BuildSub(x, y Handle) Handle {
	return b.binary(x, y, func(l, r *gosmt.BVExprPtr) (*gosmt.BVExprPtr, error) {
		return b.eb.Add(l, b.eb.Neg(r))
	})
}

func (b *Builder) BuildMul(x, y Handle) Handle         { return b.binary(x, y, b.eb.Mul) }
func (b *Builder) BuildUnsignedDiv(x, y Handle) Handle { return b.binary(x, y, b.eb.UDiv) }
func (b *Builder) BuildSignedDiv(x, y Handle) Handle   { return b.binary(x, y, b.eb.SDiv) }
func (b *Builder) BuildUnsignedRem(x, y Handle) Handle { return b.binary(x, y, b.eb.URem) }
func (b *Builder) BuildSignedRem(x, y Handle) Handle   { return b.binary(x, y, b.eb.SRem) }

func (b *Builder) BuildShiftLeft(x, y Handle) Handle            { return b.binary(x, y, b.eb.Shl) }
func (b *Builder) BuildLogicalShiftRight(x, y Handle) Handle    { return b.binary(x, y, b.eb.LShr) }
func (b *Builder) BuildArithmeticShiftRight(x, y Handle) Handle { return b.binary(x, y, b.eb.AShr) }

func (b *Builder) BuildAnd(x, y Handle) Handle { return b.binary(x, y, b.eb.And) }
func (b *Builder) BuildOr(x, y Handle) Handle  { return b.binary(x, y, b.eb.Or) }
func (b *Builder) BuildXor(x, y Handle) Handle { return b.binary(x, y, b.eb.Xor) }

//
// Comparisons
//

func (b *Builder) BuildSignedLessThan(x, y Handle) Handle      { return b.compare(x, y, b.eb.SLt) }
func (b *Builder) BuildSignedLessEqual(x, y Handle) Handle     { return b.compare(x, y, b.eb.SLe) }
func (b *Builder) BuildSignedGreaterThan(x, y Handle) Handle   { return b.compare(x, y, b.eb.SGt) }
func (b *Builder) BuildSignedGreaterEqual(x, y Handle) Handle  { return b.compare(x, y, b.eb.SGe) }
func (b *Builder) BuildUnsignedLessThan(x, y Handle) Handle    { return b.compare(x, y, b.eb.Ult) }
func (b *Builder) BuildUnsignedLessEqual(x, y Handle) Handle   { return b.compare(x, y, b.eb.Ule) }
func (b *Builder) BuildUnsignedGreaterThan(x, y Handle) Handle { return b.compare(x, y, b.eb.UGt) }
func (b *Builder) BuildUnsignedGreaterEqual(x, y Handle) Handle {
	return b.compare(x, y, b.eb.UGe)
}

func (b *Builder) BuildEqual(x, y Handle) Handle { return b.compare(x, y, b.eb.Eq) }

func (b *Builder) BuildNotEqual(x, y Handle) Handle {
	return b.compare(x, y, func(l, r *gosmt.BVExprPtr) (*gosmt.BoolExprPtr, error) {
		eq, err := b.eb.Eq(l, r)
		if err != nil {
			return nil, err
		}
		return b.eb.BoolNot(eq)
	})
}

//
// Boolean connectives
//

func (b *Builder) BuildBoolAnd(x, y Handle) Handle { return b.boolBinary(x, y, b.eb.BoolAnd) }
func (b *Builder) BuildBoolOr(x, y Handle) Handle  { return b.boolBinary(x, y, b.eb.BoolOr) }

// BuildBoolXor lowers exclusive or to (x && !y) || (!x && y).
func (b *Builder) BuildBoolXor(x, y Handle) Handle {
	return b.boolBinary(x, y, func(l, r *gosmt.BoolExprPtr) (*gosmt.BoolExprPtr, error) {
		notL, err := b.eb.BoolNot(l)
		if err != nil {
			return nil, err
		}
		notR, err := b.eb.BoolNot(r)
		if err != nil {
			return nil, err
		}
		a, err := b.eb.BoolAnd(l, notR)
		if err != nil {
			return nil, err
		}
		c, err := b.eb.BoolAnd(notL, r)
		if err != nil {
			return nil, err
		}
		return b.eb.BoolOr(a, c)
	})
}

//
// Unary operators
//

// BuildNeg builds the arithmetic negation of x.
func (b *Builder) BuildNeg(x Handle) Handle {
	n := b.store.Lookup(x)
	return b.registerBV(b.eb.Neg(b.bvForm(n)), n)
}

// BuildNot builds the bitwise complement of x.
func (b *Builder) BuildNot(x Handle) Handle {
	n := b.store.Lookup(x)
	return b.registerBV(b.eb.Not(b.bvForm(n)), n)
}

// BuildITE builds a select expression: x if cond holds, else y.
func (b *Builder) BuildITE(cond, x, y Handle) Handle {
	c, lhs, rhs := b.store.Lookup(cond), b.store.Lookup(x), b.store.Lookup(y)
	e, err := b.eb.ITE(b.boolForm(c), b.bvForm(lhs), b.bvForm(rhs))
	assert(err == nil, "symrt: ite: %v", err)
	return b.registerBV(e, c, lhs, rhs)
}

//
// Casts
//

// BuildSExt sign-extends x by the given number of bits. Concrete values
// stay concrete: the zero handle passes through unchanged.
func (b *Builder) BuildSExt(x Handle, bits uint8) Handle {
	if x == 0 {
		return 0
	}
	n := b.store.Lookup(x)
	e, err := b.eb.SExt(b.bvForm(n), uint(bits))
	assert(err == nil, "symrt: sext: %v", err)
	return b.registerBV(e, n)
}

// BuildZExt zero-extends x by the given number of bits. The zero handle
// passes through unchanged.
func (b *Builder) BuildZExt(x Handle, bits uint8) Handle {
	if x == 0 {
		return 0
	}
	n := b.store.Lookup(x)
	e, err := b.eb.ZExt(b.bvForm(n), uint(bits))
	assert(err == nil, "symrt: zext: %v", err)
	return b.registerBV(e, n)
}

// BuildTrunc truncates x to the given width. The zero handle passes
// through unchanged.
func (b *Builder) BuildTrunc(x Handle, bits uint8) Handle {
	if x == 0 {
		return 0
	}
	n := b.store.Lookup(x)
	e, err := b.eb.Extract(b.bvForm(n), uint(bits)-1, 0)
	assert(err == nil, "symrt: trunc: %v", err)
	return b.registerBV(e, n)
}

// BuildConcat concatenates x (most significant) and y (least significant).
func (b *Builder) BuildConcat(x, y Handle) Handle {
	lhs, rhs := b.store.Lookup(x), b.store.Lookup(y)
	e, err := b.eb.Concat(b.bvForm(lhs), b.bvForm(rhs))
	assert(err == nil, "symrt: concat: %v", err)
	return b.registerBV(e, lhs, rhs)
}

// BuildExtract extracts bits [lastBit, firstBit] of x, firstBit being the
// most significant.
func (b *Builder) BuildExtract(x Handle, firstBit, lastBit uint) Handle {
	n := b.store.Lookup(x)
	e, err := b.eb.Extract(b.bvForm(n), firstBit, lastBit)
	assert(err == nil, "symrt: extract: %v", err)
	return b.registerBV(e, n)
}

// BuildBoolToBit converts a boolean expression to a single-bit bitvector.
// Bitvector operands pass through unchanged.
func (b *Builder) BuildBoolToBit(x Handle) Handle {
	if x == 0 {
		return 0
	}
	n := b.store.Lookup(x)
	if n.cond == nil {
		return x
	}
	return b.registerBV(b.bvForm(n), n)
}

// Bits returns the width of a registered expression.
func (b *Builder) Bits(x Handle) uint {
	return b.store.Lookup(x).Bits()
}

// inputByteRead builds a symbolic read of the input byte at offset. Its
// dependency set is the singleton {offset}.
func (b *Builder) inputByteRead(offset uint64) Handle {
	sym := b.eb.BVS(smt.InputName(offset), Width8)
	h, _ := b.store.Register(&Node{bv: sym, deps: NewDepSet(offset)})
	return h
}

//
// Pruning
//

// pruneLimit is the number of symbolic results an operation may produce in
// one calling context before further results are concretized.
const pruneLimit = 1024

// pruner counts expression constructions per calling context. Hot loops
// that would otherwise grow unbounded expression chains degrade to
// concrete execution past the limit.
type pruner struct {
	stack  *callstack.Manager
	counts map[uint64]int
}

func newPruner(stack *callstack.Manager) *pruner {
	return &pruner{stack: stack, counts: make(map[uint64]int)}
}

func (p *pruner) allow() bool {
	key := p.stack.Context() + p.stack.LastBasicBlock()*0x9e3779b97f4a7c15
	p.counts[key]++
	return p.counts[key] <= pruneLimit
}
