package symrt

import (
	"testing"

	"github.com/borzacchiello/gosmt"

	"github.com/y4ngyy/symrt/callstack"
)

// The wide-constant path must canonicalize to the same node as native
// construction, for every width, so that narrow hosts and 64-bit hosts
// build interchangeable expressions.
func TestBuilder_WideConstantFallback(t *testing.T) {
	b := NewBuilder(gosmt.NewExprBuilder(), NewStore(), callstack.NewManager(), false)

	for _, tt := range []struct {
		value uint64
		width uint
	}{
		{0x00000001_00000000, 64},
		{0xFFFFFFFF_FFFFFFFF, 64},
		{0xDEADBEEF_CAFEBABE, 64},
		{0x1_0000_0001, 40},
	} {
		wide := b.wideConstant(tt.value, tt.width)
		native := b.constant(int64(tt.value), tt.width)
		if wide != native {
			t.Fatalf("value %#x width %d: wide path %#x != native path %#x",
				tt.value, tt.width, wide, native)
		}
	}
}

func TestBuilder_WideConstantNarrowWidth(t *testing.T) {
	b := NewBuilder(gosmt.NewExprBuilder(), NewStore(), callstack.NewManager(), false)

	// A 40-bit constant built through the wide path keeps its width.
	h := b.wideConstant(0x12_3456_789A, 40)
	if got := b.store.Lookup(h).Bits(); got != 40 {
		t.Fatalf("unexpected width: %d", got)
	}
}
