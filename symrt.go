// Package symrt is the runtime support layer for concolic execution.
//
// Instrumented programs call into this package as they run: every
// computation on symbolic data is mirrored by an expression built through
// the gosmt library, branch decisions become path constraints in the
// solver, and models for untaken branches become new test cases. The
// package owns the lifetime of every expression it hands out and reclaims
// unreachable ones on demand.
//
// The runtime assumes a single logical thread of control: calls arrive
// synchronously from the instrumented program and are not internally
// synchronized, except for the garbage collector's critical section over
// the expression store. Callers running instrumented code on multiple
// threads must serialize their calls.
package symrt

import "fmt"

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// Handle identifies a registered expression. Handles are opaque: callers
// only pass them back into runtime entry points. The zero Handle means the
// value is fully concrete and carries no symbolic expression.
type Handle uintptr

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
