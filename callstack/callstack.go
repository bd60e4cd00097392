// Package callstack tracks the call stack of an instrumented program.
//
// The runtime forwards call, return, and basic-block events here; the
// solver uses the resulting context hash to tell apart branches that share
// a call site but execute in different calling contexts.
package callstack

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Manager records the stack of call-site identifiers of the running program.
type Manager struct {
	stack  []uint64
	lastBB uint64

	hash  uint64
	dirty bool
}

// NewManager returns an empty call-stack manager.
func NewManager() *Manager {
	return &Manager{dirty: true}
}

// VisitCall pushes a call site onto the stack.
func (m *Manager) VisitCall(site uint64) {
	m.stack = append(m.stack, site)
	m.dirty = true
}

// VisitRet pops the innermost call. Unbalanced returns are tolerated: a
// return with an empty stack is ignored, which happens when execution
// starts inside an instrumented function.
func (m *Manager) VisitRet(site uint64) {
	if len(m.stack) == 0 {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.dirty = true
}

// VisitBasicBlock records the most recently executed basic block.
func (m *Manager) VisitBasicBlock(site uint64) {
	m.lastBB = site
}

// LastBasicBlock returns the identifier of the most recently visited block.
func (m *Manager) LastBasicBlock() uint64 { return m.lastBB }

// Depth returns the number of calls currently on the stack.
func (m *Manager) Depth() int { return len(m.stack) }

// Context returns a hash of the current call stack. The hash is cached
// until the next call or return event.
func (m *Manager) Context() uint64 {
	if !m.dirty {
		return m.hash
	}
	d := xxhash.New()
	var buf [8]byte
	for _, site := range m.stack {
		binary.LittleEndian.PutUint64(buf[:], site)
		d.Write(buf[:])
	}
	m.hash = d.Sum64()
	m.dirty = false
	return m.hash
}
