// Package smt implements the constraint solver used by the concolic
// runtime, layered on the gosmt expression library with its Z3 backend.
//
// The solver accumulates path constraints in the order branches were
// taken, answers scoped satisfiability queries, and turns models for
// negated branches into test cases on disk (or hands them to a registered
// handler).
package smt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/borzacchiello/gosmt"
	"github.com/cespare/xxhash/v2"

	"github.com/y4ngyy/symrt/callstack"
)

var (
	ErrUnknown = errors.New("smt: solver returned unknown")
	ErrBackend = errors.New("smt: backend error")
)

const inputPrefix = "stdin_"

// InputName returns the symbol name of the input byte at the given offset.
// The runtime's read entry point and the model extraction here must agree
// on this naming.
func InputName(offset uint64) string {
	return inputPrefix + strconv.FormatUint(offset, 10)
}

func parseInputName(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, inputPrefix)
	if !ok {
		return 0, false
	}
	off, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return off, true
}

// backend is the decision procedure behind the solver. *gosmt.Solver
// satisfies it; tests substitute a fake.
type backend interface {
	Add(c *gosmt.BoolExprPtr)
	CheckSat(query *gosmt.BoolExprPtr) int
	Model() map[string]*gosmt.BVConst
}

// Stats holds solver counters.
type Stats struct {
	ConstraintN int
	CheckN      int
	CheckTime   time.Duration
	TestCaseN   int
	SanitizerN  int
}

// Solver accumulates path constraints and generates test cases for
// feasible alternative branches.
type Solver struct {
	eb    *gosmt.ExprBuilder
	be    backend
	stack *callstack.Manager
	cov   *TraceMap

	outputDir string
	inputs    []byte
	handler   func([]byte)
	caseN     int

	// Scoped assertions for Push/Pop/Assert/Check.
	asserted []*gosmt.BoolExprPtr
	marks    []int

	stats Stats
}

// NewSolver returns a solver writing test cases to outputDir. The coverage
// map at covPath seeds branch-interest detection; an empty path starts
// with a fresh map.
func NewSolver(eb *gosmt.ExprBuilder, stack *callstack.Manager, outputDir, covPath string) (*Solver, error) {
	cov, err := NewTraceMap(covPath)
	if err != nil {
		return nil, err
	}
	return &Solver{
		eb:        eb,
		be:        gosmt.NewZ3Solver(eb),
		stack:     stack,
		cov:       cov,
		outputDir: outputDir,
	}, nil
}

func newSolverWithBackend(eb *gosmt.ExprBuilder, stack *callstack.Manager, outputDir string, be backend) *Solver {
	cov, _ := NewTraceMap("")
	return &Solver{eb: eb, be: be, stack: stack, cov: cov, outputDir: outputDir}
}

// Stats returns a copy of the solver counters.
func (s *Solver) Stats() Stats { return s.stats }

// Close persists the coverage map, if one was loaded from disk.
func (s *Solver) Close() error {
	return s.cov.Save()
}

// SetTestCaseHandler replaces file persistence with the given callback.
// A nil handler restores the default behavior.
func (s *Solver) SetTestCaseHandler(h func([]byte)) {
	s.handler = h
}

// PushInputByte supplies the concrete value of the input byte at offset.
// The buffer grows on demand.
func (s *Solver) PushInputByte(offset int, value byte) {
	for len(s.inputs) <= offset {
		s.inputs = append(s.inputs, 0)
	}
	s.inputs[offset] = value
}

// AddConstraint appends a branch condition to the path constraints. The
// condition is recorded for the direction actually taken. If flipping the
// branch would reach new coverage and is satisfiable, the model is emitted
// as a test case. fromSanitizer marks constraints originating from
// sanitizer checks rather than branch instrumentation; it affects
// bookkeeping only.
func (s *Solver) AddConstraint(cond *gosmt.BoolExprPtr, taken bool, site uint64, fromSanitizer bool) {
	if cond == nil {
		return
	}
	s.stats.ConstraintN++
	if fromSanitizer {
		s.stats.SanitizerN++
	}

	pos, neg := cond, s.negate(cond)
	if !taken {
		pos, neg = neg, pos
	}

	// Try the branch we did not take before pinning the one we did, while
	// the accumulated constraints still describe the common prefix.
	if s.interesting(site) && !neg.IsConst() {
		if s.check(neg) == gosmt.RESULT_SAT {
			s.generate(fmt.Sprintf("site-%x", site), fromSanitizer)
		}
	}

	s.be.Add(pos)
}

func (s *Solver) negate(cond *gosmt.BoolExprPtr) *gosmt.BoolExprPtr {
	neg, err := s.eb.BoolNot(cond)
	if err != nil {
		panic(fmt.Sprintf("smt: cannot negate constraint: %v", err))
	}
	return neg
}

// interesting reports whether the (site, calling context) pair has not
// produced a test case yet.
func (s *Solver) interesting(site uint64) bool {
	var ctx uint64
	if s.stack != nil {
		ctx = s.stack.Context()
	}
	var buf [16]byte
	for i, v := range []uint64{ctx, site} {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(v >> (8 * j))
		}
	}
	return s.cov.Visit(xxhash.Sum64(buf[:]))
}

// Push opens a new assertion scope.
func (s *Solver) Push() {
	s.marks = append(s.marks, len(s.asserted))
}

// Pop discards all assertions made since the matching Push.
func (s *Solver) Pop() {
	if len(s.marks) == 0 {
		panic("smt: Pop without matching Push")
	}
	n := s.marks[len(s.marks)-1]
	s.marks = s.marks[:len(s.marks)-1]
	s.asserted = s.asserted[:n]
}

// Assert adds a condition to the current scope.
func (s *Solver) Assert(cond *gosmt.BoolExprPtr) {
	s.asserted = append(s.asserted, cond)
}

// Check reports whether the accumulated path constraints together with the
// scoped assertions are satisfiable.
func (s *Solver) Check() (bool, error) {
	query := s.eb.BoolVal(true)
	for _, c := range s.asserted {
		var err error
		query, err = s.eb.BoolAnd(query, c)
		if err != nil {
			return false, fmt.Errorf("smt: malformed assertion: %w", err)
		}
	}
	switch s.check(query) {
	case gosmt.RESULT_SAT:
		return true, nil
	case gosmt.RESULT_UNSAT:
		return false, nil
	case gosmt.RESULT_UNKNOWN:
		return false, ErrUnknown
	default:
		return false, ErrBackend
	}
}

func (s *Solver) check(query *gosmt.BoolExprPtr) int {
	t := time.Now()
	defer func() {
		s.stats.CheckN++
		s.stats.CheckTime += time.Since(t)
	}()
	return s.be.CheckSat(query)
}

// SaveValues materializes the current model into concrete input bytes and
// hands them to the registered handler, or writes them to the output
// directory when no handler is set.
func (s *Solver) SaveValues(suffix string) error {
	values := s.concreteValues()
	if s.handler != nil {
		s.handler(values)
		return nil
	}
	name := fmt.Sprintf("%06d", s.caseN)
	if suffix != "" {
		name += "-" + suffix
	}
	return os.WriteFile(filepath.Join(s.outputDir, name), values, 0o644)
}

// concreteValues overlays the last model on the concrete input buffer.
func (s *Solver) concreteValues() []byte {
	values := append([]byte(nil), s.inputs...)
	for name, c := range s.be.Model() {
		off, ok := parseInputName(name)
		if !ok {
			continue
		}
		for uint64(len(values)) <= off {
			values = append(values, 0)
		}
		values[off] = byte(c.AsULong())
	}
	return values
}

func (s *Solver) generate(suffix string, fromSanitizer bool) {
	if fromSanitizer {
		suffix += "-sanitizer"
	}
	if err := s.SaveValues(suffix); err != nil {
		fmt.Fprintf(os.Stderr, "smt: cannot save test case: %v\n", err)
		return
	}
	s.caseN++
	s.stats.TestCaseN++
}
