package symrt

import (
	"log"
	"os"
	"sync"

	"github.com/borzacchiello/gosmt"

	"github.com/y4ngyy/symrt/callstack"
	"github.com/y4ngyy/symrt/smt"
)

// maxExprStringLen caps the diagnostic rendering of an expression.
const maxExprStringLen = 4095

// Solver accumulates path constraints and answers satisfiability queries.
// Implemented by smt.Solver; tests substitute fakes.
type Solver interface {
	// AddConstraint appends a branch condition, in branch order.
	// fromSanitizer tags constraint provenance for solver-side
	// bookkeeping.
	AddConstraint(cond *gosmt.BoolExprPtr, taken bool, site uint64, fromSanitizer bool)

	// Push, Pop, Assert and Check run scoped satisfiability queries on
	// top of the accumulated constraints.
	Push()
	Pop()
	Assert(cond *gosmt.BoolExprPtr)
	Check() (bool, error)

	// PushInputByte supplies the concrete value of one input byte.
	PushInputByte(offset int, value byte)

	// SaveValues emits the current model as a test case.
	SaveValues(suffix string) error

	// SetTestCaseHandler redirects SaveValues to the given callback.
	SetTestCaseHandler(h func([]byte))

	Close() error
}

// Runtime is the per-process runtime context: the expression store and
// builder, the solver, the call-stack tracker, and the delayed-constraint
// state. All entry points used by instrumented code hang off this type.
type Runtime struct {
	*Builder

	cfg    Config
	store  *Store
	solver Solver
	stack  *callstack.Manager
	log    *constraintLog
	queue  *delayQueue
	exact  *DepSet
}

// NewRuntime wires a runtime context from its collaborators. The builder
// and solver must share eb, and stack must be the tracker the solver
// consults for branch contexts.
func NewRuntime(cfg Config, eb *gosmt.ExprBuilder, stack *callstack.Manager, solver Solver) *Runtime {
	store := NewStore()
	return &Runtime{
		Builder: NewBuilder(eb, store, stack, cfg.Pruning),
		cfg:     cfg,
		store:   store,
		solver:  solver,
		stack:   stack,
		log:     &constraintLog{},
		queue:   &delayQueue{},
		exact:   NewDepSet(),
	}
}

// Store returns the expression store.
func (r *Runtime) Store() *Store { return r.store }

// GetInputByte introduces the input byte at offset as a symbolic value and
// hands its concrete value to the solver.
func (r *Runtime) GetInputByte(offset uint64, value byte) Handle {
	r.solver.PushInputByte(int(offset), value)
	return r.inputByteRead(offset)
}

// CollectGarbage sweeps expressions no longer reachable from the solver's
// constraints or the delay queue. It is a no-op until the store reaches
// the configured threshold.
func (r *Runtime) CollectGarbage() {
	r.store.collect(r.cfg.GCThreshold, []RootSource{r.log, r.queue})
}

// ExprString renders an expression for diagnostics, truncated to 4095
// characters.
func (r *Runtime) ExprString(x Handle) string {
	s := r.store.Lookup(x).String()
	if len(s) > maxExprStringLen {
		s = s[:maxExprStringLen]
	}
	return s
}

// SetTestCaseHandler replaces the solver's default test-case persistence.
func (r *Runtime) SetTestCaseHandler(h func([]byte)) {
	r.solver.SetTestCaseHandler(h)
}

// NotifyCall forwards a call event to the call-stack tracker.
func (r *Runtime) NotifyCall(site uint64) { r.stack.VisitCall(site) }

// NotifyRet forwards a return event to the call-stack tracker.
func (r *Runtime) NotifyRet(site uint64) { r.stack.VisitRet(site) }

// NotifyBasicBlock forwards a basic-block event to the call-stack tracker.
func (r *Runtime) NotifyBasicBlock(site uint64) { r.stack.VisitBasicBlock(site) }

// Close releases the solver.
func (r *Runtime) Close() error {
	return r.solver.Close()
}

var (
	initOnce       sync.Once
	processRuntime *Runtime
)

// Initialize sets up the process-wide runtime from the environment and
// returns it. It is idempotent: the first call decides, later calls
// return the same result. A fully concrete run (no symbolic input)
// returns nil, meaning instrumentation has nothing to talk to. A missing
// output directory is a fatal configuration error: without it no evidence
// can be collected, so the process exits.
func Initialize() *Runtime {
	initOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			log.Fatal(err)
		}
		log.SetPrefix("symrt: ")
		log.Print("concolic runtime starting")

		if cfg.NoSymbolicInput {
			log.Print("performing fully concrete execution (no symbolic input)")
			return
		}

		if fi, err := os.Stat(cfg.OutputDir); err != nil || !fi.IsDir() {
			log.Fatalf("output directory %s (configurable via SYMCC_OUTPUT_DIR) does not exist", cfg.OutputDir)
		}

		eb := gosmt.NewExprBuilder()
		stack := callstack.NewManager()
		solver, err := smt.NewSolver(eb, stack, cfg.OutputDir, cfg.CoverageMap)
		if err != nil {
			log.Fatalf("cannot create solver: %v", err)
		}
		processRuntime = NewRuntime(cfg, eb, stack, solver)
	})
	return processRuntime
}
