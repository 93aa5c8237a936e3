package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/log-when/pono/internal/smt"
)

// unsatCoreReducer shrinks literal sets with assumption-based unsat cores.
// It runs on its own solver context so reduction queries never disturb the
// main engine context, whatever scope that is currently in.
type unsatCoreReducer struct {
	solver   *smt.Solver
	labels   map[smt.RawTerm]*smt.Term
	labelSeq int
}

func newUnsatCoreReducer() *unsatCoreReducer {
	return &unsatCoreReducer{
		solver: smt.NewSolver(),
		labels: make(map[smt.RawTerm]*smt.Term),
	}
}

func (r *unsatCoreReducer) close() {
	r.solver.Close()
}

// label returns the cached indicator symbol for t. The implication
// label => t is asserted by the caller, inside its own scope.
func (r *unsatCoreReducer) label(t *smt.Term) *smt.Term {
	if l, ok := r.labels[t.Raw()]; ok {
		return l
	}
	l := smt.NewSymbol(fmt.Sprintf("__red_label_%d", r.labelSeq), smt.BoolSort())
	r.labelSeq++
	r.labels[t.Raw()] = l
	return l
}

// reduceAssumpUnsatCore finds a subset keep of assumps such that
// formula /\ keep is still unsatisfiable, preserving the original order.
// ok is false when formula /\ assumps turned out satisfiable, in which case
// the caller must fall back to the unreduced set.
func (r *unsatCoreReducer) reduceAssumpUnsatCore(formula *smt.Term, assumps []*smt.Term) (keep []*smt.Term, ok bool, err error) {
	if err := r.solver.Push(); err != nil {
		return nil, false, err
	}
	defer func() {
		if perr := r.solver.Pop(); perr != nil && err == nil {
			err = perr
		}
	}()

	if err := r.solver.Assert(formula); err != nil {
		return nil, false, err
	}
	labels := make([]*smt.Term, len(assumps))
	for i, a := range assumps {
		labels[i] = r.label(a)
		if err := r.solver.Assert(smt.Implies(labels[i], a)); err != nil {
			return nil, false, err
		}
	}
	res, err := r.solver.CheckSatAssuming(labels)
	if err != nil {
		return nil, false, err
	}
	if res == smt.Sat {
		return nil, false, nil
	}
	if res == smt.Unknown {
		return nil, false, errors.New("internal: reducer got unknown result")
	}
	core := r.solver.UnsatCore()
	for i, a := range assumps {
		if core[labels[i].Raw()] {
			keep = append(keep, a)
		}
	}
	if len(keep) == 0 {
		// formula alone is unsat; nothing from assumps is needed, but an
		// empty unit is useless to the caller
		keep = append(keep, assumps[0])
	}
	return keep, true, nil
}

// intersects reports whether a /\ b is satisfiable, checked on the
// reducer's context.
func (r *unsatCoreReducer) intersects(a, b *smt.Term) (sat bool, err error) {
	if err := r.solver.Push(); err != nil {
		return false, err
	}
	defer func() {
		if perr := r.solver.Pop(); perr != nil && err == nil {
			err = perr
		}
	}()
	if err := r.solver.Assert(a); err != nil {
		return false, err
	}
	if err := r.solver.Assert(b); err != nil {
		return false, err
	}
	res, err := r.solver.CheckSat()
	if err != nil {
		return false, err
	}
	if res == smt.Unknown {
		return false, errors.New("internal: intersection check got unknown result")
	}
	return res == smt.Sat, nil
}
