package engine

import (
	"github.com/pkg/errors"

	"github.com/log-when/pono/internal/smt"
)

// BitLevel is the plain IC3 flavor: units are clauses over state-variable
// literals, and generalization is unsat-core shrinking of the literal set.
type BitLevel struct {
	engine *Engine
}

func NewBitLevel() *BitLevel {
	return &BitLevel{}
}

func (s *BitLevel) Name() string { return "ic3" }

func (s *BitLevel) attach(e *Engine) { s.engine = e }

func (s *BitLevel) CheckTS() error {
	vars := append(append([]*smt.Term(nil), s.engine.sys.StateVars()...), s.engine.sys.InputVars()...)
	for _, v := range vars {
		if v.Sort().Kind() == smt.KindArray {
			return errors.Errorf("ic3 does not support array-sorted variables (%s)", v.Name())
		}
	}
	return nil
}

func (s *BitLevel) Initialize() error { return nil }

func (s *BitLevel) UnitFromModel(m *smt.Model) (Unit, error) {
	lits, err := modelCube(m, s.engine.sys.StateVars())
	if err != nil {
		return Unit{}, err
	}
	return s.engine.handler.CreateNegated(lits), nil
}

// InductiveGeneralization shrinks the blocked cube c to an unsat core of
// its literals relative to F[i-1] /\ !c /\ T, repairs any intersection with
// the initial states, and returns the negation as a single clause.
func (s *BitLevel) InductiveGeneralization(i int, c Unit) (units []Unit, err error) {
	e := s.engine
	if err = e.pushSolverContext(); err != nil {
		return nil, err
	}
	defer func() {
		if perr := e.popSolverContext(); perr != nil && err == nil {
			err = perr
		}
	}()
	if err = e.assertFrameLabels(i - 1); err != nil {
		return nil, err
	}
	if err = e.solver.Assert(e.handler.Negate(c).Term); err != nil {
		return nil, err
	}
	if err = e.assertTransLabel(); err != nil {
		return nil, err
	}
	assumps := make([]*smt.Term, len(c.Children))
	for k, lit := range c.Children {
		nl, nerr := e.sys.Next(lit)
		if nerr != nil {
			return nil, nerr
		}
		lbl := e.label(nl)
		if err = e.solver.Assert(smt.Implies(lbl, nl)); err != nil {
			return nil, err
		}
		assumps[k] = lbl
	}
	r, cerr := e.solver.CheckSatAssuming(assumps)
	if cerr != nil {
		return nil, cerr
	}
	if r != smt.Unsat {
		// the caller established F[i-1] /\ T /\ c' unsat, so this query
		// can only be unsat
		return nil, errors.New("internal: inductive generalization query was not unsat")
	}
	core := e.solver.UnsatCore()
	var keep, rem []*smt.Term
	for k, lit := range c.Children {
		if core[assumps[k].Raw()] {
			keep = append(keep, lit)
		} else {
			rem = append(rem, lit)
		}
	}
	if len(keep) == 0 {
		keep = append(keep, c.Children[0])
		rem = c.Children[1:]
	}
	keep, err = e.fixIfIntersectsInitial(keep, rem)
	if err != nil {
		return nil, err
	}
	return []Unit{e.handler.Negate(e.handler.CreateNegated(keep))}, nil
}

// GeneralizePredecessor drops literals of the model's state cube as long
// as, under the model's input assignment, every remaining state still
// transitions into c.
func (s *BitLevel) GeneralizePredecessor(i int, c Unit, m *smt.Model) (Unit, error) {
	e := s.engine
	lits, err := modelCube(m, e.sys.StateVars())
	if err != nil {
		return Unit{}, err
	}
	inputLits, err := modelCube(m, e.sys.InputVars())
	if err != nil {
		return Unit{}, err
	}
	nc, err := e.sys.Next(c.Term)
	if err != nil {
		return Unit{}, err
	}
	parts := []*smt.Term{e.sys.Trans(), smt.Not(nc)}
	if len(inputLits) > 0 {
		parts = append(parts, smt.And(inputLits...))
	}
	red, ok, err := e.reducer.reduceAssumpUnsatCore(smt.And(parts...), lits)
	if err != nil {
		return Unit{}, err
	}
	if !ok {
		// transition not input-deterministic here; the full model cube
		// trivially satisfies the predecessor contract
		return e.handler.CreateNegated(lits), nil
	}
	return e.handler.CreateNegated(red), nil
}

func (s *BitLevel) Refine() error { return nil }

// modelCube builds one literal per variable from its model value.
func modelCube(m *smt.Model, vars []*smt.Term) ([]*smt.Term, error) {
	var lits []*smt.Term
	for _, v := range vars {
		val, err := m.Value(v)
		if err != nil {
			return nil, err
		}
		if v.Sort().Kind() == smt.KindBool {
			if val.Bool() {
				lits = append(lits, v)
			} else {
				lits = append(lits, smt.Not(v))
			}
			continue
		}
		lits = append(lits, smt.Eq(v, val.Term()))
	}
	return lits, nil
}
