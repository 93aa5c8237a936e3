// Package engine implements property-directed reachability (IC3/PDR): an
// incremental, frame-based fixpoint algorithm over a constraint solver,
// parameterized by a Strategy that fixes the unit flavor and the
// generalization policy.
package engine

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/log-when/pono/internal/result"
	"github.com/log-when/pono/internal/smt"
	"github.com/log-when/pono/internal/ts"
	"github.com/log-when/pono/internal/unroller"
)

// ErrRefineUnsupported marks the counterexample-refinement extension point
// of abstracting flavors, which is deliberately not implemented.
var ErrRefineUnsupported = errors.New("counterexample refinement is not implemented for this flavor")

type Engine struct {
	solver  *smt.Solver
	reducer *unsatCoreReducer
	sys     *ts.TransitionSystem
	prop    *smt.Term
	bad     *smt.Term
	handler UnitHandler
	strat   Strategy

	// frames[i] holds units known to hold of all states reachable within
	// i steps; a unit is stored only in the highest frame where it holds.
	frames      [][]Unit
	frameLabels []*smt.Term
	transLabel  *smt.Term

	labels   map[smt.RawTerm]*smt.Term
	labelSeq int

	// current context level of solver; every push must be matched by a
	// pop on every exit path
	solverContext int

	reachedK    int
	queue       goalQueue
	cex         *proofGoal
	initialized bool
}

// NewEngine builds an engine for proving prop invariant on sys, with the
// unit flavor and generalization policy fixed by strat.
func NewEngine(sys *ts.TransitionSystem, prop *smt.Term, strat Strategy) *Engine {
	e := &Engine{
		solver:   smt.NewSolver(),
		reducer:  newUnsatCoreReducer(),
		sys:      sys,
		prop:     prop,
		bad:      smartNot(prop),
		handler:  ClauseHandler{},
		strat:    strat,
		labels:   make(map[smt.RawTerm]*smt.Term),
		reachedK: -1,
	}
	strat.attach(e)
	return e
}

func (e *Engine) Close() {
	e.reducer.close()
	e.solver.Close()
}

func (e *Engine) Initialize() error {
	if e.initialized {
		return nil
	}
	if err := e.strat.CheckTS(); err != nil {
		return errors.Wrap(err, "unsupported transition system")
	}
	// frame 0 is the initial states
	if err := e.pushFrame(); err != nil {
		return err
	}
	e.transLabel = smt.NewSymbol("__trans_label", smt.BoolSort())
	if err := e.solver.Assert(smt.Implies(e.transLabel, e.sys.Trans())); err != nil {
		return err
	}
	if err := e.pushFrame(); err != nil {
		return err
	}
	if err := e.strat.Initialize(); err != nil {
		return err
	}
	e.initialized = true
	log.Debugf("%s: initialized with %d state vars, %d input vars",
		e.strat.Name(), len(e.sys.StateVars()), len(e.sys.InputVars()))
	return nil
}

// CheckUntil runs the proof search up to bound k. It returns Holds when a
// propagation fixpoint proves the property, Violated when a counterexample
// chain reaches the initial states, and Unknown when the bound runs out.
func (e *Engine) CheckUntil(k int) (result.Result, error) {
	if err := e.Initialize(); err != nil {
		return result.Unknown, err
	}
	for i := e.reachedK + 1; i <= k; i++ {
		res, err := e.step(i)
		if err != nil {
			return result.Unknown, err
		}
		if res != result.Unknown {
			log.Infof("%s: property %s at depth %d", e.strat.Name(), res, i)
			return res, nil
		}
	}
	log.Infof("%s: bound %d exhausted", e.strat.Name(), k)
	return result.Unknown, nil
}

func (e *Engine) step(i int) (result.Result, error) {
	if i <= e.reachedK {
		return result.Unknown, nil
	}
	if e.reachedK < 0 {
		return e.step0()
	}
	log.Debugf("%s: step %d", e.strat.Name(), i)

	// blocking phase: saturate all proof goals at the current frontier
	for {
		hit, err := e.intersectsBad()
		if err != nil {
			return result.Unknown, err
		}
		if !hit {
			break
		}
		blocked, err := e.blockAll()
		if err != nil {
			return result.Unknown, err
		}
		if !blocked {
			// the chain reached the initial states
			if err := e.strat.Refine(); err != nil {
				return result.Unknown, err
			}
			return result.Violated, nil
		}
	}

	// propagation phase
	if err := e.pushFrame(); err != nil {
		return result.Unknown, err
	}
	for j := 1; j < len(e.frames)-1; j++ {
		fixed, err := e.propagate(j)
		if err != nil {
			return result.Unknown, err
		}
		if fixed {
			log.Debugf("%s: fixpoint at frame %d", e.strat.Name(), j)
			return result.Holds, nil
		}
	}
	e.reachedK = i
	return result.Unknown, nil
}

// step0 handles the base case: an initial state that is already bad.
func (e *Engine) step0() (res result.Result, err error) {
	if err = e.pushSolverContext(); err != nil {
		return result.Unknown, err
	}
	defer func() {
		if perr := e.popSolverContext(); perr != nil && err == nil {
			err = perr
		}
	}()
	if err = e.assertFrameLabels(0); err != nil {
		return result.Unknown, err
	}
	if err = e.solver.Assert(e.bad); err != nil {
		return result.Unknown, err
	}
	r, cerr := e.solver.CheckSat()
	if cerr != nil {
		return result.Unknown, cerr
	}
	if r == smt.Unknown {
		return result.Unknown, errors.New("internal: base-case check returned unknown")
	}
	if r == smt.Sat {
		m, merr := e.solver.Model()
		if merr != nil {
			return result.Unknown, merr
		}
		u, uerr := e.strat.UnitFromModel(m)
		m.Close()
		if uerr != nil {
			return result.Unknown, uerr
		}
		e.cex = &proofGoal{target: u, idx: 0}
		return result.Violated, nil
	}
	e.reachedK = 0
	return result.Unknown, nil
}

// intersectsBad checks whether the newest frame intersects the bad states;
// if so the bad cube is queued as a fresh proof goal.
func (e *Engine) intersectsBad() (hit bool, err error) {
	if err = e.pushSolverContext(); err != nil {
		return false, err
	}
	defer func() {
		if perr := e.popSolverContext(); perr != nil && err == nil {
			err = perr
		}
	}()
	frontier := len(e.frames) - 1
	if err = e.assertFrameLabels(frontier); err != nil {
		return false, err
	}
	if err = e.solver.Assert(e.bad); err != nil {
		return false, err
	}
	r, cerr := e.solver.CheckSat()
	if cerr != nil {
		return false, cerr
	}
	if r == smt.Unknown {
		return false, errors.New("internal: bad-intersection check returned unknown")
	}
	if r == smt.Sat {
		m, merr := e.solver.Model()
		if merr != nil {
			return false, merr
		}
		u, uerr := e.strat.UnitFromModel(m)
		m.Close()
		if uerr != nil {
			return false, uerr
		}
		log.Debugf("frame %d intersects bad", frontier)
		e.queue.push(&proofGoal{target: u, idx: frontier})
	}
	return r == smt.Sat, nil
}

// blockAll drains the proof-obligation queue, lowest frame first. It
// returns false when a goal reaches frame 0, i.e. a counterexample.
func (e *Engine) blockAll() (bool, error) {
	for !e.queue.empty() {
		pg := e.queue.popMin()
		if pg.idx == 0 {
			e.cex = pg
			e.queue.clear()
			return false, nil
		}
		blocked, err := e.block(pg)
		if err != nil {
			return false, err
		}
		if !blocked {
			// a predecessor goal was queued; this goal is still open
			e.queue.push(pg)
		}
	}
	return true, nil
}

// block tries to block one proof goal at its frame. On success the goal's
// cube has been generalized and added to the frame; on failure a
// predecessor goal one frame earlier has been queued.
func (e *Engine) block(pg *proofGoal) (bool, error) {
	found, out, err := e.getPredecessor(pg.idx, pg.target)
	if err != nil {
		return false, err
	}
	if found {
		e.queue.push(&proofGoal{target: out, idx: pg.idx - 1, next: pg})
		return false, nil
	}
	units, err := e.strat.InductiveGeneralization(pg.idx, out)
	if err != nil {
		return false, err
	}
	for _, u := range units {
		if !e.handler.CheckValid(u) {
			return false, errors.New("internal: generalized unit failed validity check")
		}
		if err := e.constrainFrame(pg.idx, u); err != nil {
			return false, err
		}
	}
	log.Debugf("blocked goal at frame %d with %d unit(s)", pg.idx, len(units))
	return true, nil
}

// getPredecessor checks whether cube c at frame i is reachable from frame
// i-1. When it is, out is a generalized predecessor cube with
// out -> F[i-1] and (out, c) in T. When it is not, out is an
// unsat-core-reduced version of c that is still unreachable from F[i-1].
func (e *Engine) getPredecessor(i int, c Unit) (found bool, out Unit, err error) {
	if i <= 0 {
		return false, Unit{}, errors.New("internal: getPredecessor called at frame 0")
	}
	if err = e.pushSolverContext(); err != nil {
		return false, Unit{}, err
	}
	defer func() {
		if perr := e.popSolverContext(); perr != nil && err == nil {
			err = perr
		}
	}()
	if err = e.assertFrameLabels(i - 1); err != nil {
		return false, Unit{}, err
	}
	if err = e.assertTransLabel(); err != nil {
		return false, Unit{}, err
	}

	// activate each next-state literal of c through its own label so an
	// unsat core singles out the literals that matter
	assumps := make([]*smt.Term, len(c.Children))
	for k, lit := range c.Children {
		nl, nerr := e.sys.Next(lit)
		if nerr != nil {
			return false, Unit{}, nerr
		}
		lbl := e.label(nl)
		if err = e.solver.Assert(smt.Implies(lbl, nl)); err != nil {
			return false, Unit{}, err
		}
		assumps[k] = lbl
	}

	r, cerr := e.solver.CheckSatAssuming(assumps)
	if cerr != nil {
		return false, Unit{}, cerr
	}
	if r == smt.Unknown {
		return false, Unit{}, errors.New("internal: predecessor check returned unknown")
	}
	if r == smt.Sat {
		m, merr := e.solver.Model()
		if merr != nil {
			return false, Unit{}, merr
		}
		pred, gerr := e.strat.GeneralizePredecessor(i, c, m)
		m.Close()
		if gerr != nil {
			return false, Unit{}, gerr
		}
		return true, pred, nil
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
		return false, Unit{}, err
	}
	return false, e.handler.CreateNegated(keep), nil
}

// fixIfIntersectsInitial restores literals from rem until the cube over
// keep no longer intersects the initial states.
func (e *Engine) fixIfIntersectsInitial(keep, rem []*smt.Term) ([]*smt.Term, error) {
	if len(rem) == 0 {
		return keep, nil
	}
	sat, err := e.reducer.intersects(e.sys.Init(), smt.And(keep...))
	if err != nil {
		return nil, err
	}
	if !sat {
		return keep, nil
	}
	add, ok, err := e.reducer.reduceAssumpUnsatCore(smt.And(e.sys.Init(), smt.And(keep...)), rem)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("internal: cube intersects initial states and cannot be repaired")
	}
	return append(keep, add...), nil
}

// propagate pushes units of frame i forward to the highest frame where
// they remain valid. It reports a fixpoint when the frame empties, which
// makes F[i] and F[i+1] equal as sets of units.
func (e *Engine) propagate(i int) (bool, error) {
	units := e.frames[i]
	var kept []Unit
	for _, u := range units {
		j, err := e.findHighestFrame(i, u)
		if err != nil {
			return false, err
		}
		if j > i {
			if err := e.constrainFrame(j, u); err != nil {
				return false, err
			}
		} else {
			kept = append(kept, u)
		}
	}
	e.frames[i] = kept
	if len(kept) == 0 {
		return true, nil
	}
	log.Debugf("propagated %d of %d units out of frame %d", len(units)-len(kept), len(units), i)
	return false, nil
}

// findHighestFrame returns the largest j >= i such that u can be added to
// frame j while preserving the frame invariants.
func (e *Engine) findHighestFrame(i int, u Unit) (int, error) {
	negNext, err := e.sys.Next(e.handler.Negate(u).Term)
	if err != nil {
		return 0, err
	}
	j := i
	for j+1 < len(e.frames) {
		ok, err := e.relativelyInductive(j, u, negNext)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		j++
	}
	return j, nil
}

// relativelyInductive checks F[j] /\ u /\ T /\ !u' unsat.
func (e *Engine) relativelyInductive(j int, u Unit, negNext *smt.Term) (ok bool, err error) {
	if err = e.pushSolverContext(); err != nil {
		return false, err
	}
	defer func() {
		if perr := e.popSolverContext(); perr != nil && err == nil {
			err = perr
		}
	}()
	if err = e.assertFrameLabels(j); err != nil {
		return false, err
	}
	if err = e.solver.Assert(u.Term); err != nil {
		return false, err
	}
	if err = e.assertTransLabel(); err != nil {
		return false, err
	}
	if err = e.solver.Assert(negNext); err != nil {
		return false, err
	}
	r, cerr := e.solver.CheckSat()
	if cerr != nil {
		return false, cerr
	}
	if r == smt.Unknown {
		return false, errors.New("internal: propagation check returned unknown")
	}
	return r == smt.Unsat, nil
}

// pushFrame appends an empty frame with a fresh activation label.
func (e *Engine) pushFrame() error {
	i := len(e.frames)
	lbl := smt.NewSymbol(fmt.Sprintf("__frame_label_%d", i), smt.BoolSort())
	e.frameLabels = append(e.frameLabels, lbl)
	e.frames = append(e.frames, nil)
	if i == 0 {
		return e.solver.Assert(smt.Implies(lbl, e.sys.Init()))
	}
	log.Debugf("pushed frame %d", i)
	return nil
}

// constrainFrame adds unit c to frame i. Earlier frames pick it up
// implicitly because asserting frame j activates every frame >= j.
func (e *Engine) constrainFrame(i int, c Unit) error {
	if e.solverContext != 0 {
		return errors.New("internal: constrainFrame outside base solver context")
	}
	if i < 0 || i >= len(e.frames) {
		return errors.Errorf("internal: constrainFrame at nonexistent frame %d", i)
	}
	if err := e.solver.Assert(smt.Implies(e.frameLabels[i], c.Term)); err != nil {
		return err
	}
	e.frames[i] = append(e.frames[i], c)
	return nil
}

// assertFrameLabels activates frame i: the conjunction over frames[i..],
// since each unit lives only in the highest frame where it holds.
func (e *Engine) assertFrameLabels(i int) error {
	for j := i; j < len(e.frameLabels); j++ {
		if err := e.solver.Assert(e.frameLabels[j]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assertTransLabel() error {
	return e.solver.Assert(e.transLabel)
}

// label returns the cached indicator symbol for t; the implication
// label => t is asserted by callers inside their own scope.
func (e *Engine) label(t *smt.Term) *smt.Term {
	if l, ok := e.labels[t.Raw()]; ok {
		return l
	}
	l := smt.NewSymbol(fmt.Sprintf("__label_%d", e.labelSeq), smt.BoolSort())
	e.labelSeq++
	e.labels[t.Raw()] = l
	return l
}

func (e *Engine) pushSolverContext() error {
	if err := e.solver.Push(); err != nil {
		return err
	}
	e.solverContext++
	return nil
}

func (e *Engine) popSolverContext() error {
	if e.solverContext <= 0 {
		return errors.New("internal: popSolverContext at base context")
	}
	e.solverContext--
	return e.solver.Pop()
}

// Witness reconstructs the counterexample trace by unrolling the
// transition relation on a fresh context and pinning each step to the
// target cube of the corresponding proof goal.
func (e *Engine) Witness() (result.Trace, error) {
	if e.cex == nil {
		return nil, errors.New("witness: no counterexample available")
	}
	var chain []*proofGoal
	for g := e.cex; g != nil; g = g.next {
		chain = append(chain, g)
	}

	slv := smt.NewSolver()
	defer slv.Close()
	unr := unroller.New(e.sys)

	init0, err := unr.AtTime(e.sys.Init(), 0)
	if err != nil {
		return nil, err
	}
	if err := slv.Assert(init0); err != nil {
		return nil, err
	}
	for t := 0; t < len(chain)-1; t++ {
		tt, err := unr.AtTime(e.sys.Trans(), t)
		if err != nil {
			return nil, err
		}
		if err := slv.Assert(tt); err != nil {
			return nil, err
		}
	}
	for t, g := range chain {
		gt, err := unr.AtTime(g.target.Term, t)
		if err != nil {
			return nil, err
		}
		if err := slv.Assert(gt); err != nil {
			return nil, err
		}
	}
	r, err := slv.CheckSat()
	if err != nil {
		return nil, err
	}
	if r != smt.Sat {
		return nil, errors.New("internal: counterexample chain is not executable")
	}
	m, err := slv.Model()
	if err != nil {
		return nil, err
	}
	defer m.Close()

	trace := make(result.Trace, len(chain))
	for t := range chain {
		step := make(result.Assignment)
		for _, v := range e.sys.StateVars() {
			val, err := m.Value(unr.TimedVar(v, t))
			if err != nil {
				return nil, err
			}
			step[v.Name()] = val
		}
		if t < len(chain)-1 {
			for _, v := range e.sys.InputVars() {
				val, err := m.Value(unr.TimedVar(v, t))
				if err != nil {
					return nil, err
				}
				step[v.Name()] = val
			}
		}
		trace[t] = step
	}
	return trace, nil
}
