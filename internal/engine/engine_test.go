package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/log-when/pono/internal/result"
	"github.com/log-when/pono/internal/smt"
	"github.com/log-when/pono/internal/ts"
)

// wrap-around 3-bit counter: 0,1,2,3,0,... so 4 is unreachable
func newWrapCounter(t *testing.T) (*ts.TransitionSystem, *smt.Term) {
	sys := ts.New()
	x := sys.MakeStateVar("x", smt.BitVecSort(3))
	require.Nil(t, sys.SetInit(smt.Eq(x, smt.BVConst(0, 3))))
	next := smt.Ite(smt.Eq(x, smt.BVConst(3, 3)), smt.BVConst(0, 3), smt.BVAdd(x, smt.BVConst(1, 3)))
	require.Nil(t, sys.AssignNext(x, next))
	return sys, smt.Not(smt.Eq(x, smt.BVConst(4, 3)))
}

// unbounded integer counter: reaches 3 after exactly three steps
func newIntCounter(t *testing.T) (*ts.TransitionSystem, *smt.Term) {
	sys := ts.New()
	x := sys.MakeStateVar("x", smt.IntSort())
	require.Nil(t, sys.SetInit(smt.Eq(x, smt.IntConst(0))))
	require.Nil(t, sys.AssignNext(x, smt.IntAdd(x, smt.IntConst(1))))
	return sys, smt.Not(smt.Eq(x, smt.IntConst(3)))
}

func Test_wrapCounterHolds(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newWrapCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(10)
	assert.Nil(t, err)
	assert.Equal(t, result.Holds, res)
}

func Test_intCounterViolated(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newIntCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(10)
	assert.Nil(t, err)
	assert.Equal(t, result.Violated, res)

	trace, err := e.Witness()
	require.Nil(t, err)
	require.Len(t, trace, 4)
	for i := 0; i <= 3; i++ {
		v, ok := trace[i]["x"]
		require.True(t, ok)
		assert.Equal(t, int64(i), v.Int64())
	}
}

func Test_badInitialState(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	x := sys.MakeStateVar("x", smt.IntSort())
	require.Nil(t, sys.SetInit(smt.Eq(x, smt.IntConst(3))))
	require.Nil(t, sys.AssignNext(x, x))

	e := NewEngine(sys, smt.Not(smt.Eq(x, smt.IntConst(3))), NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(10)
	assert.Nil(t, err)
	assert.Equal(t, result.Violated, res)

	trace, err := e.Witness()
	require.Nil(t, err)
	require.Len(t, trace, 1)
	assert.Equal(t, int64(3), trace[0]["x"].Int64())
}

func Test_boundExhausted(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	x := sys.MakeStateVar("x", smt.IntSort())
	require.Nil(t, sys.SetInit(smt.Eq(x, smt.IntConst(0))))
	require.Nil(t, sys.AssignNext(x, smt.IntAdd(x, smt.IntConst(1))))

	// violated only at depth 100, far past the bound
	e := NewEngine(sys, smt.Not(smt.Eq(x, smt.IntConst(100))), NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(3)
	assert.Nil(t, err)
	assert.Equal(t, result.Unknown, res)
}

func Test_framesCoverInitialStates(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newWrapCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(10)
	require.Nil(t, err)
	require.Equal(t, result.Holds, res)
	require.Equal(t, 0, e.solverContext)

	// every unit of every frame above 0 over-approximates the initial states
	s := smt.NewSolver()
	defer s.Close()
	for i := 1; i < len(e.frames); i++ {
		for _, u := range e.frames[i] {
			require.Nil(t, s.Push())
			require.Nil(t, s.Assert(sys.Init()))
			require.Nil(t, s.Assert(smt.Not(u.Term)))
			r, err := s.CheckSat()
			require.Nil(t, err)
			assert.Equal(t, smt.Unsat, r)
			require.Nil(t, s.Pop())
		}
	}
}

func Test_finalFramesRelativelyInductive(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newWrapCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	res, err := e.CheckUntil(10)
	require.Nil(t, err)
	require.Equal(t, result.Holds, res)

	// frame i is the conjunction of units stored at i and later
	frameAt := func(i int) *smt.Term {
		var parts []*smt.Term
		for j := i; j < len(e.frames); j++ {
			for _, u := range e.frames[j] {
				parts = append(parts, u.Term)
			}
		}
		return smt.And(parts...)
	}

	s := smt.NewSolver()
	defer s.Close()
	for i := 1; i < len(e.frames)-1; i++ {
		next, err := sys.Next(frameAt(i + 1))
		require.Nil(t, err)
		require.Nil(t, s.Push())
		require.Nil(t, s.Assert(frameAt(i)))
		require.Nil(t, s.Assert(sys.Trans()))
		require.Nil(t, s.Assert(smt.Not(next)))
		r, err := s.CheckSat()
		require.Nil(t, err)
		assert.Equal(t, smt.Unsat, r)
		require.Nil(t, s.Pop())
	}
}

func Test_getPredecessorContract(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newIntCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()
	require.Nil(t, e.Initialize())

	x := sys.StateVars()[0]

	// x=1 is reachable from the initial state in one step
	found, pred, err := e.getPredecessor(1, e.handler.CreateNegated([]*smt.Term{smt.Eq(x, smt.IntConst(1))}))
	require.Nil(t, err)
	assert.True(t, found)
	require.Len(t, pred.Children, 1)
	assert.Equal(t, smt.Eq(x, smt.IntConst(0)).Raw(), pred.Children[0].Raw())

	// x=7 is not; the reduced cube keeps the blocking literal
	found, out, err := e.getPredecessor(1, e.handler.CreateNegated([]*smt.Term{smt.Eq(x, smt.IntConst(7))}))
	require.Nil(t, err)
	assert.False(t, found)
	assert.True(t, e.handler.CheckValid(out))
	assert.Equal(t, 0, e.solverContext)
}

func Test_popGuardsBaseContext(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newIntCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	assert.NotNil(t, e.popSolverContext())
	require.Nil(t, e.pushSolverContext())
	assert.Equal(t, 1, e.solverContext)
	require.Nil(t, e.popSolverContext())
	assert.Equal(t, 0, e.solverContext)
}

func Test_constrainFrameOutsideBaseContext(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newIntCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()
	require.Nil(t, e.Initialize())

	x := sys.StateVars()[0]
	u := e.handler.Create([]*smt.Term{smt.Not(smt.Eq(x, smt.IntConst(9)))})

	require.Nil(t, e.pushSolverContext())
	assert.NotNil(t, e.constrainFrame(1, u))
	require.Nil(t, e.popSolverContext())
	assert.Nil(t, e.constrainFrame(1, u))
	assert.NotNil(t, e.constrainFrame(5, u))
}

func Test_witnessWithoutCounterexample(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys, prop := newWrapCounter(t)
	e := NewEngine(sys, prop, NewBitLevel())
	defer e.Close()

	_, err := e.Witness()
	assert.NotNil(t, err)
}

func Test_bitLevelRejectsArrays(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	a := sys.MakeStateVar("mem", smt.ArraySort(4, 8))
	require.Nil(t, sys.AssignNext(a, a))

	e := NewEngine(sys, smt.True(), NewBitLevel())
	defer e.Close()

	assert.NotNil(t, e.Initialize())
}
