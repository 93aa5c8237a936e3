package unroller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log-when/pono/internal/smt"
	"github.com/log-when/pono/internal/ts"
)

func Test_timedVarCaching(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	x := sys.MakeStateVar("x", smt.BitVecSort(4))

	u := New(sys)
	x2 := u.TimedVar(x, 2)
	assert.Equal(t, "x@2", x2.Name())
	assert.Equal(t, x.Sort(), x2.Sort())
	assert.Same(t, x2, u.TimedVar(x, 2))
	assert.NotEqual(t, x2.Raw(), u.TimedVar(x, 3).Raw())
}

func Test_atTime(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	x := sys.MakeStateVar("x", smt.IntSort())
	in := sys.MakeInputVar("in", smt.IntSort())
	xn := sys.NextVar(x)

	u := New(sys)

	// next state lands one step after current state and inputs
	f := smt.Eq(xn, smt.IntAdd(x, in))
	g, err := u.AtTime(f, 2)
	assert.Nil(t, err)

	want := smt.Eq(u.TimedVar(x, 3), smt.IntAdd(u.TimedVar(x, 2), u.TimedVar(in, 2)))
	assert.Equal(t, want.Raw(), g.Raw())
}

func Test_unrolledStepsChain(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := ts.New()
	x := sys.MakeStateVar("x", smt.IntSort())
	assert.Nil(t, sys.SetInit(smt.Eq(x, smt.IntConst(0))))
	assert.Nil(t, sys.AssignNext(x, smt.IntAdd(x, smt.IntConst(1))))

	u := New(sys)
	s := smt.NewSolver()
	defer s.Close()

	init0, err := u.AtTime(sys.Init(), 0)
	assert.Nil(t, err)
	assert.Nil(t, s.Assert(init0))
	for i := 0; i < 3; i++ {
		ti, err := u.AtTime(sys.Trans(), i)
		assert.Nil(t, err)
		assert.Nil(t, s.Assert(ti))
	}

	r, err := s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, smt.Sat, r)

	m, err := s.Model()
	assert.Nil(t, err)
	defer m.Close()
	for i := 0; i <= 3; i++ {
		v, err := m.Value(u.TimedVar(x, i))
		assert.Nil(t, err)
		assert.Equal(t, int64(i), v.Int64())
	}
}
