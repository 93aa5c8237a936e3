package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log-when/pono/internal/smt"
)

func Test_stateVarPairing(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := New()
	x := sys.MakeStateVar("x", smt.BitVecSort(4))

	xn := sys.NextVar(x)
	assert.NotNil(t, xn)
	assert.Equal(t, "x.next", xn.Name())
	assert.Equal(t, x.Sort(), xn.Sort())
	assert.True(t, sys.IsCurrVar(x))
	assert.False(t, sys.IsCurrVar(xn))
}

func Test_nextCurrSubstitution(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := New()
	x := sys.MakeStateVar("x", smt.IntSort())
	xn := sys.NextVar(x)

	f := smt.Eq(x, smt.IntConst(0))
	nf, err := sys.Next(f)
	assert.Nil(t, err)
	assert.Equal(t, smt.Eq(xn, smt.IntConst(0)).Raw(), nf.Raw())

	back, err := sys.Curr(nf)
	assert.Nil(t, err)
	assert.Equal(t, f.Raw(), back.Raw())
}

func Test_initRejectsNextState(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := New()
	x := sys.MakeStateVar("x", smt.IntSort())
	xn := sys.NextVar(x)

	assert.NotNil(t, sys.SetInit(smt.Eq(xn, smt.IntConst(0))))
	assert.Nil(t, sys.SetInit(smt.Eq(x, smt.IntConst(0))))
	assert.Equal(t, smt.Eq(x, smt.IntConst(0)).Raw(), sys.Init().Raw())
}

func Test_assignNext(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := New()
	x := sys.MakeStateVar("x", smt.IntSort())
	xn := sys.NextVar(x)

	update := smt.IntAdd(x, smt.IntConst(1))
	assert.Nil(t, sys.AssignNext(x, update))
	assert.Equal(t, smt.Eq(xn, update).Raw(), sys.Trans().Raw())
	assert.Same(t, update, sys.StateUpdates()[x.Raw()])

	// updates must not reach into the next state
	assert.NotNil(t, sys.AssignNext(x, smt.IntAdd(xn, smt.IntConst(1))))

	// only declared state variables have a next-state pairing
	free := smt.NewSymbol("free", smt.IntSort())
	assert.NotNil(t, sys.AssignNext(free, update))
}

func Test_onlyCurr(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	sys := New()
	x := sys.MakeStateVar("x", smt.IntSort())
	in := sys.MakeInputVar("in", smt.IntSort())
	xn := sys.NextVar(x)

	assert.True(t, sys.OnlyCurr(smt.IntLt(x, smt.IntConst(10))))
	assert.True(t, sys.OnlyCurr(smt.IntConst(3)))
	assert.False(t, sys.OnlyCurr(smt.Eq(xn, x)))
	assert.False(t, sys.OnlyCurr(smt.Eq(x, in)))
	assert.True(t, sys.IsInputVar(in))
	assert.False(t, sys.IsInputVar(x))
}
