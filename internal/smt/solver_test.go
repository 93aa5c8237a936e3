package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_checkSatScoped(t *testing.T) {
	Init()
	defer Exit()

	s := NewSolver()
	defer s.Close()

	p := NewSymbol("p", BoolSort())
	assert.Nil(t, s.Assert(p))

	r, err := s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, Sat, r)

	assert.Nil(t, s.Push())
	assert.Nil(t, s.Assert(Not(p)))
	r, err = s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, Unsat, r)
	assert.Nil(t, s.Pop())

	r, err = s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, Sat, r)
}

func Test_assumptionCore(t *testing.T) {
	Init()
	defer Exit()

	s := NewSolver()
	defer s.Close()

	p := NewSymbol("p", BoolSort())
	q := NewSymbol("q", BoolSort())
	l1 := NewSymbol("l1", BoolSort())
	l2 := NewSymbol("l2", BoolSort())
	l3 := NewSymbol("l3", BoolSort())

	assert.Nil(t, s.Assert(Implies(l1, p)))
	assert.Nil(t, s.Assert(Implies(l2, Not(p))))
	assert.Nil(t, s.Assert(Implies(l3, q)))

	r, err := s.CheckSatAssuming([]*Term{l1, l2, l3})
	assert.Nil(t, err)
	assert.Equal(t, Unsat, r)

	// any core for p /\ !p must contain both activating labels
	core := s.UnsatCore()
	assert.True(t, core[l1.Raw()])
	assert.True(t, core[l2.Raw()])

	r, err = s.CheckSatAssuming([]*Term{l1, l3})
	assert.Nil(t, err)
	assert.Equal(t, Sat, r)
}

func Test_modelValues(t *testing.T) {
	Init()
	defer Exit()

	s := NewSolver()
	defer s.Close()

	b := NewSymbol("b", BoolSort())
	x := NewSymbol("x", BitVecSort(4))
	n := NewSymbol("n", IntSort())

	assert.Nil(t, s.Assert(b))
	assert.Nil(t, s.Assert(Eq(x, BVConst(5, 4))))
	assert.Nil(t, s.Assert(Eq(n, IntConst(-7))))

	r, err := s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, Sat, r)

	m, err := s.Model()
	assert.Nil(t, err)
	defer m.Close()

	vb, err := m.Value(b)
	assert.Nil(t, err)
	assert.True(t, vb.Bool())
	assert.Equal(t, "b1", vb.Key())

	vx, err := m.Value(x)
	assert.Nil(t, err)
	assert.Equal(t, int64(5), vx.BigInt().Int64())
	assert.Equal(t, BVConst(5, 4).Raw(), vx.Term().Raw())

	vn, err := m.Value(n)
	assert.Nil(t, err)
	assert.Equal(t, int64(-7), vn.Int64())
	assert.Equal(t, IntConst(-7).Raw(), vn.Term().Raw())
}
