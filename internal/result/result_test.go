package result

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/log-when/pono/internal/smt"
)

func Test_resultString(t *testing.T) {
	assert.Equal(t, "holds", Holds.String())
	assert.Equal(t, "violated", Violated.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "unknown", Result(42).String())
}

func Test_traceString(t *testing.T) {
	smt.Init()
	defer smt.Exit()

	s := smt.NewSolver()
	defer s.Close()

	x := smt.NewSymbol("x", smt.IntSort())
	assert.Nil(t, s.Assert(smt.Eq(x, smt.IntConst(2))))
	r, err := s.CheckSat()
	assert.Nil(t, err)
	assert.Equal(t, smt.Sat, r)

	m, err := s.Model()
	assert.Nil(t, err)
	defer m.Close()
	v, err := m.Value(x)
	assert.Nil(t, err)

	tr := Trace{{"x": v}}
	out := tr.String()
	assert.Contains(t, out, "trace of 1 states")
	assert.Contains(t, out, "step 0")
	assert.Contains(t, out, "x=2")
}
