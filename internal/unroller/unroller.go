// Package unroller maps formulas over a transition system's variables to
// time-indexed copies, for bounded unrolling of the transition relation.
package unroller

import (
	"fmt"

	"github.com/log-when/pono/internal/smt"
	"github.com/log-when/pono/internal/ts"
)

type Unroller struct {
	sys *ts.TransitionSystem

	// timed[t] maps a variable's raw handle to its copy at time t
	timed []map[smt.RawTerm]*smt.Term
}

func New(sys *ts.TransitionSystem) *Unroller {
	return &Unroller{sys: sys}
}

// AtTime maps f to time step t: current state and input variables go to
// their copies at t, next-state variables to copies at t+1.
func (u *Unroller) AtTime(f *smt.Term, t int) (*smt.Term, error) {
	sub := make(map[smt.RawTerm]*smt.Term)
	for _, v := range u.sys.StateVars() {
		sub[v.Raw()] = u.TimedVar(v, t)
		next := u.sys.NextVar(v)
		sub[next.Raw()] = u.TimedVar(v, t+1)
	}
	for _, v := range u.sys.InputVars() {
		sub[v.Raw()] = u.TimedVar(v, t)
	}
	return smt.Substitute(f, sub)
}

// TimedVar returns the copy of variable v at time t, creating and caching
// it on first use.
func (u *Unroller) TimedVar(v *smt.Term, t int) *smt.Term {
	for len(u.timed) <= t {
		u.timed = append(u.timed, make(map[smt.RawTerm]*smt.Term))
	}
	if tv, ok := u.timed[t][v.Raw()]; ok {
		return tv
	}
	tv := smt.NewSymbol(fmt.Sprintf("%s@%d", v.Name(), t), v.Sort())
	u.timed[t][v.Raw()] = tv
	return tv
}
