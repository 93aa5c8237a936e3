// Package ts holds the symbolic transition system the provers run on:
// state and input variables, an initial-state formula and a transition
// relation over current and next state.
package ts

import (
	"github.com/pkg/errors"

	"github.com/log-when/pono/internal/smt"
)

type TransitionSystem struct {
	statevars []*smt.Term
	inputvars []*smt.Term

	nextMap map[smt.RawTerm]*smt.Term // current var -> next var
	currMap map[smt.RawTerm]*smt.Term // next var -> current var

	// functional updates, recorded for cone-of-influence computation
	updates map[smt.RawTerm]*smt.Term

	init       *smt.Term
	transParts []*smt.Term
}

func New() *TransitionSystem {
	return &TransitionSystem{
		nextMap: make(map[smt.RawTerm]*smt.Term),
		currMap: make(map[smt.RawTerm]*smt.Term),
		updates: make(map[smt.RawTerm]*smt.Term),
		init:    smt.True(),
	}
}

// MakeStateVar allocates a state variable and its paired next-state symbol.
func (s *TransitionSystem) MakeStateVar(name string, sort smt.Sort) *smt.Term {
	v := smt.NewSymbol(name, sort)
	next := smt.NewSymbol(name+".next", sort)
	s.statevars = append(s.statevars, v)
	s.nextMap[v.Raw()] = next
	s.currMap[next.Raw()] = v
	return v
}

func (s *TransitionSystem) MakeInputVar(name string, sort smt.Sort) *smt.Term {
	v := smt.NewSymbol(name, sort)
	s.inputvars = append(s.inputvars, v)
	return v
}

// SetInit sets the initial-state formula, which must range over current
// state variables only.
func (s *TransitionSystem) SetInit(f *smt.Term) error {
	if !s.OnlyCurr(f) {
		return errors.New("init must be over current state variables only")
	}
	s.init = f
	return nil
}

// AssignNext constrains the next-state value of v to the given update term
// (over current state and input variables) and records the update for
// cone-of-influence queries.
func (s *TransitionSystem) AssignNext(v, update *smt.Term) error {
	next, ok := s.nextMap[v.Raw()]
	if !ok {
		return errors.Errorf("AssignNext: %s is not a state variable", v.Name())
	}
	for raw := range smt.FreeSymbols(update) {
		if _, isNext := s.currMap[raw]; isNext {
			return errors.Errorf("AssignNext: update for %s mentions next-state symbols", v.Name())
		}
	}
	s.transParts = append(s.transParts, smt.Eq(next, update))
	s.updates[v.Raw()] = update
	return nil
}

// AddTransConstraint conjoins an arbitrary relational constraint over
// current and next state to the transition relation.
func (s *TransitionSystem) AddTransConstraint(f *smt.Term) {
	s.transParts = append(s.transParts, f)
}

func (s *TransitionSystem) Init() *smt.Term {
	return s.init
}

func (s *TransitionSystem) Trans() *smt.Term {
	return smt.And(s.transParts...)
}

func (s *TransitionSystem) StateVars() []*smt.Term { return s.statevars }
func (s *TransitionSystem) InputVars() []*smt.Term { return s.inputvars }

func (s *TransitionSystem) NextVar(v *smt.Term) *smt.Term {
	return s.nextMap[v.Raw()]
}

// StateUpdates maps state variables to their functional updates, where one
// was declared via AssignNext.
func (s *TransitionSystem) StateUpdates() map[smt.RawTerm]*smt.Term {
	return s.updates
}

// Next maps a formula over current state variables to its next-state
// projection.
func (s *TransitionSystem) Next(f *smt.Term) (*smt.Term, error) {
	return smt.Substitute(f, s.nextMap)
}

// Curr maps next-state symbols back to their current-state counterparts.
func (s *TransitionSystem) Curr(f *smt.Term) (*smt.Term, error) {
	return smt.Substitute(f, s.currMap)
}

func (s *TransitionSystem) IsCurrVar(t *smt.Term) bool {
	if !t.IsSymbol() {
		return false
	}
	_, ok := s.nextMap[t.Raw()]
	return ok
}

func (s *TransitionSystem) IsInputVar(t *smt.Term) bool {
	if !t.IsSymbol() {
		return false
	}
	for _, iv := range s.inputvars {
		if iv.Raw() == t.Raw() {
			return true
		}
	}
	return false
}

// OnlyCurr reports whether every free symbol of f is a current-state
// variable.
func (s *TransitionSystem) OnlyCurr(f *smt.Term) bool {
	for raw := range smt.FreeSymbols(f) {
		if _, ok := s.nextMap[raw]; !ok {
			return false
		}
	}
	return true
}
