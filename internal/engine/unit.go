package engine

import (
	"github.com/log-when/pono/internal/smt"
)

// Unit is the generalized frame element: a combined term, its literal
// children, and a polarity flag. Children are always stored in the polarity
// implied by Negated; no re-negation is applied anywhere.
type Unit struct {
	Term     *smt.Term
	Children []*smt.Term
	Negated  bool
}

func (u Unit) IsNull() bool {
	return u.Term == nil
}

// UnitHandler defines what a unit looks like for one flavor of the engine,
// e.g. clause/cube.
type UnitHandler interface {
	// Create builds a non-negated unit from literal children.
	Create(children []*smt.Term) Unit
	// CreateNegated builds the negated form directly from children that
	// are already in the negated polarity.
	CreateNegated(children []*smt.Term) Unit
	// Negate flips the polarity of a unit.
	Negate(u Unit) Unit
	// CheckValid is a structural sanity check on a unit.
	CheckValid(u Unit) bool
}

// ClauseHandler represents units as disjunctions of literals; the negated
// form is a cube.
type ClauseHandler struct{}

func (ClauseHandler) Create(children []*smt.Term) Unit {
	return Unit{
		Term:     smt.Or(children...),
		Children: append([]*smt.Term(nil), children...),
		Negated:  false,
	}
}

func (ClauseHandler) CreateNegated(children []*smt.Term) Unit {
	return Unit{
		Term:     smt.And(children...),
		Children: append([]*smt.Term(nil), children...),
		Negated:  true,
	}
}

func (h ClauseHandler) Negate(u Unit) Unit {
	children := make([]*smt.Term, len(u.Children))
	for i, c := range u.Children {
		children[i] = smartNot(c)
	}
	if u.Negated {
		return h.Create(children)
	}
	return h.CreateNegated(children)
}

func (ClauseHandler) CheckValid(u Unit) bool {
	if u.IsNull() || len(u.Children) == 0 {
		return false
	}
	for _, c := range u.Children {
		if !isLiteral(c) {
			return false
		}
	}
	return true
}

// smartNot strips a leading negation if present, otherwise applies one, so
// toggling polarity never stacks double negations.
func smartNot(t *smt.Term) *smt.Term {
	if t.Op() == smt.OpNot {
		return t.Arg(0)
	}
	return smt.Not(t)
}

func isLiteral(t *smt.Term) bool {
	if t.Sort().Kind() != smt.KindBool {
		return false
	}
	if t.Op() == smt.OpNot {
		t = t.Arg(0)
	}
	switch t.Op() {
	case smt.OpSymbol, smt.OpConst, smt.OpEq, smt.OpDistinct,
		smt.OpBVUlt, smt.OpBVUle, smt.OpIntLt, smt.OpIntLe:
		return true
	}
	return false
}
