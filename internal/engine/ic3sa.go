package engine

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/log-when/pono/internal/smt"
)

// SyntaxGuided is IC3 with syntax-guided abstraction: proof-obligation
// cubes are equivalence-class partitions over a fixed pool of subterms
// collected from init, trans and bad, instead of raw state-variable
// literals. Inductive generalization is shared with the bit-level flavor.
type SyntaxGuided struct {
	BitLevel

	// candidate subterms over current state variables, bucketed by sort;
	// sortOrder keeps iteration deterministic
	sortOrder []smt.Sort
	termAbs   map[smt.Sort][]*smt.Term
	seen      map[smt.RawTerm]bool

	// boolean-valued candidate predicates
	preds []*smt.Term

	varsInBad map[smt.RawTerm]*smt.Term
}

func NewSyntaxGuided() *SyntaxGuided {
	return &SyntaxGuided{
		termAbs: make(map[smt.Sort][]*smt.Term),
		seen:    make(map[smt.RawTerm]bool),
	}
}

func (s *SyntaxGuided) Name() string { return "ic3sa" }

func (s *SyntaxGuided) CheckTS() error {
	vars := append(append([]*smt.Term(nil), s.engine.sys.StateVars()...), s.engine.sys.InputVars()...)
	for _, v := range vars {
		switch v.Sort().Kind() {
		case smt.KindBool, smt.KindBitVec:
		default:
			return errors.Errorf("ic3sa only supports boolean and bit-vector variables (%s is %s)",
				v.Name(), v.Sort().Kind())
		}
	}
	return nil
}

// Initialize collects the term abstraction: every current-state-only
// subterm of init, trans and bad, plus the boolean atoms as predicates.
func (s *SyntaxGuided) Initialize() error {
	e := s.engine
	s.collectFrom(e.sys.Init())
	s.collectFrom(e.sys.Trans())
	s.collectFrom(e.bad)
	s.varsInBad = smt.FreeSymbols(e.bad)

	total := 0
	for _, sort := range s.sortOrder {
		total += len(s.termAbs[sort])
	}
	log.Debugf("ic3sa: term abstraction has %d terms over %d sorts, %d predicates",
		total, len(s.sortOrder), len(s.preds))
	return nil
}

func (s *SyntaxGuided) collectFrom(f *smt.Term) {
	e := s.engine
	smt.CollectSubterms(f, func(t *smt.Term) {
		if s.seen[t.Raw()] || !e.sys.OnlyCurr(t) {
			return
		}
		switch t.Sort().Kind() {
		case smt.KindBool:
			if isPredicate(t) {
				s.seen[t.Raw()] = true
				s.preds = append(s.preds, t)
			}
		case smt.KindBitVec:
			s.seen[t.Raw()] = true
			if len(s.termAbs[t.Sort()]) == 0 {
				s.sortOrder = append(s.sortOrder, t.Sort())
			}
			s.termAbs[t.Sort()] = append(s.termAbs[t.Sort()], t)
		}
	})
}

// UnitFromModel partitions the term pool restricted to the variables of
// bad, expresses the partition as a cube, and shrinks the cube against
// !bad so it still implies bad.
func (s *SyntaxGuided) UnitFromModel(m *smt.Model) (Unit, error) {
	e := s.engine
	lits, err := s.partitionLits(m, s.varsInBad)
	if err != nil {
		return Unit{}, err
	}
	if len(lits) == 0 {
		return s.BitLevel.UnitFromModel(m)
	}
	red, ok, err := e.reducer.reduceAssumpUnsatCore(smartNot(e.bad), lits)
	if err != nil {
		return Unit{}, err
	}
	if !ok {
		red = lits
	}
	cube := e.handler.CreateNegated(red)
	if !e.handler.CheckValid(cube) {
		return Unit{}, errors.New("internal: equivalence cube failed validity check")
	}
	return cube, nil
}

// GeneralizePredecessor narrows the term pool to the cone of influence of
// the target before forming the partition, which shrinks the classes
// considered and hence the resulting cube.
func (s *SyntaxGuided) GeneralizePredecessor(i int, c Unit, m *smt.Model) (Unit, error) {
	e := s.engine
	coi := s.coiStateVars(c.Term)
	lits, err := s.partitionLits(m, coi)
	if err != nil {
		return Unit{}, err
	}
	if len(lits) == 0 {
		return s.BitLevel.GeneralizePredecessor(i, c, m)
	}
	cube := e.handler.CreateNegated(lits)
	if !e.handler.CheckValid(cube) {
		return Unit{}, errors.New("internal: equivalence cube failed validity check")
	}
	return cube, nil
}

// Refine is the counterexample-validation extension point for the
// abstraction; deliberately unimplemented.
func (s *SyntaxGuided) Refine() error {
	return ErrRefineUnsupported
}

// partitionLits builds the cube literals for the current model: predicate
// literals plus the equivalence-class partition, both restricted to terms
// whose free symbols lie in keep.
func (s *SyntaxGuided) partitionLits(m *smt.Model, keep map[smt.RawTerm]*smt.Term) ([]*smt.Term, error) {
	var lits []*smt.Term
	for _, p := range s.preds {
		if !inProjection(p, keep) {
			continue
		}
		val, err := m.Value(p)
		if err != nil {
			return nil, err
		}
		if val.Bool() {
			lits = append(lits, p)
		} else {
			lits = append(lits, smt.Not(p))
		}
	}
	part, err := s.equivClassesFromModel(m, keep)
	if err != nil {
		return nil, err
	}
	part.appendCube(&lits)
	return lits, nil
}

type equivClass struct {
	key     string
	members []*smt.Term
}

type equivPartition struct {
	sorts   []smt.Sort
	classes map[smt.Sort][]*equivClass
}

// equivClassesFromModel partitions the projected term pool per sort by
// evaluated model value.
func (s *SyntaxGuided) equivClassesFromModel(m *smt.Model, keep map[smt.RawTerm]*smt.Term) (*equivPartition, error) {
	part := &equivPartition{classes: make(map[smt.Sort][]*equivClass)}
	for _, sort := range s.sortOrder {
		index := make(map[string]*equivClass)
		for _, t := range s.termAbs[sort] {
			if !inProjection(t, keep) {
				continue
			}
			val, err := m.Value(t)
			if err != nil {
				return nil, err
			}
			cls, ok := index[val.Key()]
			if !ok {
				cls = &equivClass{key: val.Key()}
				index[val.Key()] = cls
				if len(part.classes[sort]) == 0 {
					part.sorts = append(part.sorts, sort)
				}
				part.classes[sort] = append(part.classes[sort], cls)
			}
			cls.members = append(cls.members, t)
		}
	}
	return part, nil
}

// appendCube renders the partition as cube literals: a chain of equalities
// inside each class, and a disequality between one representative per
// class across classes of the same sort.
func (p *equivPartition) appendCube(lits *[]*smt.Term) {
	for _, sort := range p.sorts {
		var reprs []*smt.Term
		for _, cls := range p.classes[sort] {
			for k := 1; k < len(cls.members); k++ {
				*lits = append(*lits, smt.Eq(cls.members[k-1], cls.members[k]))
			}
			reprs = append(reprs, classRepresentative(cls.members))
		}
		for a := 0; a < len(reprs); a++ {
			for b := a + 1; b < len(reprs); b++ {
				*lits = append(*lits, smt.Distinct(reprs[a], reprs[b]))
			}
		}
	}
}

// classRepresentative prefers a symbolic variable, then any compound
// term, and falls back to a constant.
func classRepresentative(members []*smt.Term) *smt.Term {
	repr := members[0]
	foundNonConst := repr.Op() != smt.OpConst
	for _, t := range members[1:] {
		if t.IsSymbol() {
			return t
		}
		if !foundNonConst && t.Op() != smt.OpConst {
			repr = t
			foundNonConst = true
		}
	}
	return repr
}

// coiStateVars computes the state variables the truth of t can depend on
// through the functional state updates.
func (s *SyntaxGuided) coiStateVars(t *smt.Term) map[smt.RawTerm]*smt.Term {
	e := s.engine
	out := make(map[smt.RawTerm]*smt.Term)
	var work []*smt.Term
	add := func(f *smt.Term) {
		for raw, sym := range smt.FreeSymbols(f) {
			if _, ok := out[raw]; ok {
				continue
			}
			if e.sys.IsCurrVar(sym) {
				out[raw] = sym
				work = append(work, sym)
			}
		}
	}
	add(t)
	updates := e.sys.StateUpdates()
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		if up, ok := updates[v.Raw()]; ok {
			add(up)
		}
	}
	return out
}

func inProjection(t *smt.Term, keep map[smt.RawTerm]*smt.Term) bool {
	for raw := range smt.FreeSymbols(t) {
		if _, ok := keep[raw]; !ok {
			return false
		}
	}
	return true
}

func isPredicate(t *smt.Term) bool {
	switch t.Op() {
	case smt.OpSymbol, smt.OpEq, smt.OpDistinct, smt.OpBVUlt, smt.OpBVUle:
		return true
	}
	return false
}
