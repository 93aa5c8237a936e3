package smt

import (
	"github.com/pkg/errors"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Result int

const (
	Unsat Result = iota
	Sat
	Unknown
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Solver wraps a yices context configured for incremental (push-pop) use.
// All mutation of the context goes through this type; scoping discipline is
// the caller's responsibility.
type Solver struct {
	ctx  yices2.ContextT
	core []RawTerm // unsat core of the last assumption check
}

func NewSolver() *Solver {
	var cfg yices2.ConfigT
	yices2.InitConfig(&cfg)
	yices2.SetConfig(cfg, "mode", "push-pop")
	s := &Solver{}
	yices2.InitContext(cfg, &s.ctx)
	yices2.CloseConfig(&cfg)
	return s
}

func (s *Solver) Close() {
	yices2.CloseContext(&s.ctx)
}

func (s *Solver) Assert(t *Term) error {
	if code := yices2.AssertFormula(s.ctx, t.Raw()); code < 0 {
		return errors.Errorf("assert: %s", yices2.ErrorString())
	}
	return nil
}

func (s *Solver) Push() error {
	if code := yices2.Push(s.ctx); code < 0 {
		return errors.Errorf("push: %s", yices2.ErrorString())
	}
	return nil
}

func (s *Solver) Pop() error {
	if code := yices2.Pop(s.ctx); code < 0 {
		return errors.Errorf("pop: %s", yices2.ErrorString())
	}
	return nil
}

func (s *Solver) CheckSat() (Result, error) {
	return s.status(yices2.CheckContext(s.ctx, yices2.ParamT{}))
}

// CheckSatAssuming checks satisfiability under the given assumption
// literals. On unsat the core is available through UnsatCore until the next
// assumption check.
func (s *Solver) CheckSatAssuming(assumps []*Term) (Result, error) {
	s.core = nil
	status := yices2.CheckContextWithAssumptions(s.ctx, yices2.ParamT{}, rawTerms(assumps))
	r, err := s.status(status)
	if err != nil {
		return r, err
	}
	if r == Unsat {
		s.core = yices2.GetUnsatCore(s.ctx)
	}
	return r, nil
}

// UnsatCore returns the assumption literals of the last unsat
// CheckSatAssuming, keyed by raw handle.
func (s *Solver) UnsatCore() map[RawTerm]bool {
	out := make(map[RawTerm]bool, len(s.core))
	for _, t := range s.core {
		out[t] = true
	}
	return out
}

func (s *Solver) Model() (*Model, error) {
	m := yices2.GetModel(s.ctx, 1)
	if m == nil {
		return nil, errors.Errorf("get model: %s", yices2.ErrorString())
	}
	return &Model{raw: m}, nil
}

func (s *Solver) status(status yices2.SmtStatusT) (Result, error) {
	switch status {
	case yices2.StatusSat:
		return Sat, nil
	case yices2.StatusUnsat:
		return Unsat, nil
	case yices2.StatusError:
		return Unknown, errors.Errorf("check: %s", yices2.ErrorString())
	}
	return Unknown, nil
}
