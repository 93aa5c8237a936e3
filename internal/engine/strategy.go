package engine

import (
	"github.com/log-when/pono/internal/smt"
)

// Strategy is the pluggable part of the engine: the unit flavor's model
// extraction and the generalization policy. A strategy is bound to exactly
// one engine at construction time; flavors never change at runtime.
type Strategy interface {
	Name() string

	// attach wires the strategy to its engine before Initialize runs.
	attach(e *Engine)

	// CheckTS rejects transition systems using theories or variable kinds
	// this flavor cannot reason about. Called once, at initialization.
	CheckTS() error

	// Initialize runs flavor-specific setup after the engine's frames and
	// labels exist.
	Initialize() error

	// UnitFromModel builds a cube over current state variables from a
	// satisfying model.
	UnitFromModel(m *smt.Model) (Unit, error)

	// InductiveGeneralization turns a blocked cube into one or more units
	// at least as strong, such that F[i-1] /\ T /\ !(gen) /\ c' stays
	// unsatisfiable.
	InductiveGeneralization(i int, c Unit) ([]Unit, error)

	// GeneralizePredecessor shrinks a found predecessor cube while it
	// still implies F[i-1] and still has a transition into c.
	GeneralizePredecessor(i int, c Unit, m *smt.Model) (Unit, error)

	// Refine validates an abstract counterexample where the flavor uses an
	// abstraction. Flavors without one return nil.
	Refine() error
}
