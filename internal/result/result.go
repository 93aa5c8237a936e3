// Package result holds prover verdicts and counterexample traces.
package result

import (
	"fmt"
	"sort"
	"strings"

	"github.com/log-when/pono/internal/smt"
)

type Result int

const (
	Unknown Result = iota
	Holds
	Violated
)

func (r Result) String() string {
	switch r {
	case Holds:
		return "holds"
	case Violated:
		return "violated"
	}
	return "unknown"
}

// Assignment maps variable names to their concrete values at one step.
type Assignment map[string]smt.Value

// Trace is a counterexample witness: one assignment per state, from an
// initial state to a bad state.
type Trace []Assignment

func (tr Trace) String() string {
	var sb strings.Builder
	sb.WriteString(Colour(31, fmt.Sprintf("property violated, trace of %d states\n", len(tr))))
	for t, step := range tr {
		names := make([]string, 0, len(step))
		for name := range step {
			names = append(names, name)
		}
		sort.Strings(names)
		var parts []string
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, step[name]))
		}
		sb.WriteString(Colour(33, fmt.Sprintf("  step %d: %s\n", t, strings.Join(parts, " "))))
	}
	return sb.String()
}

func Colour(color int, str string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}
