package engine

// proofGoal says "target must not be reachable at depth idx". next points
// to the goal this one was derived from; following next from a goal at
// depth 0 walks the counterexample trace back out to the bad state.
type proofGoal struct {
	target Unit
	idx    int
	next   *proofGoal
}

// goalQueue is the set of outstanding proof obligations. Goals are always
// taken lowest frame index first; this ordering is what guarantees
// monotone progress toward the frontier and shortest counterexamples.
type goalQueue struct {
	goals []*proofGoal
}

func (q *goalQueue) push(pg *proofGoal) {
	q.goals = append(q.goals, pg)
}

func (q *goalQueue) empty() bool {
	return len(q.goals) == 0
}

func (q *goalQueue) size() int {
	return len(q.goals)
}

// popMin removes and returns the goal with the smallest frame index,
// FIFO among equals.
func (q *goalQueue) popMin() *proofGoal {
	best := 0
	for i := 1; i < len(q.goals); i++ {
		if q.goals[i].idx < q.goals[best].idx {
			best = i
		}
	}
	pg := q.goals[best]
	q.goals = append(q.goals[:best], q.goals[best+1:]...)
	return pg
}

func (q *goalQueue) clear() {
	q.goals = nil
}
