package smt

// CollectSubterms visits every distinct subterm of t exactly once,
// children before parents.
func CollectSubterms(t *Term, visit func(*Term)) {
	seen := make(map[RawTerm]bool)
	var walk func(*Term)
	walk = func(cur *Term) {
		if seen[cur.raw] {
			return
		}
		seen[cur.raw] = true
		for _, a := range cur.args {
			walk(a)
		}
		visit(cur)
	}
	walk(t)
}

// FreeSymbols returns the uninterpreted symbols occurring in t, keyed by
// their raw handle.
func FreeSymbols(t *Term) map[RawTerm]*Term {
	out := make(map[RawTerm]*Term)
	CollectSubterms(t, func(sub *Term) {
		if sub.IsSymbol() {
			out[sub.raw] = sub
		}
	})
	return out
}

// Substitute replaces symbols of t according to sub, rebuilding only the
// spine that actually changes.
func Substitute(t *Term, sub map[RawTerm]*Term) (*Term, error) {
	cache := make(map[RawTerm]*Term)
	var walk func(*Term) (*Term, error)
	walk = func(cur *Term) (*Term, error) {
		if r, ok := sub[cur.raw]; ok {
			return r, nil
		}
		if r, ok := cache[cur.raw]; ok {
			return r, nil
		}
		if len(cur.args) == 0 {
			return cur, nil
		}
		changed := false
		newArgs := make([]*Term, len(cur.args))
		for i, a := range cur.args {
			na, err := walk(a)
			if err != nil {
				return nil, err
			}
			newArgs[i] = na
			if na != a {
				changed = true
			}
		}
		if !changed {
			cache[cur.raw] = cur
			return cur, nil
		}
		r, err := apply(cur.op, newArgs, cur)
		if err != nil {
			return nil, err
		}
		cache[cur.raw] = r
		return r, nil
	}
	return walk(t)
}
