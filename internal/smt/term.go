package smt

import (
	"github.com/pkg/errors"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Op int

const (
	OpSymbol Op = iota
	OpConst
	OpNot
	OpAnd
	OpOr
	OpImplies
	OpEq
	OpDistinct
	OpIte
	OpBVAdd
	OpBVSub
	OpBVMul
	OpBVUlt
	OpBVUle
	OpIntAdd
	OpIntSub
	OpIntMul
	OpIntLt
	OpIntLe
	OpSelect
	OpStore
)

// Term wraps a raw yices term together with the operator and children it
// was built from. Keeping the structure on our side lets the engine walk,
// substitute and collect subterms without backend introspection, the same
// way the raw terms are wrapped with metadata elsewhere in this codebase.
type Term struct {
	raw  RawTerm
	op   Op
	args []*Term
	sort Sort
	name string // symbols only
}

// termCache interns terms by their raw handle. Yices hash-conses terms, so
// structurally equal builds map to the same handle and thus the same *Term.
var termCache map[RawTerm]*Term

// Init initializes the yices runtime and the term intern table. Must be
// called before any term construction; paired with Exit.
func Init() {
	yices2.Init()
	termCache = make(map[RawTerm]*Term)
}

func Exit() {
	termCache = nil
	yices2.Exit()
}

func intern(raw RawTerm, op Op, args []*Term, sort Sort, name string) *Term {
	if t, ok := termCache[raw]; ok {
		return t
	}
	t := &Term{raw: raw, op: op, args: args, sort: sort, name: name}
	termCache[raw] = t
	return t
}

func (t *Term) Raw() RawTerm   { return t.raw }
func (t *Term) Op() Op         { return t.op }
func (t *Term) Args() []*Term  { return t.args }
func (t *Term) Arg(i int) *Term { return t.args[i] }
func (t *Term) Sort() Sort     { return t.sort }
func (t *Term) Name() string   { return t.name }

func (t *Term) IsSymbol() bool { return t.op == OpSymbol }
func (t *Term) IsConst() bool  { return t.op == OpConst }

func (t *Term) String() string {
	return yices2.TermToString(t.raw, 200, 1, 0)
}

// NewSymbol creates a fresh uninterpreted symbol of the given sort.
func NewSymbol(name string, sort Sort) *Term {
	raw := yices2.NewUninterpretedTerm(sort.Raw())
	if name != "" {
		yices2.SetTermName(raw, name)
	}
	return intern(raw, OpSymbol, nil, sort, name)
}

func True() *Term {
	return intern(yices2.True(), OpConst, nil, BoolSort(), "")
}

func False() *Term {
	return intern(yices2.False(), OpConst, nil, BoolSort(), "")
}

func BoolConst(v bool) *Term {
	if v {
		return True()
	}
	return False()
}

func BVConst(value int64, width uint32) *Term {
	raw := yices2.BvconstInt64(width, value)
	return intern(raw, OpConst, nil, BitVecSort(width), "")
}

// BVConstFromBits builds a bit-vector constant from little-endian bits.
func BVConstFromBits(bits []int32) *Term {
	raw := yices2.BvconstFromArray(bits)
	return intern(raw, OpConst, nil, BitVecSort(uint32(len(bits))), "")
}

func IntConst(value int64) *Term {
	raw := yices2.Int64(value)
	return intern(raw, OpConst, nil, IntSort(), "")
}

func Not(t *Term) *Term {
	return intern(yices2.Not(t.raw), OpNot, []*Term{t}, BoolSort(), "")
}

func And(ts ...*Term) *Term {
	switch len(ts) {
	case 0:
		return True()
	case 1:
		return ts[0]
	}
	raw := yices2.And(rawTerms(ts))
	return intern(raw, OpAnd, append([]*Term(nil), ts...), BoolSort(), "")
}

func Or(ts ...*Term) *Term {
	switch len(ts) {
	case 0:
		return False()
	case 1:
		return ts[0]
	}
	raw := yices2.Or(rawTerms(ts))
	return intern(raw, OpOr, append([]*Term(nil), ts...), BoolSort(), "")
}

func Implies(a, b *Term) *Term {
	return intern(yices2.Implies(a.raw, b.raw), OpImplies, []*Term{a, b}, BoolSort(), "")
}

func Eq(a, b *Term) *Term {
	return intern(yices2.Eq(a.raw, b.raw), OpEq, []*Term{a, b}, BoolSort(), "")
}

func Distinct(a, b *Term) *Term {
	return intern(yices2.Neq(a.raw, b.raw), OpDistinct, []*Term{a, b}, BoolSort(), "")
}

func Ite(cond, then, els *Term) *Term {
	return intern(yices2.Ite(cond.raw, then.raw, els.raw), OpIte, []*Term{cond, then, els}, then.sort, "")
}

func BVAdd(a, b *Term) *Term {
	return intern(yices2.Bvadd(a.raw, b.raw), OpBVAdd, []*Term{a, b}, a.sort, "")
}

func BVSub(a, b *Term) *Term {
	return intern(yices2.Bvsub(a.raw, b.raw), OpBVSub, []*Term{a, b}, a.sort, "")
}

func BVMul(a, b *Term) *Term {
	return intern(yices2.Bvmul(a.raw, b.raw), OpBVMul, []*Term{a, b}, a.sort, "")
}

func BVUlt(a, b *Term) *Term {
	return intern(yices2.BvltAtom(a.raw, b.raw), OpBVUlt, []*Term{a, b}, BoolSort(), "")
}

func BVUle(a, b *Term) *Term {
	return intern(yices2.BvleAtom(a.raw, b.raw), OpBVUle, []*Term{a, b}, BoolSort(), "")
}

func IntAdd(a, b *Term) *Term {
	return intern(yices2.Add(a.raw, b.raw), OpIntAdd, []*Term{a, b}, IntSort(), "")
}

func IntSub(a, b *Term) *Term {
	return intern(yices2.Sub(a.raw, b.raw), OpIntSub, []*Term{a, b}, IntSort(), "")
}

func IntMul(a, b *Term) *Term {
	return intern(yices2.Mul(a.raw, b.raw), OpIntMul, []*Term{a, b}, IntSort(), "")
}

func IntLt(a, b *Term) *Term {
	return intern(yices2.ArithLtAtom(a.raw, b.raw), OpIntLt, []*Term{a, b}, BoolSort(), "")
}

func IntLe(a, b *Term) *Term {
	return intern(yices2.ArithLeqAtom(a.raw, b.raw), OpIntLe, []*Term{a, b}, BoolSort(), "")
}

// Select reads an array at an index. Arrays are yices functions, so a read
// is a function application.
func Select(arr, idx *Term) *Term {
	raw := yices2.Application1(arr.raw, idx.raw)
	return intern(raw, OpSelect, []*Term{arr, idx}, arr.sort.ElemSort(), "")
}

func Store(arr, idx, value *Term) *Term {
	raw := yices2.Update1(arr.raw, idx.raw, value.raw)
	return intern(raw, OpStore, []*Term{arr, idx, value}, arr.sort, "")
}

func rawTerms(ts []*Term) []RawTerm {
	raw := make([]RawTerm, len(ts))
	for i := range ts {
		raw[i] = ts[i].raw
	}
	return raw
}

// apply rebuilds a term with new children, used by substitution.
func apply(op Op, args []*Term, orig *Term) (*Term, error) {
	switch op {
	case OpSymbol, OpConst:
		return orig, nil
	case OpNot:
		return Not(args[0]), nil
	case OpAnd:
		return And(args...), nil
	case OpOr:
		return Or(args...), nil
	case OpImplies:
		return Implies(args[0], args[1]), nil
	case OpEq:
		return Eq(args[0], args[1]), nil
	case OpDistinct:
		return Distinct(args[0], args[1]), nil
	case OpIte:
		return Ite(args[0], args[1], args[2]), nil
	case OpBVAdd:
		return BVAdd(args[0], args[1]), nil
	case OpBVSub:
		return BVSub(args[0], args[1]), nil
	case OpBVMul:
		return BVMul(args[0], args[1]), nil
	case OpBVUlt:
		return BVUlt(args[0], args[1]), nil
	case OpBVUle:
		return BVUle(args[0], args[1]), nil
	case OpIntAdd:
		return IntAdd(args[0], args[1]), nil
	case OpIntSub:
		return IntSub(args[0], args[1]), nil
	case OpIntMul:
		return IntMul(args[0], args[1]), nil
	case OpIntLt:
		return IntLt(args[0], args[1]), nil
	case OpIntLe:
		return IntLe(args[0], args[1]), nil
	case OpSelect:
		return Select(args[0], args[1]), nil
	case OpStore:
		return Store(args[0], args[1], args[2]), nil
	}
	return nil, errors.Errorf("apply: unknown operator %d", op)
}
