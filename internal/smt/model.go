package smt

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Model is a satisfying assignment snapshot. It stays valid after the
// originating context is popped.
type Model struct {
	raw *yices2.ModelT
}

func (m *Model) Close() {
	if m.raw != nil {
		yices2.CloseModel(m.raw)
		m.raw = nil
	}
}

// Value is a concrete model value, usable both as a partition key and as a
// constant literal via Term.
type Value struct {
	sort Sort
	b    bool
	i    int64
	bits []int32 // little-endian, bit-vectors only
}

// Value evaluates a term in the model. Only bool, bit-vector and integer
// terms have extractable values.
func (m *Model) Value(t *Term) (Value, error) {
	switch t.Sort().Kind() {
	case KindBool:
		var v int32
		if code := yices2.GetBoolValue(*m.raw, t.Raw(), &v); code != 0 {
			return Value{}, errors.Errorf("get bool value: %s", yices2.ErrorString())
		}
		return Value{sort: t.Sort(), b: v != 0}, nil
	case KindBitVec:
		bits := make([]int32, t.Sort().Width())
		if code := yices2.GetBvValue(*m.raw, t.Raw(), bits); code != 0 {
			return Value{}, errors.Errorf("get bv value: %s", yices2.ErrorString())
		}
		return Value{sort: t.Sort(), bits: bits}, nil
	case KindInt:
		var v int64
		if code := yices2.GetInt64Value(*m.raw, t.Raw(), &v); code != 0 {
			return Value{}, errors.Errorf("get int value: %s", yices2.ErrorString())
		}
		return Value{sort: t.Sort(), i: v}, nil
	}
	return Value{}, errors.Errorf("no value extraction for sort %s", t.Sort().Kind())
}

func (v Value) Sort() Sort  { return v.sort }
func (v Value) Bool() bool  { return v.b }
func (v Value) Int64() int64 { return v.i }

func (v Value) BigInt() *big.Int {
	result := big.NewInt(0)
	for i := 0; i < len(v.bits); i++ {
		result.SetBit(result, i, uint(v.bits[i]))
	}
	return result
}

// Key is a stable string encoding, used to group terms that evaluate
// identically.
func (v Value) Key() string {
	switch v.sort.Kind() {
	case KindBool:
		if v.b {
			return "b1"
		}
		return "b0"
	case KindBitVec:
		var sb strings.Builder
		sb.WriteString("v")
		for _, bit := range v.bits {
			if bit != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		return sb.String()
	}
	return fmt.Sprintf("i%d", v.i)
}

// Term rebuilds the value as a constant term of the value's sort.
func (v Value) Term() *Term {
	switch v.sort.Kind() {
	case KindBool:
		return BoolConst(v.b)
	case KindBitVec:
		return BVConstFromBits(v.bits)
	}
	return IntConst(v.i)
}

func (v Value) String() string {
	switch v.sort.Kind() {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindBitVec:
		return v.BigInt().String()
	}
	return fmt.Sprintf("%d", v.i)
}
