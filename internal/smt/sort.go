package smt

import (
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// RawTerm and RawType alias the underlying yices handles so that packages
// above this one never import the bindings directly.
type RawTerm = yices2.TermT
type RawType = yices2.TypeT

type SortKind int

const (
	KindBool SortKind = iota
	KindBitVec
	KindInt
	KindArray
)

// Sort is a value type usable as a map key. The raw yices type is
// hash-consed by the backend, so equal sorts compare equal.
type Sort struct {
	raw   RawType
	kind  SortKind
	width uint32 // bit-vector width

	// array sorts only
	idxWidth  uint32
	elemWidth uint32
}

func BoolSort() Sort {
	return Sort{raw: yices2.BoolType(), kind: KindBool}
}

func BitVecSort(width uint32) Sort {
	return Sort{raw: yices2.BvType(width), kind: KindBitVec, width: width}
}

func IntSort() Sort {
	return Sort{raw: yices2.IntType(), kind: KindInt}
}

// ArraySort is encoded as a yices function from index bit-vectors to
// element bit-vectors.
func ArraySort(idxWidth, elemWidth uint32) Sort {
	raw := yices2.FunctionType1(yices2.BvType(idxWidth), yices2.BvType(elemWidth))
	return Sort{
		raw:       raw,
		kind:      KindArray,
		idxWidth:  idxWidth,
		elemWidth: elemWidth,
	}
}

func (s Sort) Raw() RawType    { return s.raw }
func (s Sort) Kind() SortKind  { return s.kind }
func (s Sort) Width() uint32   { return s.width }
func (s Sort) ElemSort() Sort  { return BitVecSort(s.elemWidth) }
func (s Sort) IndexSort() Sort { return BitVecSort(s.idxWidth) }

func (k SortKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindBitVec:
		return "bitvec"
	case KindInt:
		return "int"
	case KindArray:
		return "array"
	}
	return "unknown"
}
