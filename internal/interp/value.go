// Package interp implements the Ourocode executor: it loads immutable IR
// modules and interprets their control-flow graphs under instruction, time
// and memory ceilings. Each Execute call owns its environment, so one
// Executor may serve concurrent callers over shared modules.
package interp

import (
	"strconv"
	"strings"

	"github.com/ourocode-lang/ourocode/internal/ir"
)

// ValueKind classifies a runtime value.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindStruct
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// Value is a runtime value: a number, a boolean, or a struct represented as
// an ordered field tuple. Struct values are copied on insert, never mutated.
type Value struct {
	Kind   ValueKind
	Num    float64
	Bool   bool
	Fields []float64
}

// Number wraps a numeric value.
func Number(v float64) Value {
	return Value{Kind: KindNumber, Num: v}
}

// Boolean wraps a boolean value.
func Boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// State builds a standard ecosystem state value with the fixed field order
// population, energy, mutationRate.
func State(population, energy, mutationRate float64) Value {
	return Value{Kind: KindStruct, Fields: []float64{population, energy, mutationRate}}
}

// Field returns the i'th struct field.
func (v Value) Field(i int) (float64, bool) {
	if v.Kind != KindStruct || i < 0 || i >= len(v.Fields) {
		return 0, false
	}
	return v.Fields[i], true
}

// Population returns field 0 of a state value.
func (v Value) Population() float64 { f, _ := v.Field(0); return f }

// Energy returns field 1 of a state value.
func (v Value) Energy() float64 { f, _ := v.Field(1); return f }

// MutationRate returns field 2 of a state value.
func (v Value) MutationRate() float64 { f, _ := v.Field(2); return f }

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindStruct:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}

// approximate heap footprint of a binding, for the advisory memory ceiling.
func (v Value) size() int64 {
	if v.Kind == KindStruct {
		return 24 + 8*int64(len(v.Fields))
	}
	return 16
}

// matchesType reports whether the value fits a declared parameter type.
func (v Value) matchesType(m *ir.Module, typeName string) bool {
	switch typeName {
	case "f64", "i32":
		return v.Kind == KindNumber
	case "bool":
		return v.Kind == KindBool
	}
	desc, ok := m.Type(typeName)
	if !ok || desc.Kind != ir.TypeStruct {
		return false
	}
	return v.Kind == KindStruct && len(v.Fields) == len(desc.Fields)
}
