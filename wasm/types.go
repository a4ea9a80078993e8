// Package wasm holds the small set of WebAssembly value-type and option
// primitives that the rest of cw2wasm is built against. The binary/textual
// encoding of these types is the module writer's concern, not ours.
package wasm

import "fmt"

// ValueType is a concrete WebAssembly value type.
type ValueType int8

const (
	// Empty marks the absence of a value, used for a void parameter or
	// return slot parsed out of a JVM signature.
	Empty ValueType = iota
	I32
	I64
	F32
	F64
	// Eqref and Anyref are reference types used by struct/array GC
	// operations; they are opaque to the core pipeline beyond naming.
	Eqref
	Anyref
)

func (t ValueType) String() string {
	switch t {
	case Empty:
		return "empty"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Eqref:
		return "eqref"
	case Anyref:
		return "anyref"
	default:
		return fmt.Sprintf("valuetype(%d)", int8(t))
	}
}

// AnyType is implemented by ValueType and by StructType references (see
// package types), so a single parameter/result slot can be either a
// primitive value type or a reference to a struct layout.
type AnyType interface {
	String() string
}

// NamedStorageType is one field of a struct layout: a name plus the type
// stored in that slot. The synthetic v-table field uses this too.
type NamedStorageType struct {
	Name string
	Type AnyType
}

// Options exposes the compiler-wide feature toggles the emitter consults
// when deciding whether to stream exception-handling or GC-only
// instructions. It mirrors the "options" collaborator named in spec.md §6.
type Options interface {
	UseEH() bool
	UseGC() bool
}

// StaticOptions is the concrete Options implementation built from the
// project manifest (see package config).
type StaticOptions struct {
	EH bool
	GC bool
}

func (o StaticOptions) UseEH() bool { return o.EH }
func (o StaticOptions) UseGC() bool { return o.GC }
