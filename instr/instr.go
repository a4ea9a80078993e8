// Package instr models the already-lowered instruction stream a method
// body carries by the time it reaches the module generator: translating
// raw JVM bytecode into this form is the external CodeBuilder
// collaborator's job (spec.md §1); this package only defines the shapes
// that collaborator hands back, and the operations the generator itself
// must lower during emission (struct construction, exception blocks,
// virtual/interface calls).
//
// Grounded on pkg/bytecode/opcodes.go's banner-commented opcode ranges
// (category grouped, one const block per concern) and vm/interpreter.go's
// switch-dispatch style for how a flat instruction stream is walked.
package instr

import "github.com/inetmodule/cw2wasm/wasm"

// Type identifies the concrete shape of a WasmInstruction without a type
// switch on every consumer; spec.md §4.7 calls out virtual/interface
// calls and struct construction as the cases the generator must inspect.
type Type int8

const (
	// ------------------------------------------------------------------
	// Calls (mirrors the JWebAssembly reference's three call shapes)
	// ------------------------------------------------------------------
	Call          Type = iota // direct call to a known function
	CallVirtual               // dispatch through a class's v-table slot
	CallInterface             // dispatch through an interface method — unsupported

	// ------------------------------------------------------------------
	// Structured control flow
	// ------------------------------------------------------------------
	Block

	// ------------------------------------------------------------------
	// GC struct operations
	// ------------------------------------------------------------------
	Struct

	// ------------------------------------------------------------------
	// Everything else the generator passes through untouched
	// ------------------------------------------------------------------
	Const
	Local
	Global
	Numeric
	Other
)

// WasmInstruction is one element of a method's lowered instruction
// stream. Kind lets the generator's emit loop fast-path the handful of
// instructions it must inspect (calls, struct construction, blocks)
// without a full type switch on every other passthrough instruction.
type WasmInstruction interface {
	Kind() Type
	LineNumber() int
}

// base carries the one field every instruction needs for spec.md §4.5's
// source-line tracking.
type base struct {
	Line int
}

func (b base) LineNumber() int { return b.Line }

// WasmCallInstruction is a direct call to a statically known function.
type WasmCallInstruction struct {
	base
	Name string // fn.FunctionName.SignatureName()
}

func (WasmCallInstruction) Kind() Type { return Call }

// WasmCallVirtualInstruction dispatches through the callee class's
// v-table, resolved against the global slot assigned by the type manager
// (spec.md §4.3/§4.7).
type WasmCallVirtualInstruction struct {
	base
	ClassName  string // statically known receiver type at the call site
	MethodName string
	Signature  string
}

func (WasmCallVirtualInstruction) Kind() Type { return CallVirtual }

// WasmCallInterfaceInstruction dispatches through an interface method.
// The reference implementation this module is ported from never lowers
// this case (no itable construction), and neither does this one —
// emission must always fail with wasmerr.UnsupportedConstruct regardless
// of future temptation to "just implement it"; see DESIGN.md's Open
// Question decision.
type WasmCallInterfaceInstruction struct {
	base
	InterfaceName string
	MethodName    string
	Signature     string
}

func (WasmCallInterfaceInstruction) Kind() Type { return CallInterface }

// BlockOperation is the structured-control-flow or exception-handling
// operator a WasmBlockInstruction carries.
type BlockOperation int8

const (
	BlockStart BlockOperation = iota
	BlockEnd
	Loop
	If
	Else
	Try
	Catch
	Rethrow
	Throw
	Br
	BrIf
)

// WasmBlockInstruction is a structured control-flow marker. Try/Catch/
// Rethrow/Throw are only meaningful when the compiler option enabling
// exception handling is set (spec.md §4.5): with it, the generator emits
// a WriteException marker before each of them; without it, it passes
// them to the writer with nothing added.
type WasmBlockInstruction struct {
	base
	Operation BlockOperation
	Label     int
}

func (WasmBlockInstruction) Kind() Type { return Block }

// StructOperator is the GC struct operation a WasmStructInstruction
// performs.
type StructOperator int8

const (
	StructNew StructOperator = iota
	StructNewDefault
	StructGet
	StructSet
)

// WasmStructInstruction constructs or accesses a GC struct. NewDefault
// is the case the generator must fix up during emission under GC: the
// class's VTABLE field (spec.md §4.3) has no source-level initializer,
// so the generator writes one constant per field (the class index for
// the VTABLE field, a default for the rest) ahead of the allocation and
// emits it as a struct.new that consumes them (spec.md §4.5's "GC
// struct-construction fix-up").
type WasmStructInstruction struct {
	base
	Operator  StructOperator
	ClassName string
	FieldName string
}

func (WasmStructInstruction) Kind() Type { return Struct }

// WasmConstInstruction pushes a constant of the given WebAssembly value
// type.
type WasmConstInstruction struct {
	base
	ValueType wasm.ValueType
	Value     any
}

func (WasmConstInstruction) Kind() Type { return Const }

// WasmLocalInstruction is a local.get/local.set/local.tee.
type WasmLocalInstruction struct {
	base
	Index int
	Store bool
	Tee   bool
}

func (WasmLocalInstruction) Kind() Type { return Local }

// WasmGlobalInstruction is a global.get/global.set.
type WasmGlobalInstruction struct {
	base
	Index int
	Store bool
}

func (WasmGlobalInstruction) Kind() Type { return Global }

// WasmNumericInstruction is a plain arithmetic/comparison/conversion
// opcode the generator passes straight through to the writer without
// inspecting its operands. Opcode is the WAT mnemonic, e.g. "i32.add".
type WasmNumericInstruction struct {
	base
	Opcode string
}

func (WasmNumericInstruction) Kind() Type { return Numeric }

// WasmOtherInstruction is the catch-all for anything else the external
// CodeBuilder produced that the generator never needs to inspect — drop,
// select, memory ops, and so on. Opcode is kept for the writer/optimizer.
type WasmOtherInstruction struct {
	base
	Opcode string
}

func (WasmOtherInstruction) Kind() Type { return Other }

// CodeBuilder is the minimal view of a method body the generator needs:
// the already-lowered instruction stream, the declared-local layout, and
// the name a local carries for debug output. Building a CodeBuilder from
// raw class-file bytecode is the external collaborator's job (spec.md
// §1); the watparser package's test double and any production
// bytecode-to-instr translator both only need to satisfy this.
type CodeBuilder interface {
	GetInstructions() []WasmInstruction
	GetLocalName(index int) string
	GetLocalTypes(paramCount int) []wasm.AnyType
}
