// Package strings is the StringManager described in spec.md §3: it
// interns the string literals its callers hand to Intern, registers the
// synthetic accessor functions it needs up front, and at finalization
// emits the backing data segment (the accessors themselves are emitted
// through the normal function pipeline).
//
// Grounded on vm/content_store.go's content-addressed map (first write
// under a key wins, lookup is a plain map read) — strings intern the
// same way compiled methods are indexed there, just keyed by literal
// value instead of a SHA-256 digest.
package strings

import "github.com/inetmodule/cw2wasm/fn"

const (
	// lengthFnName and charAtFnName are the synthetic accessors Init
	// registers for every compilation, whether or not any literal is
	// interned — the same two the reference implementation's runtime support class
	// exposes for java/lang/String. Both take the string's data-segment
	// offset as an explicit leading i32 parameter rather than an
	// implicit "this": these read raw linear memory, not a GC struct
	// field, so the usual NeedsThis/struct-ref receiver does not apply.
	lengthFnName = "java/lang/String.length(I)I"
	charAtFnName = "java/lang/String.charAt(II)C"
)

// Functions is the subset of FunctionManager StringManager needs:
// registering its synthetic accessors. Declared locally so this package
// does not need to import fn's consumer-facing surface beyond
// FunctionName/SyntheticFunctionName, and never imports classfile.
type Functions interface {
	RegisterSynthetic(fn.SyntheticFunctionName)
}

// Writer is the subset of ModuleWriter finalization needs: emitting the
// backing data segment for every interned literal.
type Writer interface {
	WriteStringData(offset int, value string) error
}

// entry is one interned literal: its assigned byte offset into the data
// segment and its value.
type entry struct {
	offset int
	value  string
}

// StringManager interns string literals and owns the data segment they
// are emitted into.
type StringManager struct {
	functions Functions

	byValue map[string]*entry
	order   []*entry
	nextOff int

	initialized bool
}

// NewStringManager returns an empty manager. Init must be called before
// Intern is used, so the synthetic accessors are registered exactly
// once regardless of how many literals the compilation touches.
func NewStringManager() *StringManager {
	return &StringManager{byValue: make(map[string]*entry)}
}

// Init registers the synthetic functions every string-bearing
// compilation needs, per spec.md §3 "registers synthetic functions it
// needs from FunctionManager at init". Idempotent.
func (sm *StringManager) Init(functions Functions) {
	sm.functions = functions
	if sm.initialized {
		return
	}
	sm.initialized = true
	// Bodies are flat instruction sequences, not folded func forms —
	// watparser only understands "( opcode operands… )" atoms, and the
	// leading (I) parameter in each signature above already supplies the
	// offset local these read from.
	functions.RegisterSynthetic(fn.NewSyntheticCode(
		fn.FromSignatureName(lengthFnName),
		"(local.get 0) (i32.load)",
	))
	functions.RegisterSynthetic(fn.NewSyntheticCode(
		fn.FromSignatureName(charAtFnName),
		"(local.get 0) (local.get 1) (i32.add) (i32.load8_u)",
	))
}

// Intern returns the byte offset assigned to value's UTF-8 bytes in the
// eventual data segment, registering it on first use. Idempotent per
// distinct value.
func (sm *StringManager) Intern(value string) int {
	if e, ok := sm.byValue[value]; ok {
		return e.offset
	}
	e := &entry{offset: sm.nextOff, value: value}
	sm.byValue[value] = e
	sm.order = append(sm.order, e)
	sm.nextOff += len(value)
	return e.offset
}

// Offset returns the offset assigned to value, or -1 if it was never
// interned.
func (sm *StringManager) Offset(value string) int {
	if e, ok := sm.byValue[value]; ok {
		return e.offset
	}
	return -1
}

// PrepareFinish emits the data segment for every interned literal, in
// intern order, via the writer. The accessor functions themselves flow
// through the normal Needed/Scanned/Written pipeline as synthetic
// functions, so this only has to write the backing bytes.
func (sm *StringManager) PrepareFinish(w Writer) error {
	for _, e := range sm.order {
		if err := w.WriteStringData(e.offset, e.value); err != nil {
			return err
		}
	}
	return nil
}
