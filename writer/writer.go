// Package writer defines the ModuleWriter contract the generator emits
// through (spec.md §6) and a deterministic textual implementation used
// by tests and the lsp/cli drivers when no other backend is configured.
//
// Grounded on vm/image_writer.go's phase-based lifecycle (pre-register
// everything, then write sections in a fixed order, back-patching a
// header at the end) and mpoindexter-wacogo__wat.go's parenthesized,
// indentation-by-nesting-level textual rendering.
package writer

import (
	"bytes"
	"fmt"

	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/types"
	"github.com/inetmodule/cw2wasm/wasm"
)

// ModuleWriter is the emission sink the generator drives (spec.md §6).
// It also covers the surfaces types.Writer (WriteVTable) and
// strings.Writer (WriteStringData) need, so any concrete writer must
// provide those too.
type ModuleWriter interface {
	PrepareImport(name fn.FunctionName, annotation map[string]any) error

	WriteMethodStart(name fn.FunctionName, sourceFile string) error
	WriteMethodParamStart(name fn.FunctionName) error
	WriteMethodParam(paramName string, t wasm.AnyType) error
	WriteMethodResult(t wasm.AnyType) error
	WriteMethodParamFinish(name fn.FunctionName) error
	WriteLocal(localName string, t wasm.AnyType) error
	WriteMethodFinish(name fn.FunctionName) error

	WriteExport(name fn.FunctionName, exportName string) error
	WriteConst(t wasm.ValueType, value any) error
	WriteDefaultValue(t wasm.AnyType) error
	WriteException() error
	MarkSourceLine(line int) error

	WriteCall(name fn.FunctionName) error
	WriteCallIndirect(slot int, receiverClass string) error
	WriteUnsupported(detail string) error

	// WriteInstruction streams any instruction the emitter's fix-ups
	// don't intercept (local/global/numeric/other ops) straight through.
	WriteInstruction(in instr.WasmInstruction) error

	WriteStringData(offset int, value string) error
	WriteVTable(st *types.StructType) error

	PrepareFinish() error
}

// TextWriter is a deterministic, human-readable ModuleWriter: each call
// appends at most one line of WAT-flavored text to an internal buffer
// (WriteMethodParamStart and WriteMethodParamFinish append nothing). Output is
// byte-equal across runs given the same instruction stream, satisfying
// spec.md §8's round-trip property, which is why it is also the writer
// used by package module's tests.
//
// Grounded on vm/image_writer.go's buffer-then-finalize shape, without
// the binary header back-patching — a text writer has nothing to
// back-patch since there is no fixed-size header to fix up.
type TextWriter struct {
	buf          bytes.Buffer
	importsDone  bool
	currentFn    string
}

// NewTextWriter returns an empty writer.
func NewTextWriter() *TextWriter { return &TextWriter{} }

// String returns everything written so far.
func (w *TextWriter) String() string { return w.buf.String() }

func (w *TextWriter) line(format string, args ...any) error {
	fmt.Fprintf(&w.buf, format+"\n", args...)
	return nil
}

func (w *TextWriter) PrepareImport(name fn.FunctionName, annotation map[string]any) error {
	module, _ := annotation["module"].(string)
	importName, _ := annotation["name"].(string)
	if importName == "" {
		importName = name.MethodName
	}
	return w.line("(import %q %q (func $%s))", module, importName, name.SignatureName())
}

func (w *TextWriter) WriteMethodStart(name fn.FunctionName, sourceFile string) error {
	w.currentFn = name.SignatureName()
	return w.line("(func $%s ;; %s", w.currentFn, sourceFile)
}

func (w *TextWriter) WriteMethodParamStart(name fn.FunctionName) error { return nil }

func (w *TextWriter) WriteMethodParam(paramName string, t wasm.AnyType) error {
	return w.line("  (param $%s %s)", paramName, t.String())
}

func (w *TextWriter) WriteMethodResult(t wasm.AnyType) error {
	return w.line("  (result %s)", t.String())
}

func (w *TextWriter) WriteMethodParamFinish(name fn.FunctionName) error { return nil }

func (w *TextWriter) WriteLocal(localName string, t wasm.AnyType) error {
	return w.line("  (local $%s %s)", localName, t.String())
}

func (w *TextWriter) WriteMethodFinish(name fn.FunctionName) error {
	err := w.line(")")
	w.currentFn = ""
	return err
}

func (w *TextWriter) WriteExport(name fn.FunctionName, exportName string) error {
	return w.line("(export %q (func $%s))", exportName, name.SignatureName())
}

func (w *TextWriter) WriteConst(t wasm.ValueType, value any) error {
	return w.line("  (%s.const %v)", t.String(), value)
}

func (w *TextWriter) WriteDefaultValue(t wasm.AnyType) error {
	switch vt, ok := t.(wasm.ValueType); {
	case ok:
		return w.line("  (%s.const 0)", vt.String())
	default:
		return w.line("  (ref.null %s)", t.String())
	}
}

func (w *TextWriter) WriteException() error {
	return w.line("  (;eh;)")
}

func (w *TextWriter) MarkSourceLine(line int) error {
	return w.line("  (;line %d;)", line)
}

func (w *TextWriter) WriteCall(name fn.FunctionName) error {
	return w.line("  (call $%s)", name.SignatureName())
}

func (w *TextWriter) WriteCallIndirect(slot int, receiverClass string) error {
	return w.line("  (call_indirect (;slot %d of %s;))", slot, receiverClass)
}

func (w *TextWriter) WriteUnsupported(detail string) error {
	return w.line("  (unreachable ;; unsupported: %s)", detail)
}

func (w *TextWriter) WriteInstruction(in instr.WasmInstruction) error {
	switch v := in.(type) {
	case instr.WasmLocalInstruction:
		switch {
		case v.Tee:
			return w.line("  (local.tee %d)", v.Index)
		case v.Store:
			return w.line("  (local.set %d)", v.Index)
		default:
			return w.line("  (local.get %d)", v.Index)
		}
	case instr.WasmGlobalInstruction:
		if v.Store {
			return w.line("  (global.set %d)", v.Index)
		}
		return w.line("  (global.get %d)", v.Index)
	case instr.WasmNumericInstruction:
		return w.line("  (%s)", v.Opcode)
	case instr.WasmOtherInstruction:
		return w.line("  (%s)", v.Opcode)
	case instr.WasmConstInstruction:
		return w.line("  (%s.const %v)", v.ValueType.String(), v.Value)
	case instr.WasmBlockInstruction:
		return w.line("  (%s)", blockMnemonic(v.Operation))
	case instr.WasmStructInstruction:
		return w.line("  (%s %s)", structMnemonic(v.Operator), v.ClassName)
	default:
		return w.line("  (;unhandled instruction kind %d;)", in.Kind())
	}
}

func blockMnemonic(op instr.BlockOperation) string {
	switch op {
	case instr.BlockStart:
		return "block"
	case instr.BlockEnd:
		return "end"
	case instr.Loop:
		return "loop"
	case instr.If:
		return "if"
	case instr.Else:
		return "else"
	case instr.Try:
		return "try"
	case instr.Catch:
		return "catch"
	case instr.Rethrow:
		return "rethrow"
	case instr.Throw:
		return "throw"
	case instr.Br:
		return "br"
	case instr.BrIf:
		return "br_if"
	default:
		return "unknown-block-op"
	}
}

func structMnemonic(op instr.StructOperator) string {
	switch op {
	case instr.StructNew:
		return "struct.new"
	case instr.StructNewDefault:
		return "struct.new_default"
	case instr.StructGet:
		return "struct.get"
	case instr.StructSet:
		return "struct.set"
	default:
		return "unknown-struct-op"
	}
}

func (w *TextWriter) WriteStringData(offset int, value string) error {
	return w.line("(data (i32.const %d) %q)", offset, value)
}

func (w *TextWriter) WriteVTable(st *types.StructType) error {
	names := make([]string, len(st.Slots))
	for i, n := range st.Slots {
		names[i] = n.SignatureName()
	}
	return w.line("(elem (;vtable %s, class %d;) %v)", st.ClassName, st.ClassIndex(), names)
}

func (w *TextWriter) PrepareFinish() error {
	return w.line(";; end of module")
}
