package module

import (
	"strings"
	"testing"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
	"github.com/inetmodule/cw2wasm/writer"
)

// fakeCodeBuilder stands in for the external bytecode-to-instr
// collaborator (spec.md §1): a fixed instruction list with no locals
// beyond its declared parameters.
type fakeCodeBuilder struct {
	instrs []instr.WasmInstruction
}

func (b fakeCodeBuilder) GetInstructions() []instr.WasmInstruction { return b.instrs }
func (b fakeCodeBuilder) GetLocalName(index int) string             { return "" }
func (b fakeCodeBuilder) GetLocalTypes(paramCount int) []wasm.AnyType {
	return nil
}

func withCode(instrs ...instr.WasmInstruction) *classfile.Code {
	return &classfile.Code{Builder: fakeCodeBuilder{instrs: instrs}}
}

func compile(t *testing.T, opts wasm.Options, classes ...*classfile.ClassFile) (*writer.TextWriter, error) {
	t.Helper()
	w := writer.NewTextWriter()
	g := New(w, opts, nil)
	for _, cf := range classes {
		if err := g.Prepare(cf); err != nil {
			return w, err
		}
	}
	if err := g.Finalize(); err != nil {
		return w, err
	}
	if err := g.Finish(); err != nil {
		return w, err
	}
	return w, nil
}

// TestStringAccessorSyntheticsCompile verifies the java/lang/String
// length/charAt synthetics StringManager.Init registers in New drain
// through Finalize/Finish like any other needed function, each with
// its own body emitted under its synthetic FunctionName (spec.md §3).
func TestStringAccessorSyntheticsCompile(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "run", Signature: "()V", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "run"}}},
				Code:        withCode(instr.WasmCallInstruction{Name: "java/lang/String.length(I)I"}),
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{}, main)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, "(func $java/lang/String.length(I)I") {
		t.Errorf("expected the length synthetic's body, got:\n%s", out)
	}
	if !strings.Contains(out, "(func $java/lang/String.charAt(II)C") {
		t.Errorf("expected the charAt synthetic's body even though nothing called it, got:\n%s", out)
	}
	if !strings.Contains(out, "(local.get 0)") || !strings.Contains(out, "(i32.load)") {
		t.Errorf("expected length's body instructions, got:\n%s", out)
	}
}

// TestInternedLiteralReachesDataSegment verifies a caller that interns
// a literal through Generator.Strings before building a method's
// instructions (the class-file-decoding boundary spec.md §1 leaves to
// whatever supplies the Parser) sees the assigned offset round-trip
// into both the method body's i32 constant and the emitted data
// segment.
func TestInternedLiteralReachesDataSegment(t *testing.T) {
	w := writer.NewTextWriter()
	g := New(w, wasm.StaticOptions{}, nil)

	offset := g.Strings().Intern("hi")
	if offset != g.Strings().Offset("hi") {
		t.Fatalf("Offset disagrees with the value Intern returned: %d vs %d", g.Strings().Offset("hi"), offset)
	}

	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "greeting", Signature: "()I", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "greeting"}}},
				Code:        withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(offset)}),
			},
		},
	}

	if err := g.Prepare(main); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := g.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, `(data (i32.const 0) "hi")`) {
		t.Errorf("expected the interned literal's data segment, got:\n%s", out)
	}
	if !strings.Contains(out, "(i32.const 0)") {
		t.Errorf("expected the method body to push the interned offset, got:\n%s", out)
	}
}

// TestDirectCallChain covers a plain @Export entry point calling a
// helper through a direct call instruction (spec.md §8 scenario: a
// two-method program with one call edge).
func TestDirectCallChain(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "main", Signature: "()V", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "main"}}},
				Code:        withCode(instr.WasmCallInstruction{Name: "com/acme/Main.helper()V"}),
			},
			{
				Name: "helper", Signature: "()V", Static: true,
				Code: withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(7)}),
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{}, main)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, `(export "main" (func $com/acme/Main.main()V))`) {
		t.Errorf("missing export, got:\n%s", out)
	}
	if !strings.Contains(out, "(func $com/acme/Main.main()V") || !strings.Contains(out, "(func $com/acme/Main.helper()V") {
		t.Errorf("missing one of the two function bodies, got:\n%s", out)
	}
	if !strings.Contains(out, "(call $com/acme/Main.helper()V)") {
		t.Errorf("missing call edge, got:\n%s", out)
	}
}

// TestStructNewDefaultFixupBecomesStructNew verifies that under GC, a
// struct.new_default the fix-up splices field-const writes in front of
// is rewritten into a struct.new that actually consumes those consts
// (spec.md §4.5's "self-installing" intent), rather than leaving the
// original no-operand struct.new_default passed through unchanged.
func TestStructNewDefaultFixupBecomesStructNew(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Point",
		SourceFile: "Point.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "make", Signature: "()I", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "make"}}},
				Code: withCode(instr.WasmStructInstruction{
					Operator:  instr.StructNewDefault,
					ClassName: "com/acme/Point",
				}),
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{GC: true}, main)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if strings.Contains(out, "struct.new_default") {
		t.Errorf("struct.new_default should have been rewritten to struct.new, got:\n%s", out)
	}
	if !strings.Contains(out, "(struct.new com/acme/Point)") {
		t.Errorf("expected the rewritten struct.new, got:\n%s", out)
	}
	if !strings.Contains(out, "(i32.const 0)") {
		t.Errorf("expected the vtable field's const to precede the allocation, got:\n%s", out)
	}
}

// TestImportedFunction covers an @Import method: it must be emitted as
// an import declaration, never as a function body, while call sites
// targeting it still resolve as ordinary direct calls (spec.md §9).
func TestImportedFunction(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "run", Signature: "()V", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "run"}}},
				Code:        withCode(instr.WasmCallInstruction{Name: "com/acme/Main.log(I)V"}),
			},
			{
				Name: "log", Signature: "(I)V", Static: true,
				Annotations: []classfile.Annotation{
					{Name: "Import", Values: map[string]any{"module": "env", "name": "consoleLog"}},
				},
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{}, main)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, `(import "env" "consoleLog" (func $com/acme/Main.log(I)V))`) {
		t.Errorf("missing import, got:\n%s", out)
	}
	if strings.Contains(out, "(func $com/acme/Main.log(I)V ;;") {
		t.Errorf("expected no body for an imported function, got:\n%s", out)
	}
	if !strings.Contains(out, "(call $com/acme/Main.log(I)V)") {
		t.Errorf("missing call to the imported function, got:\n%s", out)
	}
}

// TestImportOnInstanceMethodIsRejected verifies @Import on a
// non-static method is an AnnotationViolation (spec.md §9), not a
// silently accepted import.
func TestImportOnInstanceMethodIsRejected(t *testing.T) {
	cf := &classfile.ClassFile{
		ThisClass: "com/acme/Main",
		Methods: []classfile.MethodInfo{
			{
				Name: "log", Signature: "(I)V", Static: false,
				Annotations: []classfile.Annotation{{Name: "Import", Values: map[string]any{"module": "env"}}},
			},
		},
	}
	g := New(writer.NewTextWriter(), wasm.StaticOptions{}, nil)
	err := g.Prepare(cf)
	var we *wasmerr.WasmException
	if !errorsAs(err, &we) {
		t.Fatalf("expected a wrapped error, got %T: %v", err, err)
	}
	if _, ok := we.Unwrap().(wasmerr.AnnotationViolation); !ok {
		t.Fatalf("expected AnnotationViolation, got %T", we.Unwrap())
	}
}

// TestReplaceSubstitutesMethodBody verifies a @Replace method
// registered under another class's name takes over compilation of the
// target: the target's own body is never scanned, and the target
// keeps its original FunctionName for call resolution and emission
// (SPEC_FULL.md §9 point 4).
func TestReplaceSubstitutesMethodBody(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "compute", Signature: "()I", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "compute"}}},
				Code:        withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(1)}), // original
			},
		},
	}
	patches := &classfile.ClassFile{
		ThisClass:  "com/acme/Patches",
		SourceFile: "Patches.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "computeImpl", Signature: "()I", Static: true,
				Annotations: []classfile.Annotation{
					{Name: "Replace", Values: map[string]any{"value": "com/acme/Main.compute()I"}},
				},
				Code: withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(99)}), // replacement
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{}, main, patches)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, "(func $com/acme/Main.compute()I") {
		t.Fatalf("expected the target's own FunctionName to be kept, got:\n%s", out)
	}
	if !strings.Contains(out, "(i32.const 99)") {
		t.Errorf("expected the replacement body's constant, got:\n%s", out)
	}
	if strings.Contains(out, "(i32.const 1)") {
		t.Errorf("expected the original body to never be emitted, got:\n%s", out)
	}
	if strings.Contains(out, "com/acme/Patches.computeImpl") {
		t.Errorf("expected the replacement's own name never to appear standalone, got:\n%s", out)
	}
}

// TestVirtualDispatchAndVTable covers spec.md §4.3/§4.7: a direct
// override claims its class's slot, and an unrelated sibling
// inheriting the base implementation resolves through alias search
// without error.
func TestVirtualDispatchAndVTable(t *testing.T) {
	base := &classfile.ClassFile{
		ThisClass:  "com/acme/Base",
		SourceFile: "Base.java",
		Methods: []classfile.MethodInfo{
			{Name: "greet", Signature: "()V", Code: withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(111)})},
		},
	}
	child := &classfile.ClassFile{
		ThisClass:  "com/acme/Child",
		SourceFile: "Child.java",
		Super:      &classfile.ClassRef{Name: "com/acme/Base"},
		Methods: []classfile.MethodInfo{
			{Name: "greet", Signature: "()V", Code: withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(222)})},
		},
	}
	sibling := &classfile.ClassFile{
		ThisClass: "com/acme/Sibling",
		Super:     &classfile.ClassRef{Name: "com/acme/Base"},
	}
	mainCls := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "run", Signature: "()V", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "run"}}},
				Code: withCode(
					instr.WasmCallVirtualInstruction{ClassName: "com/acme/Child", MethodName: "greet", Signature: "()V"},
					instr.WasmCallVirtualInstruction{ClassName: "com/acme/Sibling", MethodName: "greet", Signature: "()V"},
				),
			},
		},
	}

	w, err := compile(t, wasm.StaticOptions{}, base, child, sibling, mainCls)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out := w.String()
	if !strings.Contains(out, "(func $com/acme/Child.greet()V") || !strings.Contains(out, "(i32.const 222)") {
		t.Errorf("expected Child's own override body, got:\n%s", out)
	}
	if !strings.Contains(out, "(func $com/acme/Base.greet()V") || !strings.Contains(out, "(i32.const 111)") {
		t.Errorf("expected Base's inherited body, got:\n%s", out)
	}
	if strings.Contains(out, "(func $com/acme/Sibling.greet()V") {
		t.Errorf("expected no standalone body for an inherited, never-overridden method, got:\n%s", out)
	}
	if !strings.Contains(out, "(elem (;vtable com/acme/Child") || !strings.Contains(out, "[com/acme/Child.greet()V]") {
		t.Errorf("expected Child's v-table entry to reference its own override, got:\n%s", out)
	}
}

// TestMissingFunctionIsReported verifies a call to a name that resolves
// to no method, no alias, and no interface default fails Finalize with
// wasmerr.MissingFunction rather than silently dropping the call.
func TestMissingFunctionIsReported(t *testing.T) {
	main := &classfile.ClassFile{
		ThisClass:  "com/acme/Main",
		SourceFile: "Main.java",
		Methods: []classfile.MethodInfo{
			{
				Name: "run", Signature: "()V", Static: true,
				Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "run"}}},
				Code:        withCode(instr.WasmCallInstruction{Name: "com/acme/Main.doesNotExist()V"}),
			},
		},
	}

	w := writer.NewTextWriter()
	g := New(w, wasm.StaticOptions{}, nil)
	if err := g.Prepare(main); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := g.Finalize()
	if _, ok := err.(wasmerr.MissingFunction); !ok {
		t.Fatalf("expected MissingFunction, got %T: %v", err, err)
	}
}

// TestCompileIsDeterministic verifies compiling the same classes twice,
// independently, yields byte-identical output — the round-trip/
// idempotence property spec.md §8 asks for.
func TestCompileIsDeterministic(t *testing.T) {
	build := func() *classfile.ClassFile {
		return &classfile.ClassFile{
			ThisClass:  "com/acme/Main",
			SourceFile: "Main.java",
			Methods: []classfile.MethodInfo{
				{
					Name: "main", Signature: "()V", Static: true,
					Annotations: []classfile.Annotation{{Name: "Export", Values: map[string]any{"name": "main"}}},
					Code:        withCode(instr.WasmCallInstruction{Name: "com/acme/Main.helper()V"}),
				},
				{
					Name: "helper", Signature: "()V", Static: true,
					Code: withCode(instr.WasmConstInstruction{ValueType: wasm.I32, Value: int32(7)}),
				},
			},
		}
	}

	w1, err := compile(t, wasm.StaticOptions{}, build())
	if err != nil {
		t.Fatalf("compile 1: %v", err)
	}
	w2, err := compile(t, wasm.StaticOptions{}, build())
	if err != nil {
		t.Fatalf("compile 2: %v", err)
	}
	if w1.String() != w2.String() {
		t.Errorf("expected deterministic output, got:\n%s\nvs\n%s", w1.String(), w2.String())
	}
}

// errorsAs is a tiny local wrapper around errors.As so each test avoids
// importing "errors" solely for this one call.
func errorsAs(err error, target **wasmerr.WasmException) bool {
	we, ok := err.(*wasmerr.WasmException)
	if !ok {
		return false
	}
	*target = we
	return true
}
