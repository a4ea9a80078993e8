package watparser

import (
	"testing"

	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/wasm"
)

// TestParse_LocalGetSetTee verifies the three local.* forms parse to
// WasmLocalInstruction with the correct Store/Tee flags and index.
func TestParse_LocalGetSetTee(t *testing.T) {
	out, err := Parse("(local.get 0) (local.set 1) (local.tee 2)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(out))
	}

	get := out[0].(instr.WasmLocalInstruction)
	if get.Index != 0 || get.Store || get.Tee {
		t.Errorf("local.get: got %+v", get)
	}
	set := out[1].(instr.WasmLocalInstruction)
	if set.Index != 1 || !set.Store || set.Tee {
		t.Errorf("local.set: got %+v", set)
	}
	tee := out[2].(instr.WasmLocalInstruction)
	if tee.Index != 2 || !tee.Tee {
		t.Errorf("local.tee: got %+v", tee)
	}
}

// TestParse_ConstTypes verifies each of the four numeric const opcodes
// is decoded to the right wasm.ValueType and Go value type.
func TestParse_ConstTypes(t *testing.T) {
	out, err := Parse("(i32.const 42) (i64.const 9000000000) (f32.const 1.5) (f64.const 2.25)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(out))
	}

	i32 := out[0].(instr.WasmConstInstruction)
	if i32.ValueType != wasm.I32 || i32.Value.(int32) != 42 {
		t.Errorf("i32.const: got %+v", i32)
	}
	i64 := out[1].(instr.WasmConstInstruction)
	if i64.ValueType != wasm.I64 || i64.Value.(int64) != 9000000000 {
		t.Errorf("i64.const: got %+v", i64)
	}
	f32 := out[2].(instr.WasmConstInstruction)
	if f32.ValueType != wasm.F32 || f32.Value.(float32) != 1.5 {
		t.Errorf("f32.const: got %+v", f32)
	}
	f64 := out[3].(instr.WasmConstInstruction)
	if f64.ValueType != wasm.F64 || f64.Value.(float64) != 2.25 {
		t.Errorf("f64.const: got %+v", f64)
	}
}

// TestParse_Call verifies a call instruction carries its target's
// signature-name string verbatim, for the module package to resolve
// later.
func TestParse_Call(t *testing.T) {
	out, err := Parse("(call com/acme/Foo.bar()V)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	call := out[0].(instr.WasmCallInstruction)
	if call.Name != "com/acme/Foo.bar()V" {
		t.Errorf("got %+v", call)
	}
}

// TestParse_UnknownOpcodePassesThrough verifies an opcode this parser
// does not specifically know becomes a WasmOtherInstruction carrying
// its operands as a rendered suffix, rather than failing.
func TestParse_UnknownOpcodePassesThrough(t *testing.T) {
	out, err := Parse("(i32.add) (drop)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	add := out[0].(instr.WasmOtherInstruction)
	if add.Opcode != "i32.add" {
		t.Errorf("got %+v", add)
	}
	drop := out[1].(instr.WasmOtherInstruction)
	if drop.Opcode != "drop" {
		t.Errorf("got %+v", drop)
	}
}

// TestParse_UnterminatedInstructionErrors verifies a missing closing
// paren is reported as a ParseError rather than panicking or hanging.
func TestParse_UnterminatedInstructionErrors(t *testing.T) {
	_, err := Parse("(local.get 0")
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

// TestParse_EmptySourceYieldsNoInstructions verifies an empty body
// (a @TextCode method with no instructions) parses to an empty, not
// nil-panicking, result.
func TestParse_EmptySourceYieldsNoInstructions(t *testing.T) {
	out, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no instructions, got %d", len(out))
	}
}
