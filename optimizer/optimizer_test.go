package optimizer

import (
	"testing"

	"github.com/inetmodule/cw2wasm/instr"
)

// TestOptimize_FoldsSetThenGetIntoTee verifies local.set $n immediately
// followed by local.get $n becomes a single local.tee $n, preserving
// the net stack effect (set pops one, get pushes one — tee does both in
// one op) rather than just dropping the get, which would corrupt the
// stack.
func TestOptimize_FoldsSetThenGetIntoTee(t *testing.T) {
	in := []instr.WasmInstruction{
		instr.WasmLocalInstruction{Index: 3, Store: true},
		instr.WasmLocalInstruction{Index: 3, Store: false},
	}
	out := Optimize(in)

	if len(out) != 1 {
		t.Fatalf("expected 1 instruction, got %d: %+v", len(out), out)
	}
	tee, ok := out[0].(instr.WasmLocalInstruction)
	if !ok {
		t.Fatalf("expected WasmLocalInstruction, got %T", out[0])
	}
	if !tee.Store || !tee.Tee || tee.Index != 3 {
		t.Errorf("expected tee local 3, got %+v", tee)
	}
}

// TestOptimize_DoesNotFoldMismatchedLocals verifies set $n followed by
// get $m (different locals) is left untouched.
func TestOptimize_DoesNotFoldMismatchedLocals(t *testing.T) {
	in := []instr.WasmInstruction{
		instr.WasmLocalInstruction{Index: 1, Store: true},
		instr.WasmLocalInstruction{Index: 2, Store: false},
	}
	out := Optimize(in)
	if len(out) != 2 {
		t.Fatalf("expected both instructions to survive untouched, got %d", len(out))
	}
}

// TestOptimize_FoldsConstDrop verifies a const immediately followed by
// a drop is removed entirely, since it has no observable effect.
func TestOptimize_FoldsConstDrop(t *testing.T) {
	in := []instr.WasmInstruction{
		instr.WasmConstInstruction{ValueType: 1, Value: int32(42)},
		instr.WasmOtherInstruction{Opcode: "drop"},
	}
	out := Optimize(in)
	if len(out) != 0 {
		t.Fatalf("expected both instructions folded away, got %d: %+v", len(out), out)
	}
}

// TestOptimize_PassesUnknownInstructionsThrough verifies an instruction
// kind Optimize does not specifically recognize is copied through
// unchanged, never reordered or dropped.
func TestOptimize_PassesUnknownInstructionsThrough(t *testing.T) {
	in := []instr.WasmInstruction{
		instr.WasmNumericInstruction{Opcode: "i32.add"},
		instr.WasmCallInstruction{Name: "C.m()V"},
	}
	out := Optimize(in)
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("expected passthrough, got %+v", out)
	}
}

// TestOptimize_NeverMutatesInput verifies Optimize builds a new slice
// rather than editing the caller's in place.
func TestOptimize_NeverMutatesInput(t *testing.T) {
	in := []instr.WasmInstruction{
		instr.WasmLocalInstruction{Index: 0, Store: true},
		instr.WasmLocalInstruction{Index: 0, Store: false},
	}
	original := in[0].(instr.WasmLocalInstruction)

	Optimize(in)

	if in[0] != original {
		t.Error("Optimize must not mutate its input slice")
	}
}
