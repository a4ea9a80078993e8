// Package optimizer implements the CodeOptimizer described in spec.md
// §3: a stateless, single-pass peephole pass run exactly once per
// emitted function, after scanning completes (spec.md §4.5 step 3).
//
// Grounded on vm/interpreter.go's flat instruction-stream walk — the
// optimizer reuses that same "index into a slice, inspect a small
// window" shape instead of building an intermediate tree.
package optimizer

import "github.com/inetmodule/cw2wasm/instr"

// Optimize returns a new instruction slice in which each local.set
// immediately followed by a local.get of the same local is folded into
// one local.tee, and each const immediately followed by a drop is
// removed. It never mutates in, and it
// never reorders or removes anything it cannot prove is safe to drop —
// any instruction it does not specifically recognize passes through
// unchanged.
func Optimize(in []instr.WasmInstruction) []instr.WasmInstruction {
	out := make([]instr.WasmInstruction, 0, len(in))
	for i := 0; i < len(in); i++ {
		cur := in[i]

		if i+1 < len(in) {
			next := in[i+1]
			if tee, ok := asTee(cur, next); ok {
				out = append(out, tee)
				i++ // the following local.get only re-read what set just stored
				continue
			}
			if isConstDrop(cur, next) {
				i++ // const immediately discarded: drop both
				continue
			}
		}

		out = append(out, cur)
	}
	return out
}

// asTee matches local.set $n followed immediately by local.get $n and
// folds the pair into a single local.tee $n, which stores and leaves
// the value on the stack in one instruction instead of two.
func asTee(cur, next instr.WasmInstruction) (instr.WasmInstruction, bool) {
	set, ok := cur.(instr.WasmLocalInstruction)
	if !ok || !set.Store || set.Tee {
		return nil, false
	}
	get, ok := next.(instr.WasmLocalInstruction)
	if !ok || get.Store || get.Index != set.Index {
		return nil, false
	}
	set.Tee = true
	return set, true
}

// isConstDrop matches a constant of any type immediately followed by a
// drop (modeled here as a WasmOtherInstruction with opcode "drop"),
// which has no observable effect and can be removed entirely.
func isConstDrop(cur, next instr.WasmInstruction) bool {
	if _, ok := cur.(instr.WasmConstInstruction); !ok {
		return false
	}
	other, ok := next.(instr.WasmOtherInstruction)
	return ok && other.Opcode == "drop"
}
