// Package watparser is a minimal parser from inline WebAssembly text to
// instr.WasmInstruction values. It exists only to satisfy the external
// "WAT parser" collaborator spec.md §1 declares out of scope for the
// full binary-format grammar, but still needed in-process for two
// callers: synthetic function bodies (string accessors) and @TextCode
// method bodies (spec.md end-to-end scenario 6). It understands flat
// sequences of s-expressions, not the full module grammar — blocks,
// types, and imports are the writer's concern, not this parser's.
//
// Grounded on mpoindexter-wacogo__wat.go's s-expression-shaped walk
// (though that file renders AST to text; this one tokenizes text back
// into a flat instruction list, the inverse direction).
package watparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
)

// Parse reads a flat sequence of parenthesized WAT instructions (as
// found in a @TextCode annotation value or a synthetic function's
// WatCode) and returns the equivalent instr.WasmInstruction list.
func Parse(source string) ([]instr.WasmInstruction, error) {
	toks := tokenize(source)
	p := &parser{toks: toks}
	var out []instr.WasmInstruction
	for p.more() {
		in, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) more() bool { return p.pos < len(p.toks) }

func (p *parser) next() (string, bool) {
	if !p.more() {
		return "", false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) parseOne() (instr.WasmInstruction, error) {
	tok, ok := p.next()
	if !ok {
		return nil, wasmerr.ParseError{Detail: "unexpected end of input"}
	}
	if tok != "(" {
		return nil, wasmerr.ParseError{Detail: fmt.Sprintf("expected '(', got %q", tok)}
	}
	opcode, ok := p.next()
	if !ok {
		return nil, wasmerr.ParseError{Detail: "unexpected end of input after '('"}
	}

	var operands []string
	for {
		tok, ok := p.next()
		if !ok {
			return nil, wasmerr.ParseError{Detail: "unterminated instruction: missing ')'"}
		}
		if tok == ")" {
			break
		}
		operands = append(operands, tok)
	}

	return build(opcode, operands)
}

func build(opcode string, operands []string) (instr.WasmInstruction, error) {
	switch {
	case strings.HasSuffix(opcode, ".const"):
		if len(operands) != 1 {
			return nil, wasmerr.ParseError{Detail: fmt.Sprintf("%s expects exactly one operand", opcode)}
		}
		vt, err := constValueType(opcode)
		if err != nil {
			return nil, err
		}
		val, err := parseConstValue(vt, operands[0])
		if err != nil {
			return nil, err
		}
		return instr.WasmConstInstruction{ValueType: vt, Value: val}, nil

	case opcode == "local.get" || opcode == "local.set" || opcode == "local.tee":
		idx, err := parseIndex(operands)
		if err != nil {
			return nil, err
		}
		return instr.WasmLocalInstruction{
			Index: idx,
			Store: opcode == "local.set",
			Tee:   opcode == "local.tee",
		}, nil

	case opcode == "global.get" || opcode == "global.set":
		idx, err := parseIndex(operands)
		if err != nil {
			return nil, err
		}
		return instr.WasmGlobalInstruction{Index: idx, Store: opcode == "global.set"}, nil

	case opcode == "call":
		if len(operands) != 1 {
			return nil, wasmerr.ParseError{Detail: "call expects exactly one operand"}
		}
		return instr.WasmCallInstruction{Name: operands[0]}, nil

	default:
		return instr.WasmOtherInstruction{Opcode: opcode + operandSuffix(operands)}, nil
	}
}

func operandSuffix(operands []string) string {
	if len(operands) == 0 {
		return ""
	}
	return " " + strings.Join(operands, " ")
}

func constValueType(opcode string) (wasm.ValueType, error) {
	switch strings.TrimSuffix(opcode, ".const") {
	case "i32":
		return wasm.I32, nil
	case "i64":
		return wasm.I64, nil
	case "f32":
		return wasm.F32, nil
	case "f64":
		return wasm.F64, nil
	default:
		return wasm.Empty, wasmerr.ParseError{Detail: fmt.Sprintf("unknown const type in %q", opcode)}
	}
}

func parseConstValue(vt wasm.ValueType, lit string) (any, error) {
	switch vt {
	case wasm.I32:
		n, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return nil, wasmerr.ParseError{Detail: "bad i32 literal " + lit, Err: err}
		}
		return int32(n), nil
	case wasm.I64:
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, wasmerr.ParseError{Detail: "bad i64 literal " + lit, Err: err}
		}
		return n, nil
	case wasm.F32:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return nil, wasmerr.ParseError{Detail: "bad f32 literal " + lit, Err: err}
		}
		return float32(f), nil
	default:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, wasmerr.ParseError{Detail: "bad f64 literal " + lit, Err: err}
		}
		return f, nil
	}
}

func parseIndex(operands []string) (int, error) {
	if len(operands) != 1 {
		return 0, wasmerr.ParseError{Detail: "expected exactly one index operand"}
	}
	n, err := strconv.Atoi(operands[0])
	if err != nil {
		return 0, wasmerr.ParseError{Detail: "bad index " + operands[0], Err: err}
	}
	return n, nil
}

// tokenize splits source into "(", ")", and atom tokens, treating any
// run of non-space characters as one atom. A "(" that starts in the
// middle of an atom, and the ")" that closes it, stay part of that atom,
// so a signature-name operand like "com/acme/Foo.bar()V" is one token.
func tokenize(source string) []string {
	var toks []string
	var cur strings.Builder
	atomDepth := 0
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
		atomDepth = 0
	}
	for _, r := range source {
		switch {
		case r == '(' && cur.Len() > 0:
			cur.WriteRune(r)
			atomDepth++
		case r == ')' && atomDepth > 0:
			cur.WriteRune(r)
			atomDepth--
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
