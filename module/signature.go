package module

import (
	"strings"

	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
)

// writeMethodSignature implements spec.md §4.6: an optional implicit
// "this" parameter, the JVM signature's parameter and result types,
// and, when cb is available, the method's declared locals.
func (g *Generator) writeMethodSignature(name fn.FunctionName, cb instr.CodeBuilder) error {
	if err := g.writer.WriteMethodParamStart(name); err != nil {
		return g.wrapErr(err, -1)
	}

	paramCount := 0
	if g.functions.NeedsThis(name) {
		st := g.types.ValueOf(name.ClassName)
		if err := g.writer.WriteMethodParam("this", st); err != nil {
			return g.wrapErr(err, -1)
		}
		paramCount++
	}

	params, result, err := g.parseSignature(name.Signature)
	if err != nil {
		return g.wrapErr(err, -1)
	}

	for _, t := range params {
		var paramName string
		if cb != nil {
			paramName = cb.GetLocalName(paramCount)
		}
		paramCount++
		if t == wasm.Empty {
			continue
		}
		if err := g.writer.WriteMethodParam(paramName, t); err != nil {
			return g.wrapErr(err, -1)
		}
	}

	if result != wasm.Empty {
		if err := g.writer.WriteMethodResult(result); err != nil {
			return g.wrapErr(err, -1)
		}
	}

	if cb != nil {
		localTypes := cb.GetLocalTypes(paramCount)
		for i, t := range localTypes {
			idx := paramCount + i
			if err := g.writer.WriteLocal(cb.GetLocalName(idx), t); err != nil {
				return g.wrapErr(err, -1)
			}
		}
	}

	return g.writer.WriteMethodParamFinish(name)
}

// parseSignature splits a JVM method descriptor like "(II)I" into its
// parameter types and single result type (wasm.Empty for void).
func (g *Generator) parseSignature(sig string) ([]wasm.AnyType, wasm.AnyType, error) {
	if len(sig) == 0 || sig[0] != '(' {
		return nil, nil, wasmerr.ParseError{Detail: "signature missing '(': " + sig}
	}
	i := 1
	var params []wasm.AnyType
	for i < len(sig) && sig[i] != ')' {
		t, consumed, err := g.parseOneType(sig[i:])
		if err != nil {
			return nil, nil, err
		}
		params = append(params, t)
		i += consumed
	}
	if i >= len(sig) {
		return nil, nil, wasmerr.ParseError{Detail: "unterminated signature: " + sig}
	}
	i++ // skip ')'

	result, _, err := g.parseOneType(sig[i:])
	if err != nil {
		return nil, nil, err
	}
	return params, result, nil
}

// parseOneType parses one JVM field descriptor at the start of s,
// returning the equivalent wasm.AnyType and the number of bytes
// consumed.
func (g *Generator) parseOneType(s string) (wasm.AnyType, int, error) {
	if len(s) == 0 {
		return wasm.Empty, 0, wasmerr.ParseError{Detail: "empty type descriptor"}
	}
	switch s[0] {
	case 'I', 'Z', 'B', 'S', 'C':
		return wasm.I32, 1, nil
	case 'J':
		return wasm.I64, 1, nil
	case 'F':
		return wasm.F32, 1, nil
	case 'D':
		return wasm.F64, 1, nil
	case 'V':
		return wasm.Empty, 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return nil, 0, wasmerr.ParseError{Detail: "unterminated object type: " + s}
		}
		className := s[1:end]
		return g.types.ValueOf(className), end + 1, nil
	case '[':
		_, consumed, err := g.parseOneType(s[1:])
		if err != nil {
			return nil, 0, err
		}
		return wasm.Anyref, 1 + consumed, nil
	default:
		return nil, 0, wasmerr.ParseError{Detail: "unknown type descriptor: " + s}
	}
}
