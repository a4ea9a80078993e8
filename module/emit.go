package module

import (
	"time"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/optimizer"
	"github.com/inetmodule/cw2wasm/types"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
	"github.com/inetmodule/cw2wasm/watparser"
)

// Finish drains the write-later queue and emits every function's body
// (spec.md §4.5). Call Finalize before this.
func (g *Generator) Finish() error {
	writeLater := g.functions.GetWriteLater()
	for {
		name, ok := writeLater.Next()
		if !ok {
			return nil
		}
		g.sourceFile = ""
		g.className = name.ClassName

		if synth, ok := g.functions.Synthetic(name); ok {
			if !g.functions.NeedToWrite(name) {
				continue
			}
			cb, err := g.codeBuilderForSynthetic(synth)
			if err != nil {
				return g.wrapErr(err, -1)
			}
			if err := g.writeMethodImpl(name, cb); err != nil {
				return err
			}
			continue
		}

		cf, err := g.loader.Get(name.ClassName)
		if err != nil {
			if g.functions.NeedToWrite(name) {
				return wasmerr.MissingFunction{SignatureName: name.SignatureName()}
			}
			continue
		}
		g.sourceFile = cf.SourceFile
		g.className = cf.ThisClass

		method := cf.Method(name.MethodName, name.Signature)
		if method == nil {
			if g.functions.NeedToWrite(name) {
				return wasmerr.MissingFunction{SignatureName: name.SignatureName()}
			}
			continue
		}

		writeName, cb, err := g.resolveWriteTarget(cf, name, method)
		if err != nil {
			return g.wrapErr(err, firstLineOf(method))
		}
		if g.functions.NeedToWrite(writeName) {
			if err := g.writeMethod(writeName, method, cb); err != nil {
				return err
			}
		}
	}
}

// resolveWriteTarget applies the @TextCode signature override
// (SPEC_FULL.md §9 point 2): a @TextCode body with an explicit
// signature is written under a FunctionName derived from that
// signature, not the one scanning used, and applies any registered
// @Replace body otherwise.
func (g *Generator) resolveWriteTarget(cf *classfile.ClassFile, name fn.FunctionName, method *classfile.MethodInfo) (fn.FunctionName, instr.CodeBuilder, error) {
	if a := method.Annotation("TextCode"); a != nil {
		sig, _ := a.Values["signature"].(string)
		if sig == "" {
			sig = method.Signature
		}
		watCode, _ := a.Values["value"].(string)
		instrs, err := watparser.Parse(watCode)
		if err != nil {
			return fn.FunctionName{}, nil, err
		}
		return fn.New(cf.ThisClass, method.Name, sig), textCodeBuilder{instructions: instrs}, nil
	}

	method = g.functions.Replace(name, method)
	cb, err := g.buildCodeBuilder(method)
	return name, cb, err
}

func (g *Generator) codeBuilderForSynthetic(synth fn.SyntheticFunctionName) (instr.CodeBuilder, error) {
	if !synth.HasWasmCode {
		return nil, wasmerr.UnsupportedConstruct{Detail: "synthetic import has no body to write: " + synth.SignatureName()}
	}
	instrs, err := watparser.Parse(synth.WatCode)
	if err != nil {
		return nil, err
	}
	return textCodeBuilder{instructions: instrs}, nil
}

// writeMethod writes an @Export directive, if any, then the method
// body.
func (g *Generator) writeMethod(name fn.FunctionName, method *classfile.MethodInfo, cb instr.CodeBuilder) error {
	if a := method.Annotation("Export"); a != nil {
		exportName, _ := a.Values["name"].(string)
		if exportName == "" {
			exportName = method.Name // verbatim, no mangling (spec.md §9 Open Questions)
		}
		if err := g.writer.WriteExport(name, exportName); err != nil {
			return g.wrapErr(err, firstLineOf(method))
		}
	}
	return g.writeMethodImpl(name, cb)
}

// writeMethodImpl streams one function's signature and body to the
// writer, applying the three in-stream fix-ups spec.md §4.5 names:
// source-line marks, exception-handling gating, and GC struct
// new-default field initialization.
func (g *Generator) writeMethodImpl(name fn.FunctionName, cb instr.CodeBuilder) error {
	started := time.Now()
	if err := g.writer.WriteMethodStart(name, g.sourceFile); err != nil {
		return g.wrapErr(err, -1)
	}
	g.functions.MarkAsWritten(name)
	g.recordFunction(name, "written", started)

	if err := g.writeMethodSignature(name, cb); err != nil {
		return err
	}

	instrs := optimizer.Optimize(cb.GetInstructions())

	lastLine := -1
	for _, in := range instrs {
		line := in.LineNumber()
		if line >= 0 && line != lastLine {
			if err := g.writer.MarkSourceLine(line); err != nil {
				return g.wrapErr(err, line)
			}
			lastLine = line
		}

		fixedUp, err := g.applyFixup(in, line)
		if err != nil {
			return err
		}
		if err := g.writeInstruction(fixedUp); err != nil {
			return g.wrapErr(err, line)
		}
	}

	return g.writer.WriteMethodFinish(name)
}

// applyFixup performs the exception-handling and GC struct-new-default
// fix-ups spec.md §4.5 names (writeMethodImpl emits the source-line
// marks itself), re-marks call targets Needed, and returns the
// instruction the writer should actually emit, which
// for a GC struct-new-default may differ from in: the per-field consts
// it pushes are operands, so the allocation itself must become a
// struct.new (which consumes them), not the original struct.new_default
// (which takes none and would leave them stranded on the stack).
func (g *Generator) applyFixup(in instr.WasmInstruction, line int) (instr.WasmInstruction, error) {
	switch v := in.(type) {
	case instr.WasmBlockInstruction:
		switch v.Operation {
		case instr.Try, instr.Catch, instr.Throw, instr.Rethrow:
			if g.options.UseEH() {
				if err := g.writer.WriteException(); err != nil {
					return in, g.wrapErr(err, line)
				}
			}
		}
	case instr.WasmCallInstruction:
		g.functions.MarkAsNeeded(fn.FromSignatureName(v.Name))
	case instr.WasmCallVirtualInstruction:
		g.functions.MarkAsNeeded(fn.New(v.ClassName, v.MethodName, v.Signature))
	case instr.WasmStructInstruction:
		if g.options.UseGC() && v.Operator == instr.StructNewDefault {
			st := g.types.ValueOf(v.ClassName)
			for _, field := range st.Fields() {
				var err error
				if field.Name == types.VTableFieldName {
					err = g.writer.WriteConst(wasm.I32, st.ClassIndex())
				} else {
					err = g.writer.WriteDefaultValue(field.Type)
				}
				if err != nil {
					return in, g.wrapErr(err, line)
				}
			}
			v.Operator = instr.StructNew
			return v, nil
		}
	}
	return in, nil
}

// writeInstruction dispatches the handful of instruction kinds the
// writer needs class/type context to render — direct calls, virtual
// calls, which resolve a v-table slot, and interface calls, which always fail (spec.md §4.7)
// — and passes everything else straight through.
func (g *Generator) writeInstruction(in instr.WasmInstruction) error {
	switch v := in.(type) {
	case instr.WasmCallInstruction:
		return g.writer.WriteCall(fn.FromSignatureName(v.Name))
	case instr.WasmCallVirtualInstruction:
		slot := g.types.SlotIndex(v.MethodName, v.Signature)
		return g.writer.WriteCallIndirect(slot, v.ClassName)
	case instr.WasmCallInterfaceInstruction:
		detail := "interface calls are not supported"
		if err := g.writer.WriteUnsupported(detail); err != nil {
			return err
		}
		return wasmerr.UnsupportedConstruct{Detail: detail}
	default:
		return g.writer.WriteInstruction(in)
	}
}
