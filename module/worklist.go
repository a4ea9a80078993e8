package module

import (
	"time"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/instr"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
	"github.com/inetmodule/cw2wasm/watparser"
)

// textCodeBuilder wraps an already-parsed WAT instruction list so a
// @TextCode method or a synthetic accessor can be scanned/emitted
// through the same instr.CodeBuilder seam as a class-file method.
type textCodeBuilder struct {
	instructions []instr.WasmInstruction
}

func (b textCodeBuilder) GetInstructions() []instr.WasmInstruction { return b.instructions }
func (b textCodeBuilder) GetLocalName(index int) string             { return "" }
func (b textCodeBuilder) GetLocalTypes(paramCount int) []wasm.AnyType {
	return nil
}

// scanFunctions drains FunctionManager.NextScanLater until empty,
// resolving each name via direct lookup, superclass search, or
// interface-default search (spec.md §4.4). Call it again after type
// finalization per spec.md §4.4's fixed-point note.
func (g *Generator) scanFunctions() error {
	for {
		name, ok := g.functions.NextScanLater()
		if !ok {
			return nil
		}
		if err := g.scanOne(name); err != nil {
			return err
		}
	}
}

func (g *Generator) scanOne(name fn.FunctionName) error {
	started := time.Now()
	g.className = name.ClassName

	if synth, ok := g.functions.Synthetic(name); ok {
		if synth.HasWasmCode {
			instrs, err := watparser.Parse(synth.WatCode)
			if err != nil {
				return g.wrapErr(err, -1)
			}
			g.scanInstructions(instrs)
		} else {
			g.functions.MarkAsImport(name, synth.ImportAnnotation)
		}
		g.functions.MarkAsScanned(name, false)
		g.recordFunction(name, "scanned", started)
		return nil
	}

	log.Debugf("scan %s", name.SignatureName())

	cf, cfErr := g.loader.Get(name.ClassName)
	var method *classfile.MethodInfo
	if cfErr == nil {
		g.sourceFile = cf.SourceFile
		g.className = cf.ThisClass
		method = cf.Method(name.MethodName, name.Signature)
	}
	if method == nil {
		method = g.functions.Replace(name, nil)
	}
	if method != nil {
		method = g.functions.Replace(name, method)
		cb, err := g.buildCodeBuilder(method)
		if err != nil {
			return g.wrapErr(err, firstLineOf(method))
		}
		g.scanMethodBuilder(cb)
		needsThis := !method.IsStatic() || method.Name == "<init>"
		g.functions.MarkAsScanned(name, needsThis)
		g.recordFunction(name, "scanned", started)
		return nil
	}

	if alias, ok := g.searchSuperclasses(cf, name); ok {
		g.functions.MarkAsNeeded(alias)
		g.functions.SetAlias(name, alias)
		return nil
	}
	if alias, ok := g.searchInterfaceDefaults(cf, name); ok {
		g.functions.MarkAsNeeded(alias)
		g.functions.SetAlias(name, alias)
		return nil
	}

	return wasmerr.MissingFunction{SignatureName: name.SignatureName()}
}

// searchSuperclasses walks up from cf looking for a method matching
// name's (methodName, signature), per spec.md §4.4 step 3.
func (g *Generator) searchSuperclasses(cf *classfile.ClassFile, name fn.FunctionName) (fn.FunctionName, bool) {
	cur := cf
	for cur != nil {
		if m := cur.Method(name.MethodName, name.Signature); m != nil {
			return fn.New(cur.ThisClass, m.Name, m.Signature), true
		}
		superName := cur.SuperclassName()
		if superName == "" {
			return fn.FunctionName{}, false
		}
		next, err := g.loader.Get(superName)
		if err != nil {
			return fn.FunctionName{}, false
		}
		cur = next
	}
	return fn.FunctionName{}, false
}

// searchInterfaceDefaults walks up from cf, at each level inspecting
// directly-implemented interfaces in declared order, per spec.md §4.4
// step 4.
func (g *Generator) searchInterfaceDefaults(cf *classfile.ClassFile, name fn.FunctionName) (fn.FunctionName, bool) {
	cur := cf
	for cur != nil {
		for _, iface := range cur.Interfaces {
			icf, err := g.loader.Get(iface.Name)
			if err != nil {
				continue
			}
			if m := icf.Method(name.MethodName, name.Signature); m != nil {
				return fn.New(icf.ThisClass, m.Name, m.Signature), true
			}
		}
		superName := cur.SuperclassName()
		if superName == "" {
			return fn.FunctionName{}, false
		}
		next, err := g.loader.Get(superName)
		if err != nil {
			return fn.FunctionName{}, false
		}
		cur = next
	}
	return fn.FunctionName{}, false
}

// buildCodeBuilder resolves method's body to an instr.CodeBuilder:
// @Import methods have none (they are recorded as imports and skipped),
// @TextCode bodies are parsed through the WAT parser, ordinary methods
// carry an already-built instr.CodeBuilder on their Code field, and
// abstract/native methods (no Code, no annotation) are rejected.
func (g *Generator) buildCodeBuilder(method *classfile.MethodInfo) (instr.CodeBuilder, error) {
	if a := method.Annotation("Import"); a != nil {
		g.functions.MarkAsImport(fn.New(g.className, method.Name, method.Signature), a.Values)
		return nil, nil
	}
	if a := method.Annotation("TextCode"); a != nil {
		watCode, _ := a.Values["value"].(string)
		instrs, err := watparser.Parse(watCode)
		if err != nil {
			return nil, err
		}
		return textCodeBuilder{instructions: instrs}, nil
	}
	if method.Code != nil {
		return method.Code.Builder, nil
	}
	return nil, wasmerr.UnsupportedConstruct{Detail: "abstract or native method can not be used: " + method.Name}
}

// scanMethodBuilder inspects only Call and CallVirtual instructions,
// marking their callees Needed; every other instruction kind is
// ignored during scanning (spec.md §4.4).
func (g *Generator) scanMethodBuilder(cb instr.CodeBuilder) {
	if cb == nil {
		return
	}
	g.scanInstructions(cb.GetInstructions())
}

func (g *Generator) scanInstructions(instrs []instr.WasmInstruction) {
	for _, in := range instrs {
		switch v := in.(type) {
		case instr.WasmCallInstruction:
			g.functions.MarkAsNeeded(fn.FromSignatureName(v.Name))
		case instr.WasmCallVirtualInstruction:
			g.functions.MarkAsNeeded(fn.New(v.ClassName, v.MethodName, v.Signature))
		}
	}
}

func firstLineOf(method *classfile.MethodInfo) int {
	if method.Code == nil {
		return -1
	}
	return method.Code.FirstLineNr
}
