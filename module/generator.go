// Package module is the ModuleGenerator driver described in spec.md §2
// and §4.4–§4.7: it owns every manager for the lifetime of one
// compilation and runs the scan/resolve/finalize/emit pipeline over
// them.
//
// Grounded on vm/vm.go's owns-all-managers shape (a single struct
// holding every subsystem, constructed once, driven by a handful of
// top-level methods) and vm/interpreter.go's drain-loop/error-wrapping
// style for the scan and emit loops.
package module

import (
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/classloader"
	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/journal"
	strtab "github.com/inetmodule/cw2wasm/strings"
	"github.com/inetmodule/cw2wasm/types"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
	"github.com/inetmodule/cw2wasm/writer"
)

var log = commonlog.GetLogger("cw2wasm.module")

// Generator drives one compilation from prepared class files to a
// finished module. It is not safe for concurrent use — spec.md §5
// declares the whole pipeline single-threaded.
type Generator struct {
	writer  writer.ModuleWriter
	options wasm.Options

	loader    *classloader.ClassFileLoader
	functions *fn.FunctionManager
	types     *types.TypeManager
	strtab    *strtab.StringManager
	journal   journal.Sink

	sourceFile string
	className  string
}

// Strings exposes the StringManager backing this compilation so a
// classfile.Parser can intern a literal before building the
// instr.CodeBuilder for a method that references it (spec.md §1 puts
// class-file decoding itself out of scope for this module, so whatever
// supplies the Parser owns finding string constants in the first
// place).
func (g *Generator) Strings() *strtab.StringManager {
	return g.strtab
}

// SetJournal attaches a journal sink that receives one FunctionRecord
// per scanned or written function and one ClassRecord per class cached
// through Prepare (plus one per @Replace/@Partial target it registers),
// purely for observability (SPEC_FULL.md §6.3). A nil
// sink (the default) disables journaling entirely.
func (g *Generator) SetJournal(sink journal.Sink) {
	g.journal = sink
}

func (g *Generator) recordFunction(name fn.FunctionName, phase string, started time.Time) {
	if g.journal == nil {
		return
	}
	if err := g.journal.RecordFunction(&journal.FunctionRecord{
		SignatureName: name.SignatureName(),
		ClassName:     name.ClassName,
		Phase:         phase,
		StartedAt:     started.Unix(),
		FinishedAt:    time.Now().Unix(),
	}); err != nil {
		log.Warningf("journal: recording function %s: %v", name.SignatureName(), err)
	}
}

func (g *Generator) recordClass(name, kind string) {
	if g.journal == nil {
		return
	}
	if err := g.journal.RecordClass(&journal.ClassRecord{Name: name, Kind: kind, ResolvedAt: time.Now().Unix()}); err != nil {
		log.Warningf("journal: recording class %s: %v", name, err)
	}
}

// New builds a generator around w and opts, backed by a fresh
// ClassFileLoader wrapping underlying (which may be nil if every class
// will be supplied via Prepare directly).
func New(w writer.ModuleWriter, opts wasm.Options, underlying classloader.Underlying) *Generator {
	g := &Generator{
		writer:    w,
		options:   opts,
		loader:    classloader.New(underlying),
		functions: fn.NewFunctionManager(),
		types:     types.NewTypeManager(),
		strtab:    strtab.NewStringManager(),
	}
	g.types.Init(opts)
	g.strtab.Init(g.functions)
	return g
}

// Prepare caches classFile and registers whatever class- and
// method-level annotations it carries: @Replace/@Partial at the class
// level, @Replace/@Import/@Export at the method level (spec.md §6).
func (g *Generator) Prepare(cf *classfile.ClassFile) error {
	g.loader.Cache(cf)
	g.recordClass(cf.ThisClass, "cached")

	if a := cf.Annotation("Replace"); a != nil {
		if target, _ := a.Values["value"].(string); target != "" {
			g.loader.Replace(target, cf)
			g.recordClass(target, "replaced")
		}
	}
	if a := cf.Annotation("Partial"); a != nil {
		if target, _ := a.Values["value"].(string); target != "" {
			g.loader.Partial(target, cf)
			g.recordClass(target, "partial")
		}
	}

	g.sourceFile = cf.SourceFile
	g.className = cf.ThisClass
	for i := range cf.Methods {
		if err := g.prepareMethod(cf, &cf.Methods[i]); err != nil {
			return wasmerr.Wrap(err, g.sourceFile, g.className, -1)
		}
	}
	return nil
}

// ScanLibraries implements spec.md §6's library discovery: every
// *.class found under the given directories or archives is parsed with
// parser and fed through Prepare, in discovery order. One unparseable
// class file is logged and skipped; the rest of the scan continues
// (spec.md §7).
func (g *Generator) ScanLibraries(paths []string, parser classloader.Parser) error {
	return classloader.ScanLibraries(paths, parser, g.Prepare)
}

// prepareMethod implements spec.md §6's method-annotation contract.
// Grounded line-for-line on ModuleGenerator.prepareMethod in
// original_source: needThisParameter is called on the replacement
// method's own name purely for its side effect of marking that name
// Known, so it is never independently re-scanned (SPEC_FULL.md §9
// point 4).
func (g *Generator) prepareMethod(cf *classfile.ClassFile, method *classfile.MethodInfo) error {
	name := fn.New(cf.ThisClass, method.Name, method.Signature)
	if g.functions.IsKnown(name) {
		return nil
	}

	if a := method.Annotation("Replace"); a != nil {
		g.functions.NeedsThis(name)
		targetSigName, _ := a.Values["value"].(string)
		target := fn.FromSignatureName(targetSigName)
		g.functions.AddReplacement(target, method)
	}

	if a := method.Annotation("Import"); a != nil {
		if !method.IsStatic() {
			return wasmerr.AnnotationViolation{MethodName: name.SignatureName(), Detail: "import method must be static"}
		}
		g.functions.MarkAsImport(name, a.Values)
		return nil
	}

	if a := method.Annotation("Export"); a != nil {
		if !method.IsStatic() {
			return wasmerr.AnnotationViolation{MethodName: name.SignatureName(), Detail: "export method must be static"}
		}
		g.functions.MarkAsNeeded(name)
		return nil
	}

	return nil
}

// simpleClassName returns the last slash-separated segment of an
// internal class name, used as the default import module name.
func simpleClassName(className string) string {
	if i := strings.LastIndexByte(className, '/'); i >= 0 {
		return className[i+1:]
	}
	return className
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (g *Generator) wrapErr(err error, line int) error {
	return wasmerr.Wrap(err, g.sourceFile, g.className, maxInt(line, 0))
}
