// cw2wasm compiles a JVM class-file library into a WebAssembly module.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/timestamppb"

	_ "github.com/tliron/commonlog/simple"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/classloader"
	"github.com/inetmodule/cw2wasm/config"
	"github.com/inetmodule/cw2wasm/journal"
	"github.com/inetmodule/cw2wasm/lspserver"
	"github.com/inetmodule/cw2wasm/module"
	"github.com/inetmodule/cw2wasm/rpc"
	"github.com/inetmodule/cw2wasm/wasm"
	"github.com/inetmodule/cw2wasm/wasmerr"
	"github.com/inetmodule/cw2wasm/writer"
)

var log = commonlog.GetLogger("cw2wasm.cmd")

func main() {
	dir := flag.String("dir", ".", "project directory containing wasmjc.toml")
	serveMode := flag.Bool("serve", false, "start the grpc health/reflection and Connect diagnostics service")
	servePort := flag.Int("port", 4567, "port for --serve's grpc listener")
	diagPort := flag.Int("diag-port", 4568, "port for --serve's Connect JSON diagnostics HTTP listener")
	lspMode := flag.Bool("lsp", false, "start the editor language server on stdio")
	journalDriver := flag.String("journal-driver", "", "record a build journal: sqlite|duckdb")
	journalPath := flag.String("journal-path", "cw2wasm-journal.db", "path to the journal database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cw2wasm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles the libraries named in wasmjc.toml's [source] table into a WebAssembly module.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cw2wasm                          # compile ./wasmjc.toml once\n")
		fmt.Fprintf(os.Stderr, "  cw2wasm --serve --port 4567      # compile once, then serve health/diagnostics\n")
		fmt.Fprintf(os.Stderr, "  cw2wasm --lsp                    # run the editor language server on stdio\n")
	}
	flag.Parse()

	if *lspMode {
		runLSP(*dir)
		return
	}

	cfg, err := config.Load(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cw2wasm: %v\n", err)
		os.Exit(1)
	}

	var sink journal.Sink
	if *journalDriver != "" {
		sink, err = journal.NewSink(*journalDriver, *journalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cw2wasm: %v\n", err)
			os.Exit(1)
		}
		defer sink.Close()
	}

	healthSrv := rpc.NewHealthServer()
	diagSvc := rpc.NewDiagnosticsService()

	if *serveMode {
		go func() {
			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *servePort))
			if err != nil {
				log.Warningf("grpc listen: %v", err)
				return
			}
			if err := healthSrv.Serve(lis); err != nil {
				log.Warningf("grpc serve: %v", err)
			}
		}()
		go func() {
			addr := fmt.Sprintf(":%d", *diagPort)
			log.Infof("Connect JSON diagnostics listening on %s", addr)
			if err := http.ListenAndServe(addr, diagSvc.Handler()); err != nil {
				log.Warningf("diagnostics http serve: %v", err)
			}
		}()
	}

	startedAt := time.Now()
	diags := compileOnce(cfg, sink)
	report := &rpc.CompileReport{
		Success:     len(diags) == 0,
		StartedAt:   timestamppb.New(startedAt),
		FinishedAt:  timestamppb.New(time.Now()),
		Diagnostics: diags,
	}
	diagSvc.SetReport(report)

	if report.Success {
		healthSrv.MarkServing()
	} else {
		healthSrv.MarkFailed()
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", d.Kind, d.Detail)
		}
	}

	if *serveMode {
		select {} // keep serving until killed
	}
	if !report.Success {
		os.Exit(1)
	}
}

// unimplementedParser is the seam where a real JVM class-file decoder
// plugs in. Decoding the class-file binary format is explicitly out of
// scope for this compiler (spec.md §1) — every Prepare call in this
// repo's tests feeds an already-built *classfile.ClassFile directly.
type unimplementedParser struct{}

func (unimplementedParser) Parse(r io.Reader) (*classfile.ClassFile, error) {
	return nil, wasmerr.UnsupportedConstruct{Detail: "class-file binary decoding is not implemented by this module"}
}

func compileOnce(cfg *config.Config, sink journal.Sink) []rpc.Diagnostic {
	opts := wasm.StaticOptions{EH: cfg.Options.EnableEH, GC: cfg.Options.EnableGC}
	w := writer.NewTextWriter()
	gen := module.New(w, opts, nil)
	if sink != nil {
		gen.SetJournal(sink)
	}

	var parser classloader.Parser = unimplementedParser{}
	if err := gen.ScanLibraries(cfg.LibraryPaths(), parser); err != nil {
		return []rpc.Diagnostic{toDiagnostic(err)}
	}
	if err := gen.Finalize(); err != nil {
		return []rpc.Diagnostic{toDiagnostic(err)}
	}
	if err := gen.Finish(); err != nil {
		return []rpc.Diagnostic{toDiagnostic(err)}
	}

	out := cfg.OutputPath()
	if err := os.WriteFile(out, []byte(w.String()), 0o644); err != nil {
		return []rpc.Diagnostic{{Kind: "IOFailure", Detail: err.Error()}}
	}
	log.Infof("wrote %s", out)
	return nil
}

func toDiagnostic(err error) rpc.Diagnostic {
	d := rpc.Diagnostic{Detail: err.Error()}
	switch e := err.(type) {
	case wasmerr.MissingFunction:
		d.Kind, d.SignatureName = "MissingFunction", e.SignatureName
	case wasmerr.MissingClass:
		d.Kind, d.ClassName = "MissingClass", e.Name
	case wasmerr.UnsupportedConstruct:
		d.Kind = "UnsupportedConstruct"
	case wasmerr.AnnotationViolation:
		d.Kind = "AnnotationViolation"
	case wasmerr.ParseError:
		d.Kind = "ParseError"
	case wasmerr.IOFailure:
		d.Kind = "IOFailure"
	case *wasmerr.WasmException:
		inner := toDiagnostic(e.Err)
		inner.SourceFile = e.SourceFile
		inner.ClassName = e.ClassName
		inner.LineNumber = e.LineNumber
		return inner
	default:
		d.Kind = "Error"
	}
	return d
}

func runLSP(dir string) {
	compiler := &onceCompiler{dir: dir}
	srv := lspserver.New(compiler, dir)
	if err := srv.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cw2wasm lsp: %v\n", err)
		os.Exit(1)
	}
}

// onceCompiler adapts compileOnce to lspserver.Compiler: every save
// triggers an independent from-scratch compile, no cached scan state
// (SPEC_FULL.md §6.5).
type onceCompiler struct {
	dir string
}

func (c *onceCompiler) Compile(dir string) []lspserver.Diagnostic {
	cfg, err := config.Load(dir)
	if err != nil {
		return []lspserver.Diagnostic{{Message: err.Error()}}
	}
	diags := compileOnce(cfg, nil)
	out := make([]lspserver.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, lspserver.Diagnostic{
			Message:    fmt.Sprintf("%s: %s", d.Kind, d.Detail),
			SourceFile: d.SourceFile,
			LineNumber: d.LineNumber,
		})
	}
	return out
}
