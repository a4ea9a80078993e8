package classloader

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/wasmerr"
)

var log = commonlog.GetLogger("cw2wasm.classloader")

// Parser turns raw class-file bytes into a classfile.ClassFile. Parsing
// the class-file binary format is explicitly out of scope for this
// module (spec.md §1); ScanLibraries only needs a seam to hand bytes
// to whatever does that job.
type Parser interface {
	Parse(r io.Reader) (*classfile.ClassFile, error)
}

// ScanLibraries implements spec.md §6's library discovery: for each
// given path, if it is a directory every *.class file under it is
// parsed; otherwise the path is opened as an archive and each *.class
// entry is parsed. A parse failure is logged and that one class is
// skipped; the scan of the remaining library continues (spec.md §7's
// ParseError contract). onClass is invoked for each successfully
// parsed class file.
//
// Grounded on ModuleGenerator.scanLibraries in original_source: the
// directory branch and the archive branch are tried independently per
// path (a path that is a directory is never also opened as a zip), and
// the archive branch shields each entry's reader so an early Close on
// one corrupt entry cannot terminate the outer zip iteration
// (SPEC_FULL.md §9 point 5). A parser panic is not recovered.
func ScanLibraries(paths []string, parser Parser, onClass func(*classfile.ClassFile) error) error {
	for _, path := range paths {
		if err := scanOnePath(path, parser, onClass); err != nil {
			return err
		}
	}
	return nil
}

func scanOnePath(path string, parser Parser, onClass func(*classfile.ClassFile) error) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return scanDirectory(path, parser, onClass)
	}
	return scanArchive(path, parser, onClass)
}

func scanDirectory(dir string, parser Parser, onClass func(*classfile.ClassFile) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			log.Warningf("opening %s: %v", path, err)
			return nil
		}
		defer f.Close()

		cf, err := parser.Parse(f)
		if err != nil {
			log.Warningf("parse error with %s: %v", path, err)
			return nil
		}
		return onClass(cf)
	})
}

func scanArchive(path string, parser Parser, onClass func(*classfile.ClassFile) error) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return wasmerr.IOFailure{Detail: "opening archive " + path, Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		if err := scanArchiveEntry(f, parser, onClass); err != nil {
			log.Warningf("parsing error with %s in %s: %v", f.Name, path, err)
		}
	}
	return nil
}

// scanArchiveEntry opens one zip entry, hands the parser a reader whose
// Close is a no-op (shielded), and always closes the real entry stream
// itself exactly once regardless of what the parser does with its copy.
func scanArchiveEntry(f *zip.File, parser Parser, onClass func(*classfile.ClassFile) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	cf, err := parser.Parse(shieldedReader{rc})
	if err != nil {
		return err
	}
	return onClass(cf)
}

// shieldedReader hands out a reader whose Close never reaches the
// underlying stream, so a parser that closes what it's given cannot
// prematurely end the outer archive iteration.
type shieldedReader struct {
	io.Reader
}

func (shieldedReader) Close() error { return nil }
