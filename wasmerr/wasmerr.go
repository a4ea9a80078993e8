// Package wasmerr is the error taxonomy described in spec.md §7: a small
// set of typed errors the pipeline returns when a class, function, or
// construct cannot be resolved, plus a context wrapper that attaches the
// source location of the method being compiled when a lower-level error
// bubbles up through it.
package wasmerr

import "fmt"

// ParseError reports a malformed input the class-file or WAT collaborators
// handed to us — both of those parsers are external, so this only wraps
// whatever error they returned.
type ParseError struct {
	Detail string
	Err    error
}

func (e ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Detail)
}

func (e ParseError) Unwrap() error { return e.Err }

// MissingFunction reports that the worklist resolver (spec.md §4.4)
// exhausted every lookup path — direct, superclass, interface default —
// for a function the compilation reached.
type MissingFunction struct {
	SignatureName string
}

func (e MissingFunction) Error() string {
	return fmt.Sprintf("function not found: %s", e.SignatureName)
}

func (e MissingFunction) Unwrap() error { return nil }

// MissingClass reports that the ClassFileLoader could not resolve a class
// name through any of its overlays, cache, or underlying classpath.
type MissingClass struct {
	Name string
}

func (e MissingClass) Error() string {
	return fmt.Sprintf("class not found: %s", e.Name)
}

func (e MissingClass) Unwrap() error { return nil }

// UnsupportedConstruct reports a language construct the generator
// deliberately does not lower — interface calls, chiefly (spec.md §4.7).
type UnsupportedConstruct struct {
	Detail string
}

func (e UnsupportedConstruct) Error() string {
	return fmt.Sprintf("unsupported construct: %s", e.Detail)
}

func (e UnsupportedConstruct) Unwrap() error { return nil }

// AnnotationViolation reports an annotation used in a way spec.md §4.6
// forbids — an @Import or @Export on a non-static method, for instance.
type AnnotationViolation struct {
	MethodName string
	Detail     string
}

func (e AnnotationViolation) Error() string {
	return fmt.Sprintf("annotation violation on %s: %s", e.MethodName, e.Detail)
}

func (e AnnotationViolation) Unwrap() error { return nil }

// IOFailure wraps a failure reading a class-file archive or writing the
// output module — spec.md §6's library discovery and module emission are
// both filesystem-bound.
type IOFailure struct {
	Detail string
	Err    error
}

func (e IOFailure) Error() string {
	return fmt.Sprintf("io failure: %s: %v", e.Detail, e.Err)
}

func (e IOFailure) Unwrap() error { return e.Err }

// WasmException attaches the source location of the method being compiled
// to an error raised while scanning or emitting it, per spec.md §7's call
// for site-context wrapping. SourceFile and LineNumber may be empty/zero
// when the originating method has no debug info.
type WasmException struct {
	SourceFile  string
	ClassName   string
	LineNumber  int
	Err         error
}

func (e *WasmException) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("%s:%d (%s): %v", e.SourceFile, e.LineNumber, e.ClassName, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.SourceFile, e.ClassName, e.Err)
}

func (e *WasmException) Unwrap() error { return e.Err }

// Wrap attaches class/source/line context to err, returning nil if err is
// nil so call sites can wrap unconditionally.
func Wrap(err error, sourceFile, className string, lineNumber int) error {
	if err == nil {
		return nil
	}
	return &WasmException{SourceFile: sourceFile, ClassName: className, LineNumber: lineNumber, Err: err}
}
