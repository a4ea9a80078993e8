// Package fn is the reachability and dispatch state of the module
// generator: function identity, the worklist states, replacements,
// aliases, and imports (spec.md §3 "FunctionManager", §4.2).
package fn

import "strings"

// FunctionName is the identity of a callable: owning class, method name,
// JVM-style signature, and a derived signatureName used for equality and
// as the canonical map key everywhere in this package.
type FunctionName struct {
	ClassName     string
	MethodName    string
	Signature     string
	signatureName string
}

// New builds a FunctionName and computes its canonical signatureName.
func New(className, methodName, signature string) FunctionName {
	return FunctionName{
		ClassName:     className,
		MethodName:    methodName,
		Signature:     signature,
		signatureName: className + "." + methodName + signature,
	}
}

// FromSignatureName parses the canonical "class.method(sig)ret" form back
// into a FunctionName. Used when @Replace's value attribute names a target
// by its full signature string.
func FromSignatureName(s string) FunctionName {
	paren := strings.IndexByte(s, '(')
	head, sig := s, ""
	if paren >= 0 {
		head, sig = s[:paren], s[paren:]
	}
	class, method := "", head
	if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
		class, method = head[:dot], head[dot+1:]
	}
	return New(class, method, sig)
}

// SignatureName is the canonical identity string this FunctionName is
// compared and hashed by.
func (n FunctionName) SignatureName() string { return n.signatureName }

func (n FunctionName) String() string { return n.signatureName }

// SyntheticFunctionName is a FunctionName with an optional synthetic
// payload instead of a class-file method: either inline WebAssembly text
// (to be parsed by the external WAT parser) or an import annotation.
// Spec.md's Design Notes call for this shape explicitly: "FunctionName
// with an optional synthetic payload instead of subclassing."
type SyntheticFunctionName struct {
	FunctionName

	HasWasmCode      bool
	WatCode          string
	ImportAnnotation map[string]any
}

// NewSyntheticCode builds a synthetic name carrying an inline WAT body.
func NewSyntheticCode(name FunctionName, watCode string) SyntheticFunctionName {
	return SyntheticFunctionName{FunctionName: name, HasWasmCode: true, WatCode: watCode}
}

// NewSyntheticImport builds a synthetic name carrying an import annotation.
func NewSyntheticImport(name FunctionName, annotation map[string]any) SyntheticFunctionName {
	return SyntheticFunctionName{FunctionName: name, ImportAnnotation: annotation}
}
