// Package classfile models the structured view of a parsed class file that
// the module generator consumes. Parsing the raw class-file bytes into this
// shape is an external collaborator's job (spec.md §1); this package only
// carries the data the pipeline walks: class identity, hierarchy, methods,
// fields, source file, and per-method/-class annotations.
package classfile

import "github.com/inetmodule/cw2wasm/instr"

// Annotation is a decoded class or method annotation: a name (the
// annotation's internal type name, e.g. "Import") plus its key/value
// pairs. Interpretation of the keys is the generator's job (spec.md §9
// "Annotation-driven rewriting is data, not behavior").
type Annotation struct {
	Name   string
	Values map[string]any
}

// FieldInfo is a single declared field.
type FieldInfo struct {
	Name string
	Type string // JVM field descriptor, e.g. "I", "Ljava/lang/String;"
}

// Code is the already-built instruction stream for a method body. Building
// it from raw stack-machine bytecode is the external CodeBuilder
// collaborator's job; by the time a MethodInfo reaches this package its
// Code (if any) is a ready instr.CodeBuilder.
type Code struct {
	Builder      instr.CodeBuilder
	FirstLineNr  int
}

// MethodInfo is one method of a class file.
type MethodInfo struct {
	Name        string
	Signature   string // JVM method descriptor, e.g. "(II)I"
	Static      bool
	Code        *Code // nil for abstract/native methods
	Annotations []Annotation
}

// IsStatic reports whether the method has no implicit receiver.
func (m *MethodInfo) IsStatic() bool { return m.Static }

// Annotation returns the first annotation with the given name, or nil.
func (m *MethodInfo) Annotation(name string) *Annotation {
	for i := range m.Annotations {
		if m.Annotations[i].Name == name {
			return &m.Annotations[i]
		}
	}
	return nil
}

// ClassRef names a class without carrying its full definition; used for
// superclass and interface references.
type ClassRef struct {
	Name string
}

// ClassFile is the structured view of one compiled class.
type ClassFile struct {
	ThisClass  string // internal slash-form name, e.g. "com/acme/Foo"
	SourceFile string
	Super      *ClassRef
	Interfaces []ClassRef
	Methods    []MethodInfo
	Fields     []FieldInfo

	Annotations []Annotation
}

// Annotation returns the first class-level annotation with the given name,
// or nil.
func (c *ClassFile) Annotation(name string) *Annotation {
	for i := range c.Annotations {
		if c.Annotations[i].Name == name {
			return &c.Annotations[i]
		}
	}
	return nil
}

// Method looks up a method by name and JVM signature. Returns nil if this
// class file declares no such method (callers then walk the hierarchy).
func (c *ClassFile) Method(name, signature string) *MethodInfo {
	for i := range c.Methods {
		m := &c.Methods[i]
		if m.Name == name && m.Signature == signature {
			return m
		}
	}
	return nil
}

// SuperclassName returns the superclass's internal name, or "" if this
// class has none (i.e. it is java/lang/Object or equivalent root).
func (c *ClassFile) SuperclassName() string {
	if c.Super == nil {
		return ""
	}
	return c.Super.Name
}
