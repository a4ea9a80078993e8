// Package classloader is the central cache and overlay for class-file
// access described in spec.md §4.1: first-write-wins caching, full-class
// @Replace substitution, and @Partial overlay merging.
package classloader

import (
	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/wasmerr"
)

// Underlying resolves a class name that was never explicitly cached —
// the classpath scan described in spec.md §6 "Library discovery" is an
// external concern; this is the seam it plugs into.
type Underlying interface {
	Load(className string) (*classfile.ClassFile, error)
}

// ClassFileLoader is the cache described in spec.md §4.1.
//
// Grounded on vm/content_store.go's map-backed content index — same
// shape (plain maps, no background eviction), minus the mutex, since
// the generator is single-threaded (spec.md §5).
type ClassFileLoader struct {
	cache      map[string]*classfile.ClassFile
	replaced   map[string]*classfile.ClassFile
	partials   map[string]*classfile.ClassFile
	mergedMemo map[string]*classfile.ClassFile

	underlying Underlying
}

// New returns a loader backed by the given underlying classpath
// resolver, which may be nil if every class is expected to already be
// cached.
func New(underlying Underlying) *ClassFileLoader {
	return &ClassFileLoader{
		cache:      make(map[string]*classfile.ClassFile),
		replaced:   make(map[string]*classfile.ClassFile),
		partials:   make(map[string]*classfile.ClassFile),
		mergedMemo: make(map[string]*classfile.ClassFile),
		underlying: underlying,
	}
}

// Cache records a parsed class file under its internal name.
// First-write-wins: a later Cache call for the same name is a no-op.
func (l *ClassFileLoader) Cache(cf *classfile.ClassFile) {
	if _, ok := l.cache[cf.ThisClass]; ok {
		return
	}
	l.cache[cf.ThisClass] = cf
}

// Replace records that Get(targetName) should return cf instead of
// whatever the classpath holds under that name.
func (l *ClassFileLoader) Replace(targetName string, cf *classfile.ClassFile) {
	l.replaced[targetName] = cf
	delete(l.mergedMemo, targetName)
}

// Partial records an overlay: Get(targetName) returns a merged view
// where methods/fields present in cf take precedence over the original,
// falling through to the original for everything else (shadow-fully
// semantics — see DESIGN.md's Open Question decision).
func (l *ClassFileLoader) Partial(targetName string, cf *classfile.ClassFile) {
	l.partials[targetName] = cf
	delete(l.mergedMemo, targetName)
}

// Get resolves name, honoring Replace/Partial overlays, falling back to
// the cache and then the underlying classpath resolver. Returns
// wasmerr.MissingClass if nothing produces a result.
func (l *ClassFileLoader) Get(name string) (*classfile.ClassFile, error) {
	if r, ok := l.replaced[name]; ok {
		return r, nil
	}
	if overlay, ok := l.partials[name]; ok {
		if m, ok := l.mergedMemo[name]; ok {
			return m, nil
		}
		base := l.cache[name]
		if base == nil && l.underlying != nil {
			if loaded, err := l.underlying.Load(name); err == nil {
				base = loaded
			}
		}
		if base == nil {
			l.mergedMemo[name] = overlay
			return overlay, nil
		}
		merged := mergeOverlay(base, overlay)
		l.mergedMemo[name] = merged
		return merged, nil
	}
	if cf, ok := l.cache[name]; ok {
		return cf, nil
	}
	if l.underlying != nil {
		cf, err := l.underlying.Load(name)
		if err == nil && cf != nil {
			l.cache[name] = cf
			return cf, nil
		}
	}
	return nil, wasmerr.MissingClass{Name: name}
}

// mergeOverlay shadows base's methods/fields with overlay's wherever
// overlay declares a method of the same (name, signature) or a field of
// the same name; everything else in base falls through unchanged.
func mergeOverlay(base, overlay *classfile.ClassFile) *classfile.ClassFile {
	merged := *base

	overlayMethod := make(map[string]bool, len(overlay.Methods))
	for _, m := range overlay.Methods {
		overlayMethod[m.Name+m.Signature] = true
	}
	methods := make([]classfile.MethodInfo, 0, len(base.Methods)+len(overlay.Methods))
	for _, m := range base.Methods {
		if !overlayMethod[m.Name+m.Signature] {
			methods = append(methods, m)
		}
	}
	methods = append(methods, overlay.Methods...)
	merged.Methods = methods

	overlayField := make(map[string]bool, len(overlay.Fields))
	for _, f := range overlay.Fields {
		overlayField[f.Name] = true
	}
	fields := make([]classfile.FieldInfo, 0, len(base.Fields)+len(overlay.Fields))
	for _, f := range base.Fields {
		if !overlayField[f.Name] {
			fields = append(fields, f)
		}
	}
	fields = append(fields, overlay.Fields...)
	merged.Fields = fields

	return &merged
}
