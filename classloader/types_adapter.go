package classloader

import (
	"github.com/inetmodule/cw2wasm/classfile"
	"github.com/inetmodule/cw2wasm/types"
)

// TypesAdapter satisfies types.Loader by wrapping a ClassFileLoader's
// Get calls and presenting classfile.ClassFile through the narrow view
// package types needs, keeping types from importing classfile directly.
type TypesAdapter struct {
	Loader *ClassFileLoader
}

func (a TypesAdapter) Get(className string) (types.ClassFile, error) {
	cf, err := a.Loader.Get(className)
	if err != nil {
		return nil, err
	}
	return classFileView{cf}, nil
}

type classFileView struct {
	cf *classfile.ClassFile
}

func (v classFileView) ThisClassName() string  { return v.cf.ThisClass }
func (v classFileView) SuperclassName() string { return v.cf.SuperclassName() }

func (v classFileView) VirtualMethods() []types.VirtualMethod {
	out := make([]types.VirtualMethod, 0, len(v.cf.Methods))
	for _, m := range v.cf.Methods {
		if m.Static || m.Name == "<init>" {
			continue
		}
		out = append(out, types.VirtualMethod{Name: m.Name, Signature: m.Signature})
	}
	return out
}
