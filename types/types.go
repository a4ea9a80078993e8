// Package types assigns stable class indices, lays out struct fields, and
// builds v-tables (spec.md §4.3 "TypeManager").
package types

import (
	"fmt"

	"github.com/inetmodule/cw2wasm/fn"
	"github.com/inetmodule/cw2wasm/wasm"
)

// VTableFieldName is the synthetic field every StructType carries at a
// fixed position, holding the class's v-table index.
const VTableFieldName = "$vtable"

// StructType is the struct layout the type manager assigns to one class:
// a stable classIndex, an ordered field list (the VTABLE field first),
// and the resolved v-table used by virtual-call lowering.
type StructType struct {
	ClassName  string
	classIndex int32
	fields     []wasm.NamedStorageType

	// Slots holds, for this class, the most-derived override reachable
	// for each global virtual-method slot. Sized to the widest slot
	// assigned across the whole compilation; see PrepareFinish.
	Slots []fn.FunctionName
}

// ClassIndex returns the stable index assigned on first ValueOf call.
func (s *StructType) ClassIndex() int32 { return s.classIndex }

// Fields returns the struct's declared fields, VTABLE field first.
func (s *StructType) Fields() []wasm.NamedStorageType { return s.fields }

func (s *StructType) String() string { return "struct:" + s.ClassName }

// TypeManager owns class->StructType assignment and v-table resolution.
//
// Grounded on vm/class.go's hierarchy-walk helpers (InstVarIndex,
// AllInstVarNames) for the slot/field bookkeeping, and vm/vtable.go's
// AddMethod/Lookup for the shape of a slot-indexed dispatch table.
type TypeManager struct {
	options wasm.Options

	byClass    map[string]*StructType
	classOrder []string

	slotIndex map[string]int
	slotOrder []string

	slotMaps map[string]map[int]fn.FunctionName // className -> slot -> override
}

// NewTypeManager returns an empty manager.
func NewTypeManager() *TypeManager {
	return &TypeManager{
		byClass:   make(map[string]*StructType),
		slotIndex: make(map[string]int),
		slotMaps:  make(map[string]map[int]fn.FunctionName),
	}
}

// Init stores the compiler options on the manager. No TypeManager
// method reads them; emission consults the options through the module
// generator.
func (tm *TypeManager) Init(opts wasm.Options) { tm.options = opts }

// ValueOf returns the StructType for className, assigning a new,
// monotonically increasing classIndex on first call. Idempotent.
func (tm *TypeManager) ValueOf(className string) *StructType {
	if st, ok := tm.byClass[className]; ok {
		return st
	}
	st := &StructType{
		ClassName:  className,
		classIndex: int32(len(tm.classOrder)),
		fields: []wasm.NamedStorageType{
			{Name: VTableFieldName, Type: wasm.I32},
		},
	}
	tm.byClass[className] = st
	tm.classOrder = append(tm.classOrder, className)
	return st
}

// slotFor assigns (or returns) the global slot index shared by every
// override of the given (methodName+signature) virtual method, across
// every class in the program.
func (tm *TypeManager) slotFor(key string) int {
	if idx, ok := tm.slotIndex[key]; ok {
		return idx
	}
	idx := len(tm.slotOrder)
	tm.slotIndex[key] = idx
	tm.slotOrder = append(tm.slotOrder, key)
	return idx
}

// SlotIndex returns the global slot assigned to (methodName,signature),
// or -1 if it was never registered by PrepareFinish.
func (tm *TypeManager) SlotIndex(methodName, signature string) int {
	if idx, ok := tm.slotIndex[methodName+signature]; ok {
		return idx
	}
	return -1
}

// ClassFile is the minimal view PrepareFinish needs of a loaded class to
// walk the hierarchy; classloader.TypesAdapter hands out values
// satisfying it without this package importing classloader (which would
// cycle back through classfile/fn).
type ClassFile interface {
	ThisClassName() string
	SuperclassName() string
	VirtualMethods() []VirtualMethod
}

// VirtualMethod is one non-static, non-constructor method signature a
// class declares, as seen by hierarchy/v-table resolution.
type VirtualMethod struct {
	Name      string
	Signature string
}

// Loader resolves a class name to its ClassFile view. Declared locally
// (rather than importing classloader) to keep this package at the
// bottom of the dependency graph alongside fn and wasm.
type Loader interface {
	Get(className string) (ClassFile, error)
}

// Functions is the subset of FunctionManager that v-table resolution
// needs: marking an override reachable. Declared locally for the same
// reason as Loader.
type Functions interface {
	MarkAsNeeded(name fn.FunctionName)
}

// Writer is the subset of ModuleWriter that v-table emission needs.
type Writer interface {
	WriteVTable(st *StructType) error
}

// PrepareFinish walks every class the compilation has touched, resolves
// each one's v-table by picking, per global virtual-method slot, the
// most-derived override reachable by walking from the class up to its
// root ancestor, marks every selected override Needed, and asks the
// writer to emit the resulting table. Spec.md §4.3/§4.4's fixed-point
// note applies: this can promote new overrides to Needed, so the
// caller must re-drain the scan worklist afterward.
func (tm *TypeManager) PrepareFinish(w Writer, functions Functions, loader Loader) error {
	for _, className := range tm.classOrder {
		slots := make(map[int]fn.FunctionName)
		seen := make(map[string]bool)

		curName := className
		for curName != "" {
			cf, err := loader.Get(curName)
			if err != nil {
				return fmt.Errorf("types: resolving %q for v-table of %q: %w", curName, className, err)
			}
			for _, m := range cf.VirtualMethods() {
				key := m.Name + m.Signature
				if seen[key] {
					continue // a more-derived class already claimed this slot
				}
				seen[key] = true
				slot := tm.slotFor(key)
				name := fn.New(cf.ThisClassName(), m.Name, m.Signature)
				slots[slot] = name
				functions.MarkAsNeeded(name)
			}
			curName = cf.SuperclassName()
		}

		tm.slotMaps[className] = slots
	}

	width := len(tm.slotOrder)
	for _, className := range tm.classOrder {
		st := tm.byClass[className]
		st.Slots = make([]fn.FunctionName, width)
		for slot, name := range tm.slotMaps[className] {
			st.Slots[slot] = name
		}
		if err := w.WriteVTable(st); err != nil {
			return fmt.Errorf("types: writing v-table for %q: %w", className, err)
		}
	}
	return nil
}
