package fn

import "github.com/inetmodule/cw2wasm/classfile"

// state is the monotonic position of a FunctionName in the pipeline.
// Transitions only move forward except via aliasing, which retires a
// name without ever promoting it to Scanned/Written (spec.md §3).
type state int8

const (
	unknown state = iota
	known
	needed
	scanned
	written
)

// FunctionManager is the worklist and dispatch table described in
// spec.md §4.2. It owns no instruction data; it only tracks which names
// exist, what state they are in, and how calls to them should resolve.
//
// Grounded on vm/vtable.go's ordered-slot-with-monotonic-promotion shape
// and vm/content_store.go's plain map-backed index (no concurrency here:
// the generator is single-threaded per spec.md §5, so no mutex).
type FunctionManager struct {
	states    map[FunctionName]state
	needsThis map[FunctionName]bool

	replacements map[FunctionName]*classfile.MethodInfo
	aliases      map[FunctionName]FunctionName
	imports      map[FunctionName]map[string]any
	synthetics   map[FunctionName]SyntheticFunctionName

	neededOrder []FunctionName
	neededSeen  map[FunctionName]bool
	scanCursor  int

	writeOrder []FunctionName
	writeSeen  map[FunctionName]bool

	finished bool
}

// NewFunctionManager returns an empty, ready-to-use manager.
func NewFunctionManager() *FunctionManager {
	return &FunctionManager{
		states:       make(map[FunctionName]state),
		needsThis:    make(map[FunctionName]bool),
		replacements: make(map[FunctionName]*classfile.MethodInfo),
		aliases:      make(map[FunctionName]FunctionName),
		imports:      make(map[FunctionName]map[string]any),
		synthetics:   make(map[FunctionName]SyntheticFunctionName),
		neededSeen:   make(map[FunctionName]bool),
		writeSeen:    make(map[FunctionName]bool),
	}
}

// IsKnown reports whether prepareMethod (or any other caller) has already
// observed this name, in any state.
func (fm *FunctionManager) IsKnown(name FunctionName) bool {
	return fm.states[name] != unknown
}

// MarkAsNeeded promotes Unknown/Known to Needed and enqueues the name for
// scanning. Idempotent once the name is already Needed or further along.
func (fm *FunctionManager) MarkAsNeeded(name FunctionName) {
	if fm.states[name] >= needed {
		return
	}
	fm.states[name] = needed
	if !fm.neededSeen[name] {
		fm.neededSeen[name] = true
		fm.neededOrder = append(fm.neededOrder, name)
	}
}

// RegisterSynthetic records name as a compiler-synthesized function
// (WAT body or import) and marks it Needed so it drains through the
// worklist like any other reachable function.
func (fm *FunctionManager) RegisterSynthetic(synth SyntheticFunctionName) {
	fm.synthetics[synth.FunctionName] = synth
	fm.MarkAsNeeded(synth.FunctionName)
}

// Synthetic returns the synthetic payload for name, if any.
func (fm *FunctionManager) Synthetic(name FunctionName) (SyntheticFunctionName, bool) {
	s, ok := fm.synthetics[name]
	return s, ok
}

// MarkAsImport records name as externally provided: it is emitted as an
// import rather than scanned for a body. May be called on a name that is
// not yet Known, in which case it is promoted to Known first.
func (fm *FunctionManager) MarkAsImport(name FunctionName, annotation map[string]any) {
	if fm.states[name] < known {
		fm.states[name] = known
	}
	fm.imports[name] = annotation
}

// ImportAnnotation returns the import annotation recorded for name, if
// any.
func (fm *FunctionManager) ImportAnnotation(name FunctionName) (map[string]any, bool) {
	a, ok := fm.imports[name]
	return a, ok
}

// AddReplacement records that compiling originalName should use
// replacement's body instead of whatever class-file lookup would find.
func (fm *FunctionManager) AddReplacement(originalName FunctionName, replacement *classfile.MethodInfo) {
	fm.replacements[originalName] = replacement
}

// Replace returns the replacement method for name if one was registered,
// else returns method unchanged (including nil).
func (fm *FunctionManager) Replace(name FunctionName, method *classfile.MethodInfo) *classfile.MethodInfo {
	if r, ok := fm.replacements[name]; ok {
		return r
	}
	return method
}

// NeedsThis reports whether name receives an implicit receiver as its
// first parameter. The first call on a name not yet known both promotes
// it to Known and latches the flag true — this is how @Replace
// registration marks its own replacement-method name as known without
// running it through the normal Needed/Scanned pipeline (spec.md §4.2,
// SPEC_FULL.md §9 point 4). Once true for a name, it never reverts.
func (fm *FunctionManager) NeedsThis(name FunctionName) bool {
	if fm.states[name] == unknown {
		fm.states[name] = known
		fm.needsThis[name] = true
		return true
	}
	return fm.needsThis[name]
}

// SetAlias records that from is satisfied by to: callers of from are
// resolved to to's body, and from is never itself scanned or written.
func (fm *FunctionManager) SetAlias(from, to FunctionName) {
	fm.aliases[from] = to
}

// Alias returns the name from resolves to, if any.
func (fm *FunctionManager) Alias(name FunctionName) (FunctionName, bool) {
	to, ok := fm.aliases[name]
	return to, ok
}

// NextScanLater returns the next name in Needed-but-not-yet-scanned
// order (FIFO on promotion), or false when the queue is exhausted. The
// queue is a live view over neededOrder, so names appended by the
// caller mid-drain (aliased targets, type-finalization overrides) are
// still yielded before the loop terminates.
func (fm *FunctionManager) NextScanLater() (FunctionName, bool) {
	if fm.scanCursor >= len(fm.neededOrder) {
		return FunctionName{}, false
	}
	name := fm.neededOrder[fm.scanCursor]
	fm.scanCursor++
	return name, true
}

// MarkAsScanned promotes name to Scanned and latches needsThis (sticky
// true, per NeedsThis's contract). Unless name is an alias or an import,
// it is also appended to the write-later queue in first-promotion order.
func (fm *FunctionManager) MarkAsScanned(name FunctionName, needsThis bool) {
	fm.states[name] = scanned
	if needsThis {
		fm.needsThis[name] = true
	}
	if _, isAlias := fm.aliases[name]; isAlias {
		return
	}
	if _, isImport := fm.imports[name]; isImport {
		return
	}
	if !fm.writeSeen[name] {
		fm.writeSeen[name] = true
		fm.writeOrder = append(fm.writeOrder, name)
	}
}

// MarkAsWritten records that name has produced output. Idempotent.
func (fm *FunctionManager) MarkAsWritten(name FunctionName) {
	fm.states[name] = written
}

// NeedToWrite reports whether name is Scanned and still awaiting
// emission (false once written, or if it was never a write-bucket
// member at all).
func (fm *FunctionManager) NeedToWrite(name FunctionName) bool {
	return fm.states[name] == scanned
}

// GetNeededImports iterates every Needed-or-later name that was marked
// as an import, in first-promotion order.
func (fm *FunctionManager) GetNeededImports() *NameIter {
	return &NameIter{fm: fm, filter: func(fm *FunctionManager, n FunctionName) bool {
		_, ok := fm.imports[n]
		return ok
	}}
}

// GetNeededFunctions iterates every Needed-or-later name that is neither
// an import nor an alias target redirection (aliased names never get
// their own function-type-table entry; callers resolve through to the
// alias target instead).
func (fm *FunctionManager) GetNeededFunctions() *NameIter {
	return &NameIter{fm: fm, filter: func(fm *FunctionManager, n FunctionName) bool {
		if _, ok := fm.imports[n]; ok {
			return false
		}
		if _, ok := fm.aliases[n]; ok {
			return false
		}
		return true
	}}
}

// GetWriteLater iterates every function still needing a body emitted,
// in first-promotion-to-Scanned order.
func (fm *FunctionManager) GetWriteLater() *NameIter {
	return &NameIter{fm: fm, write: true}
}

// PrepareFinish freezes the manager for the emission phase. Per
// spec.md §4.2, the write bucket still accepts new entries afterward
// (override trampolines discovered while emitting); this call exists
// chiefly to document that milestone rather than to block anything.
func (fm *FunctionManager) PrepareFinish() {
	fm.finished = true
}

// Finished reports whether PrepareFinish has run.
func (fm *FunctionManager) Finished() bool { return fm.finished }

// NameIter is a live, restartable iterator over one of the manager's
// ordered buckets. "Live" means it reads the backing slice fresh on
// every Next call, so entries appended after iteration starts are still
// observed, per spec.md §4.2's iterator contract.
type NameIter struct {
	fm     *FunctionManager
	filter func(*FunctionManager, FunctionName) bool
	write  bool
	idx    int
}

// Next returns the next matching name, or false when exhausted (as of
// this call — a later call may yield more if the backing bucket grew).
func (it *NameIter) Next() (FunctionName, bool) {
	list := it.fm.neededOrder
	if it.write {
		list = it.fm.writeOrder
	}
	for it.idx < len(list) {
		n := list[it.idx]
		it.idx++
		if it.filter == nil || it.filter(it.fm, n) {
			return n, true
		}
	}
	return FunctionName{}, false
}
