// Package journal records one row per scanned/written function and one
// row per resolved class during a compilation, purely for
// observability (SPEC_FULL.md §6.3). It never feeds back into
// scan/resolve/emit decisions and keeps no cross-run state, so the
// "no incremental compilation" Non-goal holds regardless of whether a
// journal is attached.
package journal

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// FunctionRecord is one row recorded per scanned or written function.
type FunctionRecord struct {
	SignatureName string `cbor:"signature_name"`
	ClassName     string `cbor:"class_name"`
	Phase         string `cbor:"phase"` // "scanned" or "written"
	StartedAt     int64  `cbor:"started_at"`
	FinishedAt    int64  `cbor:"finished_at"`
}

// ClassRecord is one row recorded per class resolved through the
// loader (cached, replaced, or partial-merged).
type ClassRecord struct {
	Name       string `cbor:"name"`
	Kind       string `cbor:"kind"` // "cached", "replaced", "partial"
	ResolvedAt int64  `cbor:"resolved_at"`
}

// MarshalFunctionRecord serializes r to canonical CBOR.
func MarshalFunctionRecord(r *FunctionRecord) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalFunctionRecord deserializes a FunctionRecord from CBOR bytes.
func UnmarshalFunctionRecord(data []byte) (*FunctionRecord, error) {
	var r FunctionRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("journal: unmarshal function record: %w", err)
	}
	return &r, nil
}

// MarshalClassRecord serializes r to canonical CBOR.
func MarshalClassRecord(r *ClassRecord) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalClassRecord deserializes a ClassRecord from CBOR bytes.
func UnmarshalClassRecord(data []byte) (*ClassRecord, error) {
	var r ClassRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("journal: unmarshal class record: %w", err)
	}
	return &r, nil
}

// Sink is the pluggable journal backend. RecordFunction/RecordClass are
// called once per event; Close flushes and releases the backend.
type Sink interface {
	RecordFunction(r *FunctionRecord) error
	RecordClass(r *ClassRecord) error
	Close() error
}
