package classfile

import "testing"

// TestMethod_FindsByNameAndSignature verifies Method matches on the
// (name, signature) pair, not name alone, since overloads share a name.
func TestMethod_FindsByNameAndSignature(t *testing.T) {
	cf := &ClassFile{
		Methods: []MethodInfo{
			{Name: "m", Signature: "(I)V"},
			{Name: "m", Signature: "(Ljava/lang/String;)V"},
		},
	}
	got := cf.Method("m", "(Ljava/lang/String;)V")
	if got == nil || got.Signature != "(Ljava/lang/String;)V" {
		t.Fatalf("got %+v", got)
	}
	if cf.Method("m", "(J)V") != nil {
		t.Error("expected no match for an undeclared signature")
	}
}

// TestSuperclassName_EmptyForRoot verifies a class with no Super (the
// root of the hierarchy) reports an empty superclass name rather than
// panicking on a nil dereference.
func TestSuperclassName_EmptyForRoot(t *testing.T) {
	cf := &ClassFile{ThisClass: "java/lang/Object"}
	if got := cf.SuperclassName(); got != "" {
		t.Errorf("expected empty, got %q", got)
	}

	cf.Super = &ClassRef{Name: "java/lang/Object"}
	if got := cf.SuperclassName(); got != "java/lang/Object" {
		t.Errorf("got %q", got)
	}
}

// TestAnnotation_ClassAndMethodLookup verifies both class-level and
// method-level Annotation lookups return the first match by name and
// nil when absent, since annotation interpretation downstream assumes
// at most one annotation of a given kind per site.
func TestAnnotation_ClassAndMethodLookup(t *testing.T) {
	cf := &ClassFile{
		Annotations: []Annotation{
			{Name: "Import", Values: map[string]any{"module": "env"}},
		},
	}
	if a := cf.Annotation("Import"); a == nil || a.Values["module"] != "env" {
		t.Fatalf("got %+v", a)
	}
	if cf.Annotation("Export") != nil {
		t.Error("expected no match for an absent annotation")
	}

	m := &MethodInfo{
		Annotations: []Annotation{{Name: "Export", Values: map[string]any{"name": "add"}}},
	}
	if a := m.Annotation("Export"); a == nil || a.Values["name"] != "add" {
		t.Fatalf("got %+v", a)
	}
	if m.Annotation("Import") != nil {
		t.Error("expected no match for an absent method annotation")
	}
}

// TestIsStatic_ReflectsStaticFlag verifies IsStatic is a read-through
// to the Static field, used by @Import/@Export validation to reject
// instance methods.
func TestIsStatic_ReflectsStaticFlag(t *testing.T) {
	m := &MethodInfo{Static: true}
	if !m.IsStatic() {
		t.Error("expected IsStatic true")
	}
	m.Static = false
	if m.IsStatic() {
		t.Error("expected IsStatic false")
	}
}
