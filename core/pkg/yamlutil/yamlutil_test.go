package yamlutil

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func mustParse(t *testing.T, doc string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(doc), &n); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if len(n.Content) != 1 {
		t.Fatalf("expected single document node, got %d", len(n.Content))
	}
	return n.Content[0]
}

func TestCloneIsIndependent(t *testing.T) {
	orig := mustParse(t, "a: 1\nb: [1, 2]\n")
	clone := Clone(orig)

	clone.Content[1].Value = "99"
	if orig.Content[1].Value == "99" {
		t.Fatalf("mutating clone affected original")
	}
}

func TestMappingGetAndKeys(t *testing.T) {
	n := mustParse(t, "first: 1\nsecond: 2\nthird: 3\n")

	if got := MappingKeys(n); len(got) != 3 || got[0] != "first" || got[2] != "third" {
		t.Fatalf("unexpected key order: %v", got)
	}
	v := MappingGet(n, "second")
	if v == nil || v.Value != "2" {
		t.Fatalf("MappingGet(second) = %v", v)
	}
	if MappingGet(n, "missing") != nil {
		t.Fatalf("expected nil for missing key")
	}
}

func TestPreprocessObjSubstitutesEnvVars(t *testing.T) {
	t.Setenv("LATTICE_TEST_VAR", "hello")

	n := mustParse(t, "greeting: \"say [#LATTICE_TEST_VAR] now\"\nunterminated: \"oops [#no close\"\nunset: \"[#LATTICE_TEST_UNSET]\"\n")
	PreprocessObj(n)

	if got := MappingGet(n, "greeting").Value; got != "say hello now" {
		t.Fatalf("greeting = %q", got)
	}
	if got := MappingGet(n, "unterminated").Value; got != "oops [#no close" {
		t.Fatalf("unterminated = %q", got)
	}
	if got := MappingGet(n, "unset").Value; got != "" {
		t.Fatalf("unset = %q, want empty", got)
	}
}

func TestTypePredicates(t *testing.T) {
	n := mustParse(t, "a: 1\n")
	if !IsMapping(n) {
		t.Fatalf("expected mapping")
	}
	if IsSequence(n) || IsScalar(n) {
		t.Fatalf("mapping misclassified")
	}
	scalar := MappingGet(n, "a")
	if !IsScalar(scalar) {
		t.Fatalf("expected scalar")
	}
}
