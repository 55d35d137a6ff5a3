package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("evt")
	if got := gen.Next(); got != "evt-1" {
		t.Fatalf("first id = %q", got)
	}
	if got := gen.Next(); got != "evt-2" {
		t.Fatalf("second id = %q", got)
	}

	gen.Reset()
	if got := gen.Next(); got != "evt-1" {
		t.Fatalf("id after reset = %q", got)
	}
}

func TestIDGeneratorDefaultsAndNilSafety(t *testing.T) {
	t.Parallel()

	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("default prefix id = %q", got)
	}

	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("nil generator id = %q", got)
	}
}
