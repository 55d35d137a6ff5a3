package application

import "testing"

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	if nilErr.Error() != "" {
		t.Fatalf("nil error message = %q", nilErr.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{
		"preferences.timezone": "unknown timezone",
	}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("populated error message = %q", got)
	}
}

func TestValidationErrorAccumulation(t *testing.T) {
	t.Parallel()

	verr := &ValidationError{}
	if verr.HasErrors() {
		t.Fatal("fresh error must report no fields")
	}

	verr.add("duration_minutes", "must be positive")
	if !verr.HasErrors() {
		t.Fatal("add must surface the recorded field")
	}

	prefs := &ValidationError{FieldErrors: map[string]string{
		"preferences.working_hours.monday": "start must precede end",
	}}
	verr.merge(prefs)
	if got := verr.FieldErrors["preferences.working_hours.monday"]; got != "start must precede end" {
		t.Fatalf("merged field = %q", got)
	}

	verr.merge(nil)
	if len(verr.FieldErrors) != 2 {
		t.Fatalf("merge with nil changed the field set: %v", verr.FieldErrors)
	}
}
