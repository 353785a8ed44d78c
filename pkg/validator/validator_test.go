package validator

import "testing"

func TestValidator(t *testing.T) {
	v := New()
	if !v.Valid() {
		t.Fatal("new validator must be valid")
	}

	v.Check(true, "pickup", "must be provided")
	v.Check(false, "destination", "must be provided")
	v.Check(false, "destination", "second message")

	if v.Valid() {
		t.Fatal("expected validator to be invalid")
	}
	if len(v.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(v.Errors))
	}
	if got := v.Errors["destination"]; got != "must be provided" {
		t.Errorf("first message must win, got %q", got)
	}
}

func TestPermittedValue(t *testing.T) {
	if !PermittedValue("DRIVER", "PASSENGER", "DRIVER") {
		t.Error("DRIVER should be permitted")
	}
	if PermittedValue(3, 1, 2) {
		t.Error("3 should not be permitted")
	}
}
