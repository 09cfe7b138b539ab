package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("tick: %w", Wrap(CodeDataIntegrity, "item 7 missing", errors.New("lookup")))
	if !errors.Is(err, New(CodeDataIntegrity, "")) {
		t.Fatalf("expected wrapped error to match by code")
	}
	if errors.Is(err, New(CodeTransport, "")) {
		t.Fatalf("expected code mismatch to not match")
	}
	if got := err.Error(); got != "tick: item 7 missing: lookup" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Fatalf("nil is not fatal")
	}
	if IsFatal(New(CodeTransport, "drop")) {
		t.Fatalf("transport errors are recoverable")
	}
	if IsFatal(New(CodeUnavailable, "loading")) {
		t.Fatalf("unavailable is transient")
	}
	if !IsFatal(New(CodeIdentityConflict, "seed")) || !IsFatal(New(CodeVersionConflict, "v")) || !IsFatal(New(CodeDataIntegrity, "row")) {
		t.Fatalf("conflict and integrity errors must be fatal")
	}
	if !IsFatal(errors.New("plain")) {
		t.Fatalf("uncoded errors default to fatal")
	}
}
