package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Validation("Can only finalize from %s phase", "cover letter")
	wrapped := fmt.Errorf("finalize: %w", base)

	if !IsValidation(wrapped) {
		t.Fatalf("expected validation kind")
	}
	if IsNotFound(wrapped) {
		t.Fatalf("unexpected not found kind")
	}
	if wrapped.Error() != "finalize: Can only finalize from cover letter phase" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}

func TestProcessingUnwraps(t *testing.T) {
	cause := errors.New("pdflatex exited 1")
	err := Processing(cause, "render resume")

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if err.Error() != "render resume: pdflatex exited 1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty kind for plain errors")
	}
}
