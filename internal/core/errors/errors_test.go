package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "function not found")
		if err.Error() != "[NOT_FOUND] function not found" {
			t.Errorf("expected [NOT_FOUND] function not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("disk gone")
		err := Wrap(original, CodeInternal, "snapshot write failed")
		expected := "[INTERNAL_ERROR] snapshot write failed: disk gone"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("WrapNil", func(t *testing.T) {
		if Wrap(nil, CodeInternal, "noop") != nil {
			t.Error("expected Wrap(nil) to return nil")
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := AddContext(New(CodeParse, "bad file"), CtxPath, "src/a.rs")
		err = AddContext(err, CtxPhase, "parse")
		expected := "[PARSE_ERROR] bad file (path=src/a.rs phase=parse)"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		inner := New(CodeValidationError, "no source files")
		outer := fmt.Errorf("build: %w", inner)
		if !IsCode(outer, CodeValidationError) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if IsCode(outer, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("AddContextPlainError", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "seal")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected plain errors to be promoted to %s", CodeInternal)
		}
	})
}
