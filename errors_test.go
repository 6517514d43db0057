package kernel

import (
	"errors"
	"fmt"
	"testing"
)

type notFoundData struct {
	ID string
}

func TestErrorHelperThrowAndIs(t *testing.T) {
	notFound, err := NewErrorHelper("user.notFound", func(d notFoundData) string {
		return fmt.Sprintf("user %q not found", d.ID)
	}, WithRemediation(func(d notFoundData) string {
		return "check the id and retry"
	}))
	if err != nil {
		t.Fatalf("unexpected error building helper: %v", err)
	}

	thrown := notFound.Throw(notFoundData{ID: "42"})
	if !notFound.Is(thrown) {
		t.Fatal("expected Is(thrown) == true for the helper that threw it")
	}
	if !IsThrown(thrown) {
		t.Fatal("expected IsThrown(thrown) == true")
	}

	var te *ThrownError
	if !errors.As(thrown, &te) {
		t.Fatal("expected errors.As to narrow to *ThrownError")
	}
	if te.Remediation != "check the id and retry" {
		t.Fatalf("unexpected remediation: %q", te.Remediation)
	}
}

func TestErrorHelperIsFalseForDifferentHelper(t *testing.T) {
	a, _ := NewErrorHelper("err.a", func(struct{}) string { return "a" })
	b, _ := NewErrorHelper("err.b", func(struct{}) string { return "b" })

	if b.Is(a.Throw(struct{}{})) {
		t.Fatal("expected a different helper's Is() to report false")
	}
}

func TestNewErrorHelperRejectsOutOfRangeHTTPCode(t *testing.T) {
	if _, err := NewErrorHelper("err.bad", func(struct{}) string { return "" }, WithHTTPCode[struct{}](999)); err == nil {
		t.Fatal("expected a ConfigError for an out-of-range HTTP code")
	}
}

func TestIsThrownFalseForOrdinaryError(t *testing.T) {
	if IsThrown(errors.New("plain error")) {
		t.Fatal("expected IsThrown == false for a plain error")
	}
}

func TestSafeTypeAssertionSuccess(t *testing.T) {
	v, err := SafeTypeAssertion[int](5)
	if err != nil || v != 5 {
		t.Fatalf("expected (5, nil), got (%d, %v)", v, err)
	}
}

func TestSafeTypeAssertionNilYieldsZero(t *testing.T) {
	v, err := SafeTypeAssertion[string](nil)
	if err != nil || v != "" {
		t.Fatalf("expected (\"\", nil), got (%q, %v)", v, err)
	}
}

func TestSafeTypeAssertionMismatch(t *testing.T) {
	if _, err := SafeTypeAssertion[int]("not an int"); err == nil {
		t.Fatal("expected an error on type mismatch")
	}
}

func TestGraphErrorFormatsCycle(t *testing.T) {
	err := &GraphError{Reason: "dependency cycle detected", Cycle: []string{"a", "b", "a"}}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a non-empty message")
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := &TaskInputValidationError{TaskID: "t1", Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}
