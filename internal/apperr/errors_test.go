package apperr

import (
	"errors"
	"testing"
)

func TestValidationWrapsSentinel(t *testing.T) {
	err := Validation("time is required")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err.Error() != "validation failed: time is required" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestGatewayKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Gateway("response", cause)
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}
