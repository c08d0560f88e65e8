package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: apperr.Internal},
		{name: "not found", err: apperr.NotFoundf("connection not found"), want: apperr.NotFound},
		{name: "wrapped conflict", err: fmt.Errorf("send: %w", apperr.Conflictf("exists")), want: apperr.Conflict},
		{name: "rate limited", err: apperr.New(apperr.RateLimited, "slow down"), want: apperr.RateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs_Nil(t *testing.T) {
	if apperr.Is(nil, apperr.Internal) {
		t.Error("Is(nil, Internal) should be false")
	}
}

func TestMessageOf_HidesInternalCause(t *testing.T) {
	err := apperr.Wrap(apperr.Internal, "insert failed", errors.New("socket closed"))
	if got := apperr.MessageOf(err); got != "internal server error" {
		t.Errorf("MessageOf() = %q, want generic message", got)
	}
	if got := apperr.MessageOf(errors.New("raw")); got != "internal server error" {
		t.Errorf("MessageOf(raw) = %q, want generic message", got)
	}
}

func TestMessageOf_ClientKinds(t *testing.T) {
	err := apperr.Validationf("id is required")
	if got := apperr.MessageOf(err); got != "id is required" {
		t.Errorf("MessageOf() = %q, want %q", got, "id is required")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := apperr.Wrap(apperr.Conflict, "dup", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
