package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NewError(ErrNotFound, "account 1 not found"), "NOT_FOUND"},
		{"wrapped funds", fmt.Errorf("transfer: %w", NewError(ErrInsufficientFunds, "insufficient funds")), "INSUFFICIENT_FUNDS"},
		{"bare sentinel", ErrConflict, "CONFLICT"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "TIMEOUT"},
		{"cause kept", WrapError(ErrTimeout, errors.New("pq: lock timeout"), "lock wait timed out"), "TIMEOUT"},
		{"unknown", errors.New("disk on fire"), "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestMessageHidesInternals(t *testing.T) {
	cause := errors.New("pq: canceling statement due to lock timeout")
	err := fmt.Errorf("transfer failed: %w", WrapError(ErrTimeout, cause, "timed out waiting for account lock"))

	if got := Message(err); got != "timed out waiting for account lock" {
		t.Fatalf("Message() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should remain reachable through errors.Is")
	}
	if got := Message(errors.New("secret dsn")); got != "internal server error" {
		t.Fatalf("Message() = %q", got)
	}
}
