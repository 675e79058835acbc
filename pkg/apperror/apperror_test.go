package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsKindUnwraps(t *testing.T) {
	base := NotFound("customer missing")
	wrapped := fmt.Errorf("loading summary: %w", base)

	if !IsKind(wrapped, KindNotFound) {
		t.Fatal("expected KindNotFound through wrapping")
	}
	if IsKind(wrapped, KindConflict) {
		t.Fatal("wrong kind matched")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Fatal("plain error must not match any kind")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("already delivered"), http.StatusConflict},
		{Integrity("overpaid invoice"), http.StatusInternalServerError},
		{Internal("db down", errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("%v: want %d got %d", tc.err, tc.want, got)
		}
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Internal("failed to create invoice", errors.New("disk full"))
	if err.Error() != "failed to create invoice: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err.Code() != "internal_error" {
		t.Fatalf("unexpected code %q", err.Code())
	}
}
