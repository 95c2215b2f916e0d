package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("taken"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		var appErr *Error
		if !errors.As(tc.err, &appErr) {
			t.Fatalf("expected *Error, got %T", tc.err)
		}
		if got := appErr.Status(); got != tc.want {
			t.Fatalf("%v: expected status %d got %d", tc.err, tc.want, got)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("toggle like: %w", NotFound("video not found"))
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", KindOf(err))
	}
	if !Is(err, KindNotFound) {
		t.Fatal("expected Is to match wrapped kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("expected unclassified errors to be internal")
	}
}

func TestInternalMessageIncludesCause(t *testing.T) {
	err := Internal("account deletion failed", errors.New("tx aborted"))
	if err.Error() != "account deletion failed: tx aborted" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, err.(*Error).Err) {
		t.Fatal("expected cause to unwrap")
	}
}

func TestClientMessageHidesCauseByDefault(t *testing.T) {
	hidden := Internal("failed to fetch videos", errors.New("connection reset")).(*Error)
	if got := hidden.ClientMessage(); got != "failed to fetch videos" {
		t.Fatalf("unexpected client message %q", got)
	}

	shown := InternalWithCause("video deletion failed", errors.New("serialization failure")).(*Error)
	if got := shown.ClientMessage(); got != "video deletion failed: serialization failure" {
		t.Fatalf("unexpected client message %q", got)
	}

	empty := &Error{Kind: KindNotFound}
	if got := empty.ClientMessage(); got != "Not Found" {
		t.Fatalf("unexpected fallback message %q", got)
	}
}
