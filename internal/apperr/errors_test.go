package apperr

import (
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrMissingCredential, "missing-credential"},
		{ErrRateLimited, "rate-limited"},
		{fmt.Errorf("wrapped: %w", ErrPayloadTooLarge), "payload-too-large"},
		{&TransportError{Status: 503}, "transport-error"},
		{ErrBusy, "busy"},
		{ErrNoSession, "no-session"},
		{fmt.Errorf("anything else"), "internal"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(ErrMissingCredential); got != "Clé API non configurée. Allez dans les paramètres." {
		t.Errorf("missing credential message = %q", got)
	}
	if got := UserMessage(&TransportError{Status: 503}); got != "Erreur serveur (503). Réessayez." {
		t.Errorf("transport message = %q", got)
	}
	if got := UserMessage(fmt.Errorf("boom")); got != "Une erreur est survenue. Réessayez." {
		t.Errorf("fallback message = %q", got)
	}
}
