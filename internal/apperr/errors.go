// Package apperr defines the error kinds of the generation pipeline and
// their user-facing messages. Every kind is terminal for the call that
// produced it; there is no automatic retry anywhere in the application.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means no API key is configured. The client
	// fails before any network call is made.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential maps an authorization rejection (401).
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrRateLimited maps a throttling response (429).
	ErrRateLimited = errors.New("rate limited")
	// ErrPayloadTooLarge maps a size rejection (413).
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrNetworkUnreachable means the remote service could not be reached.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrDecodeFailure means an image could not be loaded. Per item only;
	// it must never abort a sibling in the same import batch.
	ErrDecodeFailure = errors.New("image decode failure")

	// ErrNotFound and ErrConflict cover document store operations.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrBusy means a generation is already in flight for the session.
	ErrBusy = errors.New("generation already in flight")
	// ErrNoSession means a work-mode operation was issued without a
	// loaded source document.
	ErrNoSession = errors.New("no active work session")
)

// TransportError carries any other non-success HTTP status from the
// generation service.
type TransportError struct {
	Status int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%d)", e.Status)
}

// Kind returns the stable machine-readable name of an error kind, used in
// API responses and logs.
func Kind(err error) string {
	var te *TransportError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing-credential"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid-credential"
	case errors.Is(err, ErrRateLimited):
		return "rate-limited"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload-too-large"
	case errors.Is(err, ErrNetworkUnreachable):
		return "network-unreachable"
	case errors.Is(err, ErrDecodeFailure):
		return "decode-failure"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrNoSession):
		return "no-session"
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.As(err, &te):
		return "transport-error"
	default:
		return "internal"
	}
}

// UserMessage maps an error to the short message shown to the user.
func UserMessage(err error) string {
	var te *TransportError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "Clé API non configurée. Allez dans les paramètres."
	case errors.Is(err, ErrInvalidCredential):
		return "Clé API invalide. Vérifiez dans les paramètres."
	case errors.Is(err, ErrRateLimited):
		return "Trop de requêtes. Attendez 1 minute avant de réessayer."
	case errors.Is(err, ErrPayloadTooLarge):
		return "Images trop lourdes. Essayez avec moins de photos."
	case errors.Is(err, ErrNetworkUnreachable):
		return "Pas de connexion internet."
	case errors.Is(err, ErrDecodeFailure):
		return "Impossible de charger l'image."
	case errors.Is(err, ErrBusy):
		return "Une génération est déjà en cours."
	case errors.Is(err, ErrNoSession):
		return "Aucune fiche source chargée."
	case errors.Is(err, ErrNotFound):
		return "Fiche introuvable."
	case errors.Is(err, ErrConflict):
		return "La fiche a été modifiée entre-temps."
	case errors.As(err, &te):
		return fmt.Sprintf("Erreur serveur (%d). Réessayez.", te.Status)
	default:
		return "Une erreur est survenue. Réessayez."
	}
}
