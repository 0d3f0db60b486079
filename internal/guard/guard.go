// Package guard holds the gatekeeping logic protecting lesson-taking views
// from running without a valid, matching session. Rendering and navigation
// belong to the hosting screen; the guard only decides.
package guard

import (
	"context"

	"github.com/rs/zerolog"
)

// SessionStore is the store surface the guard needs.
type SessionStore interface {
	SessionID() string
	IsInitialized() bool
	CheckSessionExists(ctx context.Context, id string) bool
	LoadSession(ctx context.Context, id string) (bool, error)
}

// Decision is the guard's verdict.
type Decision int

const (
	// Allow renders the protected view.
	Allow Decision = iota
	// RedirectHome sends the learner to the safe default view. Missing or
	// invalid sessions are an expected navigational edge case, not an
	// error page.
	RedirectHome
)

// Authorize checks the navigation target against the store. With a target
// id it requires that session to exist and load (a store already holding
// the same id passes without a reload); without one it requires a session
// to be initialized already.
func Authorize(ctx context.Context, store SessionStore, requestedID string, log zerolog.Logger) Decision {
	if requestedID == "" {
		if store.IsInitialized() {
			return Allow
		}
		log.Debug().Msg("guard: no session initialized, redirecting")
		return RedirectHome
	}

	if store.SessionID() == requestedID {
		return Allow
	}

	if !store.CheckSessionExists(ctx, requestedID) {
		log.Debug().Str("session", requestedID).Msg("guard: session not found, redirecting")
		return RedirectHome
	}

	ok, err := store.LoadSession(ctx, requestedID)
	if err != nil {
		log.Error().Err(err).Str("session", requestedID).Msg("guard: session load failed")
		return RedirectHome
	}
	if !ok {
		log.Debug().Str("session", requestedID).Msg("guard: session unusable, redirecting")
		return RedirectHome
	}
	return Allow
}
