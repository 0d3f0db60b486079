package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotLoggedIn is returned when no tokens are stored.
var ErrNotLoggedIn = errors.New("not logged in: run `kulai login` first")

// expiryLeeway refreshes the access token slightly before it expires so a
// request in flight doesn't land on the server with a dead token.
const expiryLeeway = 30 * time.Second

// Tokens is the persisted credential pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshFunc exchanges a refresh token for a new token pair.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Source supplies bearer tokens for remote requests, refreshing through
// refreshFn when the stored access token is expired or rejected.
type Source struct {
	mu        sync.Mutex
	store     *Store
	refreshFn RefreshFunc
	now       func() time.Time
}

// NewSource creates a Source over a token store. refreshFn may be nil, in
// which case expired tokens are surfaced as ErrNotLoggedIn.
func NewSource(store *Store, refreshFn RefreshFunc) *Source {
	return &Source{
		store:     store,
		refreshFn: refreshFn,
		now:       time.Now,
	}
}

// Token returns a usable access token, refreshing first when the stored one
// is at or past its exp claim.
func (s *Source) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.store.Load()
	if err != nil {
		return "", err
	}

	if tokenExpired(tok.AccessToken, s.now()) {
		refreshed, err := s.refreshLocked(ctx, tok)
		if err != nil {
			return "", err
		}
		return refreshed.AccessToken, nil
	}
	return tok.AccessToken, nil
}

// Refresh forces a token refresh, used after the server rejects a request
// with 401. Returns the new access token.
func (s *Source) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.store.Load()
	if err != nil {
		return "", err
	}
	refreshed, err := s.refreshLocked(ctx, tok)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (s *Source) refreshLocked(ctx context.Context, tok Tokens) (Tokens, error) {
	if s.refreshFn == nil || tok.RefreshToken == "" {
		return Tokens{}, ErrNotLoggedIn
	}
	refreshed, err := s.refreshFn(ctx, tok.RefreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("refresh tokens: %w", err)
	}
	if err := s.store.Save(refreshed); err != nil {
		return Tokens{}, err
	}
	return refreshed, nil
}

// tokenExpired reports whether the JWT's exp claim is within leeway of now.
// The signature is not verified; the server is the authority, this only
// avoids sending requests that are guaranteed to bounce. Tokens without a
// parseable exp are treated as live and left to the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(expiryLeeway).Before(exp.Time)
}
