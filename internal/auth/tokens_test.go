package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "learner",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "tokens.json"))
}

func TestStoreRoundTrip(t *testing.T) {
	store := tempStore(t)

	if _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("empty store: %v, want ErrNotLoggedIn", err)
	}

	want := Tokens{AccessToken: "at", RefreshToken: "rt"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("cleared store: %v, want ErrNotLoggedIn", err)
	}
}

func TestTokenLiveTokenPassedThrough(t *testing.T) {
	store := tempStore(t)
	access := signedToken(t, time.Now().Add(time.Hour))
	if err := store.Save(Tokens{AccessToken: access, RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}

	refreshCalls := 0
	src := NewSource(store, func(ctx context.Context, rt string) (Tokens, error) {
		refreshCalls++
		return Tokens{}, nil
	})

	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != access {
		t.Error("expected the stored token")
	}
	if refreshCalls != 0 {
		t.Error("live token must not trigger a refresh")
	}
}

func TestTokenExpiredTriggersRefresh(t *testing.T) {
	store := tempStore(t)
	stale := signedToken(t, time.Now().Add(-time.Minute))
	if err := store.Save(Tokens{AccessToken: stale, RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}

	fresh := signedToken(t, time.Now().Add(time.Hour))
	src := NewSource(store, func(ctx context.Context, rt string) (Tokens, error) {
		if rt != "rt" {
			t.Errorf("refresh token = %q", rt)
		}
		return Tokens{AccessToken: fresh, RefreshToken: "rt2"}, nil
	})

	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != fresh {
		t.Error("expected the refreshed token")
	}

	// The refreshed pair is persisted.
	saved, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if saved.RefreshToken != "rt2" {
		t.Errorf("persisted refresh token = %q", saved.RefreshToken)
	}
}

func TestTokenExpiresWithinLeeway(t *testing.T) {
	store := tempStore(t)
	// Valid for another 10 seconds, inside the 30 second leeway.
	soon := signedToken(t, time.Now().Add(10*time.Second))
	if err := store.Save(Tokens{AccessToken: soon, RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}

	refreshCalls := 0
	fresh := signedToken(t, time.Now().Add(time.Hour))
	src := NewSource(store, func(ctx context.Context, rt string) (Tokens, error) {
		refreshCalls++
		return Tokens{AccessToken: fresh, RefreshToken: rt}, nil
	})

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshCalls)
	}
}

func TestOpaqueTokenTreatedAsLive(t *testing.T) {
	store := tempStore(t)
	if err := store.Save(Tokens{AccessToken: "not-a-jwt", RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}

	src := NewSource(store, nil)
	got, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "not-a-jwt" {
		t.Error("opaque token should pass through; the server judges it")
	}
}

func TestRefreshWithoutRefreshFunc(t *testing.T) {
	store := tempStore(t)
	if err := store.Save(Tokens{AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}
	src := NewSource(store, nil)
	if _, err := src.Refresh(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Refresh: %v, want ErrNotLoggedIn", err)
	}
}

func TestRefreshErrorPropagates(t *testing.T) {
	store := tempStore(t)
	if err := store.Save(Tokens{AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatal(err)
	}
	src := NewSource(store, func(ctx context.Context, rt string) (Tokens, error) {
		return Tokens{}, errors.New("refresh token revoked")
	})
	if _, err := src.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
