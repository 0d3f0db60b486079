package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	sessionID   string
	initialized bool
	exists      bool
	loadOK      bool
	loadErr     error

	existsCalls int
	loadCalls   int
}

func (f *fakeStore) SessionID() string  { return f.sessionID }
func (f *fakeStore) IsInitialized() bool { return f.initialized }

func (f *fakeStore) CheckSessionExists(ctx context.Context, id string) bool {
	f.existsCalls++
	return f.exists
}

func (f *fakeStore) LoadSession(ctx context.Context, id string) (bool, error) {
	f.loadCalls++
	return f.loadOK, f.loadErr
}

func TestAuthorizeWithoutTarget(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	if d := Authorize(ctx, &fakeStore{initialized: true}, "", log); d != Allow {
		t.Errorf("initialized store without target: %v, want Allow", d)
	}
	if d := Authorize(ctx, &fakeStore{}, "", log); d != RedirectHome {
		t.Errorf("empty store without target: %v, want RedirectHome", d)
	}
}

func TestAuthorizeMatchingSessionSkipsReload(t *testing.T) {
	store := &fakeStore{sessionID: "42", initialized: true}
	if d := Authorize(context.Background(), store, "42", zerolog.Nop()); d != Allow {
		t.Fatalf("decision = %v, want Allow", d)
	}
	if store.existsCalls != 0 || store.loadCalls != 0 {
		t.Error("matching session must not hit the network")
	}
}

func TestAuthorizeLoadsRequestedSession(t *testing.T) {
	store := &fakeStore{exists: true, loadOK: true}
	if d := Authorize(context.Background(), store, "7", zerolog.Nop()); d != Allow {
		t.Fatalf("decision = %v, want Allow", d)
	}
	if store.loadCalls != 1 {
		t.Errorf("load calls = %d", store.loadCalls)
	}
}

func TestAuthorizeRedirects(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	cases := []struct {
		name  string
		store *fakeStore
	}{
		{"session missing", &fakeStore{exists: false}},
		{"load rejects", &fakeStore{exists: true, loadOK: false}},
		{"load fails", &fakeStore{exists: true, loadErr: errors.New("connection refused")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := Authorize(ctx, tc.store, "7", log); d != RedirectHome {
				t.Fatalf("decision = %v, want RedirectHome", d)
			}
		})
	}
}
