package home

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/cache"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
)

func openTestSessions(t *testing.T) *cache.Sessions {
	t.Helper()
	s, err := cache.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test cache: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.Sessions()
}

func saveUnfinished(t *testing.T, sessions *cache.Sessions, id string) {
	t.Helper()
	ctx := context.Background()
	st := sess.State{
		ID:    id,
		Title: "Capitals",
		Questions: []sess.Question{
			{ID: "q1", Kind: sess.KindInput, Text: "Capital of France?", Answer: "Paris"},
		},
		Attempts:      map[string]int{},
		Answers:       map[string]string{},
		TimeRemaining: 540,
		TotalDuration: 600,
		CreatedAt:     time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	if err := sessions.SaveSession(ctx, st); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := sessions.SetCurrent(ctx, id); err != nil {
		t.Fatalf("set current: %v", err)
	}
}

func TestCachedOffer(t *testing.T) {
	sessions := openTestSessions(t)
	ctx := context.Background()

	if offer := cachedOffer(ctx, sessions); offer != nil {
		t.Fatalf("offer = %+v, want nil with empty cache", offer)
	}

	saveUnfinished(t, sessions, "local-1")
	offer := cachedOffer(ctx, sessions)
	if offer == nil {
		t.Fatal("expected offer for unfinished cached session")
	}
	if offer.SessionID != "local-1" {
		t.Errorf("offer session = %q, want %q", offer.SessionID, "local-1")
	}
}

func TestCachedOfferSkipsFinished(t *testing.T) {
	sessions := openTestSessions(t)
	ctx := context.Background()

	saveUnfinished(t, sessions, "local-1")
	st, err := sessions.LoadSession(ctx, "local-1")
	if err != nil || st == nil {
		t.Fatalf("load: %v", err)
	}
	st.ShowResults = true
	if err := sessions.SaveSession(ctx, *st); err != nil {
		t.Fatalf("resave: %v", err)
	}

	if offer := cachedOffer(ctx, sessions); offer != nil {
		t.Fatalf("offer = %+v, want nil for finished session", offer)
	}
}

func TestDiscardWithoutControllerClearsPointer(t *testing.T) {
	sessions := openTestSessions(t)
	ctx := context.Background()
	saveUnfinished(t, sessions, "local-1")

	h := New(nil, nil, sessions, nil, 10, zerolog.Nop())
	h.discardCmd()()

	id, err := sessions.CurrentID(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if id != "" {
		t.Errorf("current pointer = %q after discard, want empty", id)
	}
	if offer := cachedOffer(ctx, sessions); offer != nil {
		t.Errorf("offer = %+v after discard, want nil", offer)
	}

	// The payload itself stays; only the resume intent is dropped.
	if !sessions.HasSession(ctx, "local-1") {
		t.Error("cached payload gone after discard")
	}
}
