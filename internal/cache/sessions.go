package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/lesson"
)

// Sessions is the typed session view of the cache. It satisfies
// lesson.Cache.
type Sessions struct {
	kv *KV
}

// NewSessions wraps a KV (tests construct it directly over a Store's KV).
func NewSessions(kv *KV) *Sessions {
	return &Sessions{kv: kv}
}

// SaveSession stores the full session payload and refreshes its entry in
// the summary list.
func (s *Sessions) SaveSession(ctx context.Context, st lesson.State) error {
	if st.ID == "" {
		return fmt.Errorf("refusing to cache session without id")
	}
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", st.ID, err)
	}
	if err := s.kv.Set(ctx, SessionKey(st.ID), b); err != nil {
		return err
	}
	return s.updateList(ctx, st)
}

// LoadSession returns the cached session, or (nil, nil) when absent.
func (s *Sessions) LoadSession(ctx context.Context, id string) (*lesson.State, error) {
	b, err := s.kv.Get(ctx, SessionKey(id))
	if err != nil {
		if errors.Is(err, ErrNoEntry) {
			return nil, nil
		}
		return nil, err
	}
	var st lesson.State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode cached session %s: %w", id, err)
	}
	return &st, nil
}

// HasSession reports whether a full payload is cached for id.
func (s *Sessions) HasSession(ctx context.Context, id string) bool {
	_, err := s.kv.Get(ctx, SessionKey(id))
	return err == nil
}

// DeleteSession removes the payload and its list entry.
func (s *Sessions) DeleteSession(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, SessionKey(id)); err != nil {
		return err
	}
	list, err := s.Summaries(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, sum := range list {
		if sum.ID != id {
			kept = append(kept, sum)
		}
	}
	return s.writeList(ctx, kept)
}

// SetCurrent records id as the active session pointer.
func (s *Sessions) SetCurrent(ctx context.Context, id string) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyCurrent, b)
}

// CurrentID returns the active session pointer, or "" when unset.
func (s *Sessions) CurrentID(ctx context.Context) (string, error) {
	b, err := s.kv.Get(ctx, KeyCurrent)
	if err != nil {
		if errors.Is(err, ErrNoEntry) {
			return "", nil
		}
		return "", err
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return "", fmt.Errorf("decode current pointer: %w", err)
	}
	return id, nil
}

// ClearCurrent drops the active session pointer. Only the local intent to
// resume is abandoned; cached payloads and remote state stay.
func (s *Sessions) ClearCurrent(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyCurrent)
}

// Summaries returns the cached summary list, most recent first.
func (s *Sessions) Summaries(ctx context.Context) ([]lesson.Summary, error) {
	b, err := s.kv.Get(ctx, KeyList)
	if err != nil {
		if errors.Is(err, ErrNoEntry) {
			return nil, nil
		}
		return nil, err
	}
	var list []lesson.Summary
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode session list: %w", err)
	}
	return list, nil
}

// SaveBankTree caches the question bank tree for offline use.
func (s *Sessions) SaveBankTree(ctx context.Context, tree []api.Category) error {
	b, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal bank tree: %w", err)
	}
	return s.kv.Set(ctx, KeyBankTree, b)
}

// LoadBankTree returns the cached bank tree, or (nil, nil) when absent.
func (s *Sessions) LoadBankTree(ctx context.Context) ([]api.Category, error) {
	b, err := s.kv.Get(ctx, KeyBankTree)
	if err != nil {
		if errors.Is(err, ErrNoEntry) {
			return nil, nil
		}
		return nil, err
	}
	var tree []api.Category
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("decode bank tree: %w", err)
	}
	return tree, nil
}

func (s *Sessions) updateList(ctx context.Context, st lesson.State) error {
	list, err := s.Summaries(ctx)
	if err != nil {
		return err
	}

	status := lesson.StatusInProgress
	if st.ShowResults {
		status = lesson.StatusFinished
	}
	entry := lesson.Summary{
		ID:        st.ID,
		Title:     st.Title,
		CreatedAt: st.CreatedAt,
		Status:    status,
	}

	replaced := false
	for i := range list {
		if list[i].ID == st.ID {
			list[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, entry)
	}
	return s.writeList(ctx, list)
}

func (s *Sessions) writeList(ctx context.Context, list []lesson.Summary) error {
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal session list: %w", err)
	}
	return s.kv.Set(ctx, KeyList, b)
}
