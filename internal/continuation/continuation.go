// Package continuation decides whether to offer resuming an unfinished
// session when the learner enters the lesson-selection flow. It owns the
// decision only; the home screen owns the modal.
package continuation

import (
	"context"
	"sort"
	"time"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/lesson"
)

// History is the client surface the controller needs.
type History interface {
	History(ctx context.Context, page, limit int) (*api.HistoryPage, error)
}

// CurrentClearer abandons the local intent to resume a session. The remote
// session itself is never deleted.
type CurrentClearer interface {
	ClearCurrent(ctx context.Context) error
}

// Offer describes the unfinished session proposed for resumption.
type Offer struct {
	SessionID string
	Title     string
	CreatedAt time.Time
}

// Controller checks for unfinished sessions and handles the discard side
// of the resume-or-discard choice.
type Controller struct {
	history History
	cache   CurrentClearer // may be nil
	limit   int
	now     func() time.Time
}

// New creates a Controller. limit is the history page size to scan.
func New(history History, cache CurrentClearer, limit int) *Controller {
	if limit <= 0 {
		limit = 10
	}
	return &Controller{history: history, cache: cache, limit: limit, now: time.Now}
}

// Check fetches recent history and returns the most recently created
// unfinished session, or nil when there is nothing to resume.
func (c *Controller) Check(ctx context.Context) (*Offer, error) {
	if c.history == nil {
		return nil, nil
	}
	page, err := c.history.History(ctx, 1, c.limit)
	if err != nil {
		return nil, err
	}

	summaries := lesson.SummariesFromHistory(page, c.now())
	unfinished := summaries[:0]
	for _, s := range summaries {
		if !s.Finished() {
			unfinished = append(unfinished, s)
		}
	}
	if len(unfinished) == 0 {
		return nil, nil
	}

	sort.Slice(unfinished, func(i, j int) bool {
		return unfinished[i].CreatedAt.After(unfinished[j].CreatedAt)
	})

	pick := unfinished[0]
	return &Offer{
		SessionID: pick.ID,
		Title:     pick.Title,
		CreatedAt: pick.CreatedAt,
	}, nil
}

// Discard abandons the local resume pointer for the offered session.
func (c *Controller) Discard(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.ClearCurrent(ctx)
}
