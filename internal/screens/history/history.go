// Package history lists past lessons: finished ones for review, unfinished
// ones as resumable entries.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/cache"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/router"
	"github.com/aleksandrbar00/kulai-app/internal/screen"
	lessonscreen "github.com/aleksandrbar00/kulai-app/internal/screens/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/ui/layout"
	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

type pageMsg struct {
	Summaries  []sess.Summary
	Page       int
	TotalPages int
	Err        error
}

// HistoryScreen shows a paginated lesson history.
type HistoryScreen struct {
	store    *sess.Store
	client   *api.Client     // nil in offline mode
	sessions *cache.Sessions // nil when the cache failed to open
	pageSize int
	log      zerolog.Logger

	summaries  []sess.Summary
	page       int
	totalPages int
	cursor     int
	loading    bool
	errMsg     string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates the history screen. store may be nil; resuming is then
// disabled and the list is read-only.
func New(client *api.Client, sessions *cache.Sessions, pageSize int, log zerolog.Logger) *HistoryScreen {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &HistoryScreen{
		client:   client,
		sessions: sessions,
		pageSize: pageSize,
		log:      log,
		page:     1,
		loading:  true,
	}
}

// WithStore enables resuming unfinished lessons from the list.
func (h *HistoryScreen) WithStore(store *sess.Store) *HistoryScreen {
	h.store = store
	return h
}

func (h *HistoryScreen) Init() tea.Cmd {
	return h.loadPageCmd(1)
}

func (h *HistoryScreen) Title() string {
	return "History"
}

func (h *HistoryScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
	}
	if h.totalPages > 1 {
		hints = append(hints, layout.KeyHint{Key: "←→", Description: "Page"})
	}
	if h.store != nil {
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Open"})
	}
	hints = append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
	return hints
}

func (h *HistoryScreen) loadPageCmd(page int) tea.Cmd {
	client, sessions, pageSize, log := h.client, h.sessions, h.pageSize, h.log
	return func() tea.Msg {
		ctx := context.Background()

		if client != nil {
			hp, err := client.History(ctx, page, pageSize)
			if err != nil {
				log.Warn().Err(err).Int("page", page).Msg("fetch history")
				return pageMsg{Err: err, Page: page}
			}
			return pageMsg{
				Summaries:  sess.SummariesFromHistory(hp, time.Now()),
				Page:       hp.Page,
				TotalPages: hp.TotalPages,
			}
		}

		if sessions == nil {
			return pageMsg{Page: 1, TotalPages: 1}
		}
		all, err := sessions.Summaries(ctx)
		if err != nil {
			return pageMsg{Err: err, Page: 1}
		}
		return pageMsg{Summaries: all, Page: 1, TotalPages: 1}
	}
}

func (h *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case pageMsg:
		h.loading = false
		if msg.Err != nil {
			h.errMsg = "Could not load history."
			return h, nil
		}
		h.errMsg = ""
		h.summaries = msg.Summaries
		h.page = msg.Page
		h.totalPages = msg.TotalPages
		h.cursor = 0
		return h, nil

	case tea.KeyMsg:
		return h.handleKey(msg)
	}
	return h, nil
}

func (h *HistoryScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return h, func() tea.Msg { return router.PopScreenMsg{} }
	case "up", "k":
		if h.cursor > 0 {
			h.cursor--
		}
	case "down", "j":
		if h.cursor < len(h.summaries)-1 {
			h.cursor++
		}
	case "left", "p":
		if h.page > 1 {
			h.loading = true
			return h, h.loadPageCmd(h.page - 1)
		}
	case "right", "n":
		if h.page < h.totalPages {
			h.loading = true
			return h, h.loadPageCmd(h.page + 1)
		}
	case "enter":
		if h.store == nil || h.cursor >= len(h.summaries) {
			return h, nil
		}
		pick := h.summaries[h.cursor]
		store, sessions, log := h.store, h.sessions, h.log
		return h, func() tea.Msg {
			return router.PushScreenMsg{
				Screen: lessonscreen.New(store, sessions, pick.ID, log),
			}
		}
	}
	return h, nil
}

func (h *HistoryScreen) View(width, height int) string {
	var b strings.Builder

	if h.loading {
		return layout.Center(theme.Dimmed.Render("Loading history..."), width, height)
	}
	if h.errMsg != "" {
		return layout.Center(theme.Bad.Render(h.errMsg), width, height)
	}
	if len(h.summaries) == 0 {
		return layout.Center(theme.Dimmed.Render("No lessons yet."), width, height)
	}

	for i, s := range h.summaries {
		status := theme.Hint.Render("in progress")
		if s.Finished() {
			status = theme.Good.Render("finished")
		}
		line := fmt.Sprintf("%s  %s  %s",
			s.CreatedAt.Format("Jan 02 15:04"),
			padRight(s.Title, 32),
			status,
		)
		if i == h.cursor {
			b.WriteString(theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString(theme.Body.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if h.totalPages > 1 {
		b.WriteString("\n")
		b.WriteString(theme.Dimmed.Render(fmt.Sprintf("Page %d of %d", h.page, h.totalPages)))
	}

	return layout.Center(theme.Card.Render(b.String()), width, height)
}

func padRight(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(r))
}
