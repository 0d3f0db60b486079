package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/cache"
	"github.com/aleksandrbar00/kulai-app/internal/continuation"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/router"
	"github.com/aleksandrbar00/kulai-app/internal/screen"
	"github.com/aleksandrbar00/kulai-app/internal/screens/history"
	lessonscreen "github.com/aleksandrbar00/kulai-app/internal/screens/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/screens/picker"
	"github.com/aleksandrbar00/kulai-app/internal/ui/components"
	"github.com/aleksandrbar00/kulai-app/internal/ui/layout"
	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

// offerMsg carries the continuation check result. A nil offer means there
// is nothing to resume.
type offerMsg struct {
	Offer *continuation.Offer
	Err   error
}

// HomeScreen is the application's entry screen: the main menu plus the
// resume-or-discard prompt for an unfinished session.
type HomeScreen struct {
	store      *sess.Store
	client     *api.Client         // nil in offline mode
	sessions   *cache.Sessions     // nil when the cache failed to open
	controller *continuation.Controller
	pageSize   int
	log        zerolog.Logger

	menu  components.Menu
	offer *continuation.Offer
	modal components.Modal
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates the home screen.
func New(store *sess.Store, client *api.Client, sessions *cache.Sessions, controller *continuation.Controller, pageSize int, log zerolog.Logger) *HomeScreen {
	h := &HomeScreen{
		store:      store,
		client:     client,
		sessions:   sessions,
		controller: controller,
		pageSize:   pageSize,
		log:        log,
	}

	h.menu = components.NewMenu([]components.MenuItem{
		{Label: "Start a lesson", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: picker.New(store, client, sessions, log)}
			}
		}},
		{Label: "History", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(client, sessions, pageSize, log).WithStore(store)}
			}
		}},
		{Label: "Quit", Action: func() tea.Cmd {
			return tea.Quit
		}},
	})

	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.checkContinuationCmd()
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	if h.offer != nil {
		return []layout.KeyHint{
			{Key: "←→", Description: "Choose"},
			{Key: "Enter", Description: "Confirm"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// checkContinuationCmd looks for an unfinished session to offer. The remote
// history is authoritative; the cached current pointer covers offline mode.
func (h *HomeScreen) checkContinuationCmd() tea.Cmd {
	controller, sessions, log := h.controller, h.sessions, h.log
	return func() tea.Msg {
		ctx := context.Background()

		if controller != nil {
			offer, err := controller.Check(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("continuation check")
				return offerMsg{Err: err}
			}
			if offer != nil {
				return offerMsg{Offer: offer}
			}
		}

		if sessions != nil {
			if offer := cachedOffer(ctx, sessions); offer != nil {
				return offerMsg{Offer: offer}
			}
		}
		return offerMsg{}
	}
}

// cachedOffer resolves the cached current-session pointer into an offer.
func cachedOffer(ctx context.Context, sessions *cache.Sessions) *continuation.Offer {
	id, err := sessions.CurrentID(ctx)
	if err != nil || id == "" {
		return nil
	}
	st, err := sessions.LoadSession(ctx, id)
	if err != nil || st == nil || st.ShowResults {
		return nil
	}
	return &continuation.Offer{
		SessionID: st.ID,
		Title:     st.Title,
		CreatedAt: st.CreatedAt,
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case offerMsg:
		if msg.Offer != nil {
			h.offer = msg.Offer
			h.modal = components.NewModal(
				"Continue where you left off?",
				fmt.Sprintf("%q is still in progress.", msg.Offer.Title),
				"Resume",
				"Discard",
			)
		}
		return h, nil

	case tea.KeyMsg:
		if h.offer != nil {
			return h.updateModal(msg)
		}
		var cmd tea.Cmd
		h.menu, cmd = h.menu.Update(msg)
		return h, cmd
	}

	return h, nil
}

func (h *HomeScreen) updateModal(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "enter":
		offer := h.offer
		h.offer = nil
		if h.modal.ConfirmFocused() {
			store, sessions, log := h.store, h.sessions, h.log
			return h, func() tea.Msg {
				return router.PushScreenMsg{
					Screen: lessonscreen.New(store, sessions, offer.SessionID, log),
				}
			}
		}
		return h, h.discardCmd()
	case "esc":
		h.offer = nil
		return h, h.discardCmd()
	}
	h.modal = h.modal.Update(msg)
	return h, nil
}

func (h *HomeScreen) discardCmd() tea.Cmd {
	controller, sessions, log := h.controller, h.sessions, h.log
	return func() tea.Msg {
		ctx := context.Background()
		if controller != nil {
			if err := controller.Discard(ctx); err != nil {
				log.Warn().Err(err).Msg("discard continuation")
			}
			return nil
		}
		if sessions != nil {
			if err := sessions.ClearCurrent(ctx); err != nil {
				log.Warn().Err(err).Msg("clear current session pointer")
			}
		}
		return nil
	}
}

func (h *HomeScreen) View(width, height int) string {
	if h.offer != nil {
		return h.modal.View(width, height)
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("Kulai"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("Interactive lessons, one question at a time"))
	b.WriteString("\n\n")
	if h.client == nil {
		b.WriteString(theme.Hint.Render("Offline mode: lessons run locally"))
		b.WriteString("\n\n")
	}
	b.WriteString(h.menu.View())

	return layout.Center(b.String(), width, height)
}
