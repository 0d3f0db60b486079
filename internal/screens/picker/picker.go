// Package picker is the lesson-creation flow: name the lesson, choose
// question banks, pick a time budget, start.
package picker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/api"
	"github.com/aleksandrbar00/kulai-app/internal/cache"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/router"
	"github.com/aleksandrbar00/kulai-app/internal/screen"
	lessonscreen "github.com/aleksandrbar00/kulai-app/internal/screens/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/ui/components"
	"github.com/aleksandrbar00/kulai-app/internal/ui/layout"
	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

type step int

const (
	stepTitle step = iota
	stepBanks
	stepDuration
	stepCreating
)

// durations offered for the time budget, in seconds.
var durations = []int{300, 600, 900, 1800}

// bankRow is one selectable subcategory with its parent category label.
type bankRow struct {
	category string
	sub      api.Subcategory
	selected bool
}

type treeMsg struct {
	Tree []api.Category
	Err  error
}

type createdMsg struct {
	SessionID string
	Err       error
}

// Screen drives lesson creation.
type Screen struct {
	store    *sess.Store
	client   *api.Client     // nil in offline mode
	sessions *cache.Sessions // nil when the cache failed to open
	log      zerolog.Logger

	step      step
	title     components.TextInput
	rows      []bankRow
	filter    components.TextInput
	filtering bool
	cursor    int
	duration  int
	loading   bool
	errMsg    string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates the picker screen.
func New(store *sess.Store, client *api.Client, sessions *cache.Sessions, log zerolog.Logger) *Screen {
	return &Screen{
		store:    store,
		client:   client,
		sessions: sessions,
		log:      log,
		title:    components.NewTextInput("Lesson title...", 48),
		filter:   components.NewTextInput("Filter banks...", 32),
		loading:  true,
	}
}

func (s *Screen) Init() tea.Cmd {
	return tea.Batch(s.title.Init(), s.loadTreeCmd())
}

func (s *Screen) Title() string {
	return "New lesson"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.step {
	case stepTitle:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next"},
			{Key: "Esc", Description: "Back"},
		}
	case stepBanks:
		if s.filtering {
			return []layout.KeyHint{
				{Key: "Enter", Description: "Apply"},
				{Key: "Esc", Description: "Clear"},
			}
		}
		return []layout.KeyHint{
			{Key: "Space", Description: "Toggle"},
			{Key: "/", Description: "Filter"},
			{Key: "Enter", Description: "Next"},
			{Key: "Esc", Description: "Back"},
		}
	case stepDuration:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return nil
}

// loadTreeCmd fetches the question bank tree: remote when a client is
// configured (refreshing the cached copy), otherwise the cached tree.
func (s *Screen) loadTreeCmd() tea.Cmd {
	client, sessions, log := s.client, s.sessions, s.log
	return func() tea.Msg {
		ctx := context.Background()

		if client != nil {
			tree, err := client.QuestionTree(ctx)
			if err == nil {
				if sessions != nil {
					if cerr := sessions.SaveBankTree(ctx, tree); cerr != nil {
						log.Warn().Err(cerr).Msg("cache bank tree")
					}
				}
				return treeMsg{Tree: tree}
			}
			log.Warn().Err(err).Msg("fetch question tree, falling back to cache")
		}

		if sessions != nil {
			tree, err := sessions.LoadBankTree(ctx)
			if err == nil && len(tree) > 0 {
				return treeMsg{Tree: tree}
			}
		}
		return treeMsg{Err: fmt.Errorf("no question banks available")}
	}
}

func (s *Screen) createCmd(title string, rows []bankRow, duration int) tea.Cmd {
	store := s.store
	remote := s.client != nil
	return func() tea.Msg {
		if remote {
			var ids []int
			for _, r := range rows {
				if !r.selected {
					continue
				}
				for _, q := range r.sub.Questions {
					ids = append(ids, q.ID)
				}
			}
			id, err := store.InitializeSession(context.Background(), title, ids, duration)
			return createdMsg{SessionID: id, Err: err}
		}

		var bank []api.Question
		for _, r := range rows {
			if r.selected {
				bank = append(bank, r.sub.Questions...)
			}
		}
		id, err := store.InitializeLocal(title, sess.QuestionsFromBank(bank), duration)
		return createdMsg{SessionID: id, Err: err}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case treeMsg:
		s.loading = false
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.rows = flattenTree(msg.Tree)
		return s, nil

	case createdMsg:
		if msg.Err != nil {
			s.step = stepDuration
			s.errMsg = createErrorText(msg.Err)
			return s, nil
		}
		store, sessions, log := s.store, s.sessions, s.log
		return s, func() tea.Msg {
			return router.ReplaceScreenMsg{
				Screen: lessonscreen.New(store, sessions, msg.SessionID, log),
			}
		}

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.step == stepTitle {
		var cmd tea.Cmd
		s.title, cmd = s.title.Update(msg)
		return s, cmd
	}
	if s.step == stepBanks && s.filtering {
		var cmd tea.Cmd
		s.filter, cmd = s.filter.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if msg.String() == "esc" {
		switch s.step {
		case stepBanks:
			if s.filtering {
				s.filtering = false
				s.filter.Reset()
				s.cursor = 0
				return s, nil
			}
			s.step = stepTitle
			s.errMsg = ""
			return s, nil
		case stepDuration:
			s.step = stepBanks
			s.errMsg = ""
			s.clampCursor()
			return s, nil
		case stepCreating:
			return s, nil
		}
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	switch s.step {
	case stepTitle:
		if msg.String() == "enter" {
			if strings.TrimSpace(s.title.Value()) == "" {
				s.errMsg = "A lesson needs a title."
				return s, nil
			}
			s.errMsg = ""
			s.step = stepBanks
			return s, nil
		}
		var cmd tea.Cmd
		s.title, cmd = s.title.Update(msg)
		return s, cmd

	case stepBanks:
		if s.filtering {
			if msg.String() == "enter" {
				s.filtering = false
				return s, nil
			}
			var cmd tea.Cmd
			s.filter, cmd = s.filter.Update(msg)
			s.clampCursor()
			return s, cmd
		}

		visible := s.visibleRows()
		switch msg.String() {
		case "/":
			s.filtering = true
			return s, s.filter.Init()
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(visible)-1 {
				s.cursor++
			}
		case " ", "space":
			if s.cursor < len(visible) {
				i := visible[s.cursor]
				s.rows[i].selected = !s.rows[i].selected
			}
		case "enter":
			if s.selectedQuestionCount() == 0 {
				s.errMsg = "Pick at least one question bank."
				return s, nil
			}
			s.errMsg = ""
			s.step = stepDuration
			s.cursor = 1 // default to ten minutes
		}
		return s, nil

	case stepDuration:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(durations)-1 {
				s.cursor++
			}
		case "enter":
			s.errMsg = ""
			s.step = stepCreating
			s.duration = durations[s.cursor]
			return s, s.createCmd(strings.TrimSpace(s.title.Value()), s.rows, s.duration)
		}
		return s, nil
	}

	return s, nil
}

// visibleRows returns the indices into s.rows that match the bank filter.
func (s *Screen) visibleRows() []int {
	query := strings.ToLower(strings.TrimSpace(s.filter.Value()))
	visible := make([]int, 0, len(s.rows))
	for i, r := range s.rows {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.category), query) &&
			!strings.Contains(strings.ToLower(r.sub.Title), query) {
			continue
		}
		visible = append(visible, i)
	}
	return visible
}

func (s *Screen) clampCursor() {
	if n := len(s.visibleRows()); s.cursor >= n {
		s.cursor = max(n-1, 0)
	}
}

func (s *Screen) selectedQuestionCount() int {
	n := 0
	for _, r := range s.rows {
		if r.selected {
			n += len(r.sub.Questions)
		}
	}
	return n
}

func flattenTree(tree []api.Category) []bankRow {
	var rows []bankRow
	for _, cat := range tree {
		for _, sub := range cat.Subcategories {
			if len(sub.Questions) == 0 {
				continue
			}
			rows = append(rows, bankRow{category: cat.Title, sub: sub})
		}
	}
	return rows
}

func createErrorText(err error) string {
	switch {
	case errors.Is(err, sess.ErrEmptyTitle):
		return "A lesson needs a title."
	case errors.Is(err, sess.ErrNoQuestions):
		return "Pick at least one question bank."
	case errors.Is(err, sess.ErrBadDuration):
		return "The time budget must be positive."
	}
	return "Could not create the lesson. Check your connection and try again."
}

func (s *Screen) View(width, height int) string {
	var b strings.Builder

	switch s.step {
	case stepTitle:
		b.WriteString(theme.Subtitle.Render("What is this lesson about?"))
		b.WriteString("\n\n")
		b.WriteString(s.title.View())

	case stepBanks:
		b.WriteString(theme.Subtitle.Render("Choose question banks"))
		b.WriteString("\n\n")
		if s.loading {
			b.WriteString(theme.Dimmed.Render("Loading question banks..."))
			break
		}
		if len(s.rows) == 0 {
			b.WriteString(theme.Dimmed.Render("No question banks available."))
			break
		}
		if s.filtering || strings.TrimSpace(s.filter.Value()) != "" {
			b.WriteString(s.filter.View())
			b.WriteString("\n\n")
		}
		visible := s.visibleRows()
		if len(visible) == 0 {
			b.WriteString(theme.Dimmed.Render("No banks match the filter."))
		}
		for pos, i := range visible {
			r := s.rows[i]
			mark := "[ ]"
			if r.selected {
				mark = "[x]"
			}
			line := fmt.Sprintf("%s %s / %s (%d)", mark, r.category, r.sub.Title, len(r.sub.Questions))
			if pos == s.cursor && !s.filtering {
				b.WriteString(theme.Selected.Render("▸ " + line))
			} else {
				b.WriteString(theme.Body.Render("  " + line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render(fmt.Sprintf("%d question(s) selected", s.selectedQuestionCount())))

	case stepDuration:
		b.WriteString(theme.Subtitle.Render("Time budget"))
		b.WriteString("\n\n")
		for i, d := range durations {
			line := fmt.Sprintf("%d minutes", d/60)
			if i == s.cursor {
				b.WriteString(theme.Selected.Render("▸ " + line))
			} else {
				b.WriteString(theme.Body.Render("  " + line))
			}
			b.WriteString("\n")
		}

	case stepCreating:
		b.WriteString(theme.Dimmed.Render("Creating lesson..."))
	}

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Bad.Render(s.errMsg))
	}

	return layout.Center(theme.Card.Render(b.String()), width, height)
}
