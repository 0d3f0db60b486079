package lesson

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/cache"
	"github.com/aleksandrbar00/kulai-app/internal/guard"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/router"
	"github.com/aleksandrbar00/kulai-app/internal/screen"
	"github.com/aleksandrbar00/kulai-app/internal/timer"
	"github.com/aleksandrbar00/kulai-app/internal/ui/components"
	"github.com/aleksandrbar00/kulai-app/internal/ui/layout"
)

const (
	displayInterval  = 250 * time.Millisecond
	autosaveInterval = 5 * time.Second
)

// Screen runs the active lesson session. Entry is gated by the session
// guard: nothing renders until authorization completes, and denial
// replaces the screen with the safe default instead of flashing protected
// content.
type Screen struct {
	store    *sess.Store
	sessions *cache.Sessions // may be nil
	log      zerolog.Logger

	// requestedID is the navigation target ("" means "use whatever
	// session is already initialized").
	requestedID string

	authorized bool
	redirected bool
	results    bool

	clock *timer.Coordinator
	now   time.Time

	mc       components.MultiChoice
	input    components.TextInput
	isChoice bool

	showingFeedback bool
	lastResult      *sess.SubmitResult
	submitting      bool
	errMsg          string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates the lesson screen for an optional target session id.
func New(store *sess.Store, sessions *cache.Sessions, requestedID string, log zerolog.Logger) *Screen {
	return &Screen{
		store:       store,
		sessions:    sessions,
		requestedID: requestedID,
		log:         log,
		clock:       timer.New(),
		now:         time.Now(),
	}
}

func (s *Screen) Init() tea.Cmd {
	return s.authorizeCmd()
}

func (s *Screen) Title() string {
	return "Lesson"
}

// Status feeds the header's right slot with the live countdown.
func (s *Screen) Status() string {
	if !s.authorized || s.results {
		return ""
	}
	return components.FormatClock(s.clock.Display(s.now))
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch {
	case !s.authorized:
		return nil
	case s.results:
		return []layout.KeyHint{
			{Key: "R", Description: "Retry lesson"},
			{Key: "N", Description: "New lesson"},
			{Key: "Esc", Description: "Back"},
		}
	case s.showingFeedback:
		return []layout.KeyHint{
			{Key: "any key", Description: "Continue"},
		}
	default:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Leave (progress is saved)"},
		}
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case guardResultMsg:
		return s.handleGuardResult(msg)
	case displayTickMsg:
		return s.handleDisplayTick(msg)
	case autosaveTickMsg:
		return s.handleAutosaveTick(msg)
	case submitResultMsg:
		return s.handleSubmitResult(msg)
	case feedbackDoneMsg:
		return s.handleFeedbackDone()
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	// Free-text input consumes everything else while a question is open.
	if s.authorized && !s.results && !s.showingFeedback && !s.isChoice {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// authorizeCmd runs the guard off the event loop; the view stays empty
// until its verdict arrives.
func (s *Screen) authorizeCmd() tea.Cmd {
	store, requestedID, log := s.store, s.requestedID, s.log
	return func() tea.Msg {
		decision := guard.Authorize(context.Background(), store, requestedID, log)
		return guardResultMsg{SessionID: store.SessionID(), Decision: decision}
	}
}

func (s *Screen) handleGuardResult(msg guardResultMsg) (screen.Screen, tea.Cmd) {
	if msg.Decision != guard.Allow {
		// Exactly one redirect signal.
		if s.redirected {
			return s, nil
		}
		s.redirected = true
		return s, func() tea.Msg { return router.PopToRootMsg{} }
	}

	s.authorized = true
	snap := s.store.Snapshot()
	s.now = time.Now()

	if snap.ShowResults {
		s.results = true
		return s, nil
	}

	s.clock.Start(snap.TimeRemaining, s.now)
	s.mountCurrentQuestion()
	return s, tea.Batch(
		s.input.Init(),
		s.displayTickCmd(snap.ID),
		s.autosaveTickCmd(snap.ID),
	)
}

func (s *Screen) displayTickCmd(sessionID string) tea.Cmd {
	return tea.Tick(displayInterval, func(t time.Time) tea.Msg {
		return displayTickMsg{SessionID: sessionID, At: t}
	})
}

func (s *Screen) autosaveTickCmd(sessionID string) tea.Cmd {
	return tea.Tick(autosaveInterval, func(time.Time) tea.Msg {
		return autosaveTickMsg{SessionID: sessionID}
	})
}

func (s *Screen) handleDisplayTick(msg displayTickMsg) (screen.Screen, tea.Cmd) {
	// A tick armed for a session that is no longer current is a leak
	// from a torn-down view; let it die.
	if !s.authorized || msg.SessionID != s.store.SessionID() {
		return s, nil
	}
	if s.results {
		return s, nil
	}

	s.now = msg.At

	if s.clock.ExpireIfZero(msg.At) {
		// Exactly one timeout transition; the store no-ops if a
		// submission verdict finalized the session first.
		if s.store.CompleteByTimeout() {
			s.log.Debug().Str("session", msg.SessionID).Msg("lesson timed out")
		}
		s.finishToResults()
		return s, nil
	}

	return s, s.displayTickCmd(msg.SessionID)
}

func (s *Screen) handleAutosaveTick(msg autosaveTickMsg) (screen.Screen, tea.Cmd) {
	if !s.authorized || s.results || msg.SessionID != s.store.SessionID() {
		return s, nil
	}
	s.saveSnapshot()
	return s, s.autosaveTickCmd(msg.SessionID)
}

func (s *Screen) submitCmd(input string) tea.Cmd {
	store := s.store
	sessionID := store.SessionID()
	return func() tea.Msg {
		res, err := store.SubmitAnswer(context.Background(), input)
		return submitResultMsg{SessionID: sessionID, Result: res, Err: err}
	}
}

func (s *Screen) handleSubmitResult(msg submitResultMsg) (screen.Screen, tea.Cmd) {
	s.submitting = false

	// The session may have been replaced while the request was in
	// flight; its verdict no longer belongs to anyone.
	if msg.SessionID != s.store.SessionID() {
		return s, nil
	}

	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, sess.ErrSessionCompleted):
			s.finishToResults()
		case errors.Is(msg.Err, sess.ErrSubmitInFlight):
			// Double-fire guard; the first submission owns the round trip.
		default:
			s.errMsg = "Submission failed. Check your connection and try again."
			s.log.Error().Err(msg.Err).Msg("submit answer")
		}
		return s, nil
	}

	s.errMsg = ""
	res := msg.Result
	s.lastResult = res
	if s.store.Remote() {
		// The verdict carried a fresh authoritative remaining time.
		s.clock.Sync(s.store.TimeRemaining(), time.Now())
	}

	if s.isChoice {
		s.mc.Reveal(res.CorrectOptionID)
	} else {
		s.input.Submit(res.Correct)
	}
	s.showingFeedback = true
	s.saveSnapshot()
	return s, nil
}

func (s *Screen) handleFeedbackDone() (screen.Screen, tea.Cmd) {
	s.showingFeedback = false

	if s.store.ShowResults() {
		s.finishToResults()
		return s, nil
	}

	if s.lastResult != nil && !s.lastResult.Advanced {
		// Same question, another try.
		s.input.Reset()
		return s, s.input.Init()
	}

	s.mountCurrentQuestion()
	return s, s.input.Init()
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if !s.authorized {
		return s, nil
	}

	if s.showingFeedback {
		return s, func() tea.Msg { return feedbackDoneMsg{} }
	}

	if s.results {
		switch msg.String() {
		case "r", "R":
			return s.restartSession()
		case "n", "N":
			s.store.ClearSession()
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil
	}

	switch msg.String() {
	case "esc":
		// Progress lives on the server (or in the cache); leaving is
		// cheap and the continuation prompt offers the way back.
		s.saveSnapshot()
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "enter":
		return s.submitCurrent()
	}

	if s.isChoice {
		var cmd tea.Cmd
		s.mc, cmd = s.mc.Update(msg)
		return s, cmd
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *Screen) submitCurrent() (screen.Screen, tea.Cmd) {
	if s.submitting {
		return s, nil
	}

	var input string
	if s.isChoice {
		input = s.mc.Submit()
	} else {
		input = s.input.Value()
	}
	if input == "" {
		return s, nil
	}

	s.submitting = true
	return s, s.submitCmd(input)
}

func (s *Screen) restartSession() (screen.Screen, tea.Cmd) {
	s.store.ResetSession()
	snap := s.store.Snapshot()
	s.results = false
	s.lastResult = nil
	s.errMsg = ""
	s.now = time.Now()
	s.clock.Start(snap.TimeRemaining, s.now)
	s.mountCurrentQuestion()
	s.saveSnapshot()
	return s, tea.Batch(
		s.input.Init(),
		s.displayTickCmd(snap.ID),
		s.autosaveTickCmd(snap.ID),
	)
}

// mountCurrentQuestion rebuilds the answer component for the question at
// the store's current index.
func (s *Screen) mountCurrentQuestion() {
	q := s.store.CurrentQuestion()
	if q == nil {
		return
	}
	if q.Kind == sess.KindMultipleChoice {
		s.isChoice = true
		choices := make([]components.Choice, 0, len(q.Options))
		for _, o := range q.Options {
			choices = append(choices, components.Choice{ID: o.ID, Label: o.Text})
		}
		s.mc = components.NewMultiChoice(q.Text, choices)
		return
	}
	s.isChoice = false
	s.input = components.NewTextInput("Type your answer...", 64)
}

// finishToResults switches to the results view and stops all periodic
// work for this session.
func (s *Screen) finishToResults() {
	s.results = true
	s.showingFeedback = false
	s.clock.Stop()
	s.saveSnapshot()
}

// saveSnapshot persists the current state to the local cache. Best
// effort: the remote service stays the source of truth.
func (s *Screen) saveSnapshot() {
	if s.sessions == nil {
		return
	}
	if s.clock.Phase() == timer.Running {
		s.store.SyncTimeRemaining(s.clock.Display(time.Now()))
	}
	snap := s.store.Snapshot()
	if snap.ID == "" {
		return
	}
	if err := s.sessions.SaveSession(context.Background(), snap); err != nil {
		s.log.Warn().Err(err).Str("session", snap.ID).Msg("autosave")
	}
}
