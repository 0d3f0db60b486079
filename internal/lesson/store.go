package lesson

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/api"
)

// Validation and state errors surfaced synchronously, before any network
// call is made.
var (
	ErrEmptyTitle       = errors.New("lesson title is required")
	ErrNoQuestions      = errors.New("at least one question is required")
	ErrBadDuration      = errors.New("duration must be positive")
	ErrNoSession        = errors.New("no active session")
	ErrNoQuestion       = errors.New("no current question")
	ErrSessionCompleted = errors.New("session already completed")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
)

// Authority is the subset of the remote client the store depends on.
type Authority interface {
	CreateLesson(ctx context.Context, req api.CreateLessonRequest) (*api.LessonPayload, error)
	GetLesson(ctx context.Context, id int) (*api.LessonPayload, error)
	SubmitAnswer(ctx context.Context, lessonID, answerID int) (*api.SubmitAnswerResult, error)
}

// Cache is the subset of the local persistence adapter the store depends
// on. It may be nil; every use is optional.
type Cache interface {
	SaveSession(ctx context.Context, st State) error
	LoadSession(ctx context.Context, id string) (*State, error)
	HasSession(ctx context.Context, id string) bool
	SetCurrent(ctx context.Context, id string) error
	ClearCurrent(ctx context.Context) error
}

// Store is the single source of truth for the active session. All writes go
// through its action methods, which replace the whole state atomically; a
// failed remote call never leaves partial state behind.
//
// When authority is non-nil the store is remote-authoritative: correctness,
// score and remaining time come from the server and are never recomputed
// locally. With a nil authority the store runs the fully-local variant and
// grades through Evaluate.
type Store struct {
	authority Authority
	cache     Cache
	log       zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	state      State
	submitting bool
}

// NewStore creates a Store. authority may be nil for the local-only
// variant, cache may be nil in both variants.
func NewStore(authority Authority, cache Cache, log zerolog.Logger) *Store {
	s := &Store{
		authority: authority,
		cache:     cache,
		log:       log,
		now:       time.Now,
	}
	s.state = emptyState(s.now())
	return s
}

// SetClock overrides the time source (tests).
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Remote reports whether the store is running server-authoritative.
func (s *Store) Remote() bool { return s.authority != nil }

// InitializeSession creates a new session. The remote authority assigns the
// id, question order and initial remaining time; its payload is adopted
// wholesale. On any failure the prior state is untouched.
func (s *Store) InitializeSession(ctx context.Context, title string, questionIDs []int, durationSeconds int) (string, error) {
	if title == "" {
		return "", ErrEmptyTitle
	}
	if len(questionIDs) == 0 {
		return "", ErrNoQuestions
	}
	if durationSeconds <= 0 {
		return "", ErrBadDuration
	}
	if s.authority == nil {
		return "", fmt.Errorf("remote session authority not configured")
	}

	payload, err := s.authority.CreateLesson(ctx, api.CreateLessonRequest{
		Title:            title,
		QuestionIDs:      questionIDs,
		MaxTimeInSeconds: durationSeconds,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("create lesson failed")
		return "", err
	}

	st, err := stateFromPayload(payload, s.now())
	if err != nil {
		return "", &api.ErrMalformedPayload{Reason: "unusable session payload", Err: err}
	}

	s.replace(st)
	s.rememberCurrent(ctx, st)
	s.log.Debug().Str("session", st.ID).Int("questions", len(st.Questions)).Msg("session initialized")
	return st.ID, nil
}

// InitializeLocal starts a local-only session over a concrete question
// list, generating a synthetic id. Used in offline mode.
func (s *Store) InitializeLocal(title string, questions []Question, durationSeconds int) (string, error) {
	if title == "" {
		return "", ErrEmptyTitle
	}
	if len(questions) == 0 {
		return "", ErrNoQuestions
	}
	if durationSeconds <= 0 {
		return "", ErrBadDuration
	}

	now := s.now()
	start := now
	st := State{
		ID:            uuid.New().String(),
		Title:         title,
		Questions:     questions,
		Attempts:      make(map[string]int),
		Answers:       make(map[string]string),
		Verdicts:      make(map[string]bool),
		StartTime:     &start,
		TimeRemaining: durationSeconds,
		TotalDuration: durationSeconds,
		CreatedAt:     now,
	}

	s.replace(st)
	s.rememberCurrent(context.Background(), st)
	return st.ID, nil
}

// SubmitAnswer submits the learner's answer for the current question.
// input is the chosen option id for multiple choice and the literal text
// for free-text questions. Submissions are serialized: a second call while
// one is outstanding fails with ErrSubmitInFlight.
func (s *Store) SubmitAnswer(ctx context.Context, input string) (*SubmitResult, error) {
	s.mu.Lock()
	if !s.initializedLocked() {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	if s.state.ShowResults {
		s.mu.Unlock()
		return nil, ErrSessionCompleted
	}
	if s.state.CurrentQuestionIndex >= len(s.state.Questions) {
		s.mu.Unlock()
		return nil, ErrNoQuestion
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	if s.authority == nil {
		defer s.mu.Unlock()
		return s.submitLocalLocked(input), nil
	}

	s.submitting = true
	sessionID := s.state.ID
	index := s.state.CurrentQuestionIndex
	question := s.state.Questions[index]
	s.mu.Unlock()

	res, err := s.submitRemote(ctx, sessionID, index, question, input)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
	return res, err
}

// submitRemote posts the answer and adopts the server's verdict. The state
// is re-read under lock after the network round trip; the response is
// discarded if the session was cleared, replaced, or finalized meanwhile.
func (s *Store) submitRemote(ctx context.Context, sessionID string, index int, question Question, input string) (*SubmitResult, error) {
	lessonID, err := strconv.Atoi(sessionID)
	if err != nil {
		return nil, fmt.Errorf("remote session id %q is not numeric", sessionID)
	}
	answerID, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("answer id %q is not numeric", input)
	}

	verdict, err := s.authority.SubmitAnswer(ctx, lessonID, answerID)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("submit answer failed")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The world may have moved on during the round trip.
	if s.state.ID != sessionID {
		s.log.Debug().Str("session", sessionID).Msg("discarding verdict for replaced session")
		return nil, ErrNoSession
	}
	if s.state.ShowResults {
		// Timer expiry finalized the session first; the terminal state wins.
		return nil, ErrSessionCompleted
	}

	next := s.state.clone()
	next.Attempts[question.ID]++
	next.Answers[question.ID] = input
	next.Verdicts[question.ID] = verdict.IsCorrect
	next.Score = verdict.Score
	next.TimeRemaining = verdict.TimeRemaining
	next.CurrentQuestionIndex = index + 1
	next.ShowResults = verdict.IsLastQuestion
	if next.ShowResults {
		next.CurrentQuestionIndex = len(next.Questions)
	}
	s.state = next

	return &SubmitResult{
		Correct:         verdict.IsCorrect,
		CorrectOptionID: strconv.Itoa(verdict.CorrectAnswerID),
		Advanced:        true,
		Completed:       next.ShowResults,
	}, nil
}

// submitLocalLocked applies the local grading and transition rules. Caller
// holds the lock.
func (s *Store) submitLocalLocked(input string) *SubmitResult {
	question := s.state.Questions[s.state.CurrentQuestionIndex]
	correct := Evaluate(question, input)

	next := s.state.clone()
	next.Attempts[question.ID]++
	next.Answers[question.ID] = input
	next.Verdicts[question.ID] = correct
	if correct {
		next.Score++
	}

	// A multi-attempt question advances only on success or exhausted
	// attempts; a single-attempt question always advances.
	limit := MaxAttempts(question.Kind)
	advanced := correct || next.Attempts[question.ID] >= limit
	if advanced {
		next.CurrentQuestionIndex++
		if next.CurrentQuestionIndex >= len(next.Questions) {
			next.CurrentQuestionIndex = len(next.Questions)
			next.ShowResults = true
		}
	}
	s.state = next

	res := &SubmitResult{
		Correct:         correct,
		CorrectOptionID: question.CorrectOptionID,
		Advanced:        advanced,
		Completed:       next.ShowResults,
	}
	if !advanced {
		res.AttemptsLeft = limit - next.Attempts[question.ID]
	}
	return res
}

// LoadSession fetches a session by id and replaces the current state on
// success. Not-found and invalid payloads return (false, nil): expected,
// recoverable conditions the guard turns into a redirect. Transport
// failures return the error. State is never mutated on any failure path.
func (s *Store) LoadSession(ctx context.Context, id string) (bool, error) {
	if s.authority == nil {
		return s.loadCached(ctx, id), nil
	}

	lessonID, err := strconv.Atoi(id)
	if err != nil {
		return false, nil
	}

	payload, err := s.authority.GetLesson(ctx, lessonID)
	if err != nil {
		var malformed *api.ErrMalformedPayload
		switch {
		case api.IsNotFound(err):
			return false, nil
		case errors.As(err, &malformed):
			s.log.Warn().Err(err).Str("session", id).Msg("rejecting invalid session payload")
			return false, nil
		default:
			return false, err
		}
	}

	st, err := stateFromPayload(payload, s.now())
	if err != nil {
		s.log.Warn().Err(err).Str("session", id).Msg("rejecting unusable session payload")
		return false, nil
	}

	s.replace(st)
	s.rememberCurrent(ctx, st)
	return true, nil
}

func (s *Store) loadCached(ctx context.Context, id string) bool {
	if s.cache == nil {
		return false
	}
	st, err := s.cache.LoadSession(ctx, id)
	if err != nil || st == nil {
		return false
	}
	if len(st.Questions) == 0 {
		return false
	}
	s.replace(*st)
	return true
}

// CheckSessionExists probes for a session without adopting it.
func (s *Store) CheckSessionExists(ctx context.Context, id string) bool {
	if s.authority == nil {
		return s.cache != nil && s.cache.HasSession(ctx, id)
	}
	lessonID, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	_, err = s.authority.GetLesson(ctx, lessonID)
	return err == nil
}

// IsSessionCompleted reports terminal status for a given id.
func (s *Store) IsSessionCompleted(ctx context.Context, id string) bool {
	s.mu.Lock()
	if s.state.ID == id {
		done := s.state.ShowResults
		s.mu.Unlock()
		return done
	}
	s.mu.Unlock()

	if s.authority == nil && s.cache != nil {
		st, err := s.cache.LoadSession(ctx, id)
		return err == nil && st != nil && st.ShowResults
	}
	return false
}

// ResetSession rewinds progress while keeping the session identity: index,
// score, attempts, answers and the terminal flag return to initial values;
// questions, id and time budget are preserved; the timer is rearmed
// (remaining time back to the full budget, reference cleared).
func (s *Store) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initializedLocked() {
		return
	}

	next := s.state.clone()
	next.CurrentQuestionIndex = 0
	next.Score = 0
	next.Attempts = make(map[string]int)
	next.Answers = make(map[string]string)
	next.Verdicts = make(map[string]bool)
	next.ShowResults = false
	next.StartTime = nil
	next.TimeRemaining = next.TotalDuration
	s.state = next
}

// ClearSession discards the current session entirely.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.state = emptyState(s.now())
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.ClearCurrent(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("clear current session pointer")
		}
	}
}

// CompleteByTimeout marks the session finished because the countdown hit
// zero. Idempotent: returns true only for the transition that actually
// finalized the session, so overlapping expiry triggers collapse to one.
func (s *Store) CompleteByTimeout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initializedLocked() || s.state.ShowResults {
		return false
	}

	next := s.state.clone()
	next.ShowResults = true
	next.TimeRemaining = 0
	s.state = next
	s.log.Debug().Str("session", next.ID).Msg("session completed by timeout")
	return true
}

// SyncTimeRemaining adopts a fresh authoritative remaining-time value,
// typically after a submission round trip.
func (s *Store) SyncTimeRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initializedLocked() || s.state.ShowResults {
		return
	}
	next := s.state.clone()
	next.TimeRemaining = seconds
	s.state = next
}

// --- derivations (pure reads, no side effects) ---

// CurrentQuestion returns the question at the current index, or nil when
// the index has moved past the end.
func (s *Store) CurrentQuestion() *Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentQuestionIndex >= len(s.state.Questions) {
		return nil
	}
	q := s.state.Questions[s.state.CurrentQuestionIndex]
	return &q
}

// AttemptsForCurrentQuestion returns attempts made on the current question.
func (s *Store) AttemptsForCurrentQuestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentQuestionIndex >= len(s.state.Questions) {
		return 0
	}
	return s.state.Attempts[s.state.Questions[s.state.CurrentQuestionIndex].ID]
}

// AttemptsLeft returns the tries remaining on the current question.
func (s *Store) AttemptsLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentQuestionIndex >= len(s.state.Questions) {
		return 0
	}
	q := s.state.Questions[s.state.CurrentQuestionIndex]
	left := MaxAttempts(q.Kind) - s.state.Attempts[q.ID]
	if left < 0 {
		return 0
	}
	return left
}

// IsInitialized reports whether a session is loaded.
func (s *Store) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializedLocked()
}

// TimeRemaining returns the authoritative remaining seconds.
func (s *Store) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TimeRemaining
}

// SessionID returns the current session id, empty when none.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// ShowResults reports whether the session is terminal.
func (s *Store) ShowResults() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ShowResults
}

// Snapshot returns a deep copy of the full state for rendering and
// autosave.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// --- internals ---

func (s *Store) initializedLocked() bool {
	return s.state.ID != "" && len(s.state.Questions) > 0
}

// replace swaps in a fully-constructed state.
func (s *Store) replace(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// rememberCurrent records the active session in the cache as a resume
// hint. The remote service stays the source of truth; cache failures are
// logged, never surfaced.
func (s *Store) rememberCurrent(ctx context.Context, st State) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveSession(ctx, st); err != nil {
		s.log.Warn().Err(err).Str("session", st.ID).Msg("cache session")
		return
	}
	if err := s.cache.SetCurrent(ctx, st.ID); err != nil {
		s.log.Warn().Err(err).Str("session", st.ID).Msg("cache current pointer")
	}
}
