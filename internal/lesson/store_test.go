package lesson

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/api"
)

// fakeAuthority scripts the remote service. Hooks run after the simulated
// round trip, before the verdict is returned, to model concurrent
// transitions while a request is in flight.
type fakeAuthority struct {
	createPayload *api.LessonPayload
	createErr     error
	getPayload    *api.LessonPayload
	getErr        error
	verdict       *api.SubmitAnswerResult
	submitErr     error

	createCalls int
	submitCalls int
	submitHook  func()
	started     chan struct{}
	submitGate  chan struct{}
}

func (f *fakeAuthority) CreateLesson(ctx context.Context, req api.CreateLessonRequest) (*api.LessonPayload, error) {
	f.createCalls++
	return f.createPayload, f.createErr
}

func (f *fakeAuthority) GetLesson(ctx context.Context, id int) (*api.LessonPayload, error) {
	return f.getPayload, f.getErr
}

func (f *fakeAuthority) SubmitAnswer(ctx context.Context, lessonID, answerID int) (*api.SubmitAnswerResult, error) {
	f.submitCalls++
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.submitGate != nil {
		<-f.submitGate
	}
	if f.submitHook != nil {
		f.submitHook()
	}
	return f.verdict, f.submitErr
}

// fakeCache records writes.
type fakeCache struct {
	saved   map[string]State
	current string
	cleared int
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: make(map[string]State)}
}

func (f *fakeCache) SaveSession(ctx context.Context, st State) error {
	f.saved[st.ID] = st
	return nil
}

func (f *fakeCache) LoadSession(ctx context.Context, id string) (*State, error) {
	st, ok := f.saved[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (f *fakeCache) HasSession(ctx context.Context, id string) bool {
	_, ok := f.saved[id]
	return ok
}

func (f *fakeCache) SetCurrent(ctx context.Context, id string) error {
	f.current = id
	return nil
}

func (f *fakeCache) ClearCurrent(ctx context.Context) error {
	f.current = ""
	f.cleared++
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// twoQuestionPayload builds a fresh remote session payload with questions
// 10 and 20, each with options 1/2, correct option 1.
func twoQuestionPayload() *api.LessonPayload {
	questions := []api.Question{
		{
			ID:    10,
			Title: "What is 2 + 2?",
			Answers: []api.AnswerOption{
				{ID: 1, Title: "4"},
				{ID: 2, Title: "5"},
			},
			CorrectAnswer: &api.AnswerOption{ID: 1, Title: "4"},
		},
		{
			ID:    20,
			Title: "What is 3 * 3?",
			Answers: []api.AnswerOption{
				{ID: 3, Title: "9"},
				{ID: 4, Title: "6"},
			},
			CorrectAnswer: &api.AnswerOption{ID: 3, Title: "9"},
		},
	}
	return &api.LessonPayload{
		ID:                 42,
		Title:              strPtr("Arithmetic"),
		Status:             api.StatusStarted,
		CurrentQuestion:    &questions[0],
		Questions:          questions,
		TotalQuestions:     2,
		TimeRemaining:      600,
		StartedAt:          "2026-08-30T10:00:00Z",
		TotalTimeInSeconds: intPtr(600),
	}
}

func newRemoteStore(t *testing.T, authority *fakeAuthority, cache Cache) *Store {
	t.Helper()
	return NewStore(authority, cache, zerolog.Nop())
}

func initRemote(t *testing.T, authority *fakeAuthority, cache Cache) *Store {
	t.Helper()
	if authority.createPayload == nil {
		authority.createPayload = twoQuestionPayload()
	}
	s := newRemoteStore(t, authority, cache)
	id, err := s.InitializeSession(context.Background(), "Arithmetic", []int{10, 20}, 600)
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if id != "42" {
		t.Fatalf("expected session id 42, got %q", id)
	}
	return s
}

func TestInitializeSessionValidation(t *testing.T) {
	authority := &fakeAuthority{}
	s := newRemoteStore(t, authority, nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		title    string
		ids      []int
		duration int
		want     error
	}{
		{"empty title", "", []int{1}, 60, ErrEmptyTitle},
		{"no questions", "t", nil, 60, ErrNoQuestions},
		{"zero duration", "t", []int{1}, 0, ErrBadDuration},
		{"negative duration", "t", []int{1}, -5, ErrBadDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.InitializeSession(ctx, tc.title, tc.ids, tc.duration)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if authority.createCalls != 0 {
		t.Fatalf("validation failures must not reach the network, got %d calls", authority.createCalls)
	}
	if s.IsInitialized() {
		t.Fatal("failed initialization must leave no session behind")
	}
}

func TestInitializeSessionAdoptsPayload(t *testing.T) {
	cache := newFakeCache()
	s := initRemote(t, &fakeAuthority{}, cache)

	snap := s.Snapshot()
	if snap.Title != "Arithmetic" {
		t.Errorf("title = %q", snap.Title)
	}
	if len(snap.Questions) != 2 {
		t.Fatalf("questions = %d", len(snap.Questions))
	}
	if snap.CurrentQuestionIndex != 0 {
		t.Errorf("index = %d", snap.CurrentQuestionIndex)
	}
	if snap.TimeRemaining != 600 || snap.TotalDuration != 600 {
		t.Errorf("time = %d/%d", snap.TimeRemaining, snap.TotalDuration)
	}
	q := s.CurrentQuestion()
	if q == nil || q.ID != "10" || q.Kind != KindMultipleChoice {
		t.Fatalf("unexpected current question: %+v", q)
	}

	if cache.current != "42" {
		t.Errorf("cache current pointer = %q", cache.current)
	}
	if _, ok := cache.saved["42"]; !ok {
		t.Error("session not cached")
	}
}

func TestInitializeSessionRemoteFailureKeepsState(t *testing.T) {
	authority := &fakeAuthority{}
	s := initRemote(t, authority, nil)

	authority.createErr = errors.New("boom")
	_, err := s.InitializeSession(context.Background(), "Other", []int{1}, 60)
	if err == nil {
		t.Fatal("expected error")
	}
	if s.SessionID() != "42" {
		t.Fatalf("prior session lost: %q", s.SessionID())
	}
}

func TestSubmitAnswerAdoptsVerdict(t *testing.T) {
	authority := &fakeAuthority{
		verdict: &api.SubmitAnswerResult{
			IsCorrect:       true,
			CorrectAnswerID: 1,
			IsLastQuestion:  false,
			Score:           1,
			TimeRemaining:   570,
		},
	}
	s := initRemote(t, authority, nil)

	res, err := s.SubmitAnswer(context.Background(), "1")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.Correct || res.CorrectOptionID != "1" || !res.Advanced || res.Completed {
		t.Fatalf("unexpected result: %+v", res)
	}

	snap := s.Snapshot()
	if snap.Score != 1 {
		t.Errorf("score = %d, want the server's value", snap.Score)
	}
	if snap.TimeRemaining != 570 {
		t.Errorf("time remaining = %d, want the server's value", snap.TimeRemaining)
	}
	if snap.CurrentQuestionIndex != 1 {
		t.Errorf("index = %d", snap.CurrentQuestionIndex)
	}
	if snap.Answers["10"] != "1" {
		t.Errorf("literal answer not recorded: %q", snap.Answers["10"])
	}
	if snap.Attempts["10"] != 1 {
		t.Errorf("attempts = %d", snap.Attempts["10"])
	}
	if v, ok := snap.Verdicts["10"]; !ok || !v {
		t.Errorf("verdict not recorded: %v, %v", v, ok)
	}
}

// The server's verdict is recorded as judged, even when the payload gave
// the client nothing to grade with.
func TestSubmitAnswerRecordsVerdictWithoutCorrectAnswer(t *testing.T) {
	payload := twoQuestionPayload()
	for i := range payload.Questions {
		payload.Questions[i].CorrectAnswer = nil
	}
	payload.CurrentQuestion = &payload.Questions[0]
	authority := &fakeAuthority{
		createPayload: payload,
		verdict: &api.SubmitAnswerResult{
			IsCorrect:     true,
			Score:         1,
			TimeRemaining: 570,
		},
	}
	s := initRemote(t, authority, nil)

	if _, err := s.SubmitAnswer(context.Background(), "2"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	snap := s.Snapshot()
	if snap.Questions[0].CorrectOptionID != "" {
		t.Fatalf("test payload leaked grading data: %q", snap.Questions[0].CorrectOptionID)
	}
	if v, ok := snap.Verdicts["10"]; !ok || !v {
		t.Errorf("server verdict not recorded: %v, %v", v, ok)
	}
}

func TestSubmitAnswerLastQuestionFinishes(t *testing.T) {
	authority := &fakeAuthority{
		verdict: &api.SubmitAnswerResult{
			IsCorrect:       false,
			CorrectAnswerID: 1,
			IsLastQuestion:  true,
			Score:           1,
			TimeRemaining:   500,
		},
	}
	s := initRemote(t, authority, nil)

	res, err := s.SubmitAnswer(context.Background(), "2")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.Completed {
		t.Fatal("expected completion")
	}
	snap := s.Snapshot()
	if !snap.ShowResults {
		t.Fatal("expected terminal state")
	}
	if snap.CurrentQuestionIndex != len(snap.Questions) {
		t.Errorf("index = %d, want past the end", snap.CurrentQuestionIndex)
	}
	if s.CurrentQuestion() != nil {
		t.Error("no current question after completion")
	}
}

func TestSubmitAnswerAfterCompletion(t *testing.T) {
	s := initRemote(t, &fakeAuthority{}, nil)
	if !s.CompleteByTimeout() {
		t.Fatal("timeout should finalize")
	}
	_, err := s.SubmitAnswer(context.Background(), "1")
	if !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
}

func TestSubmitAnswerDiscardsVerdictForReplacedSession(t *testing.T) {
	authority := &fakeAuthority{
		verdict: &api.SubmitAnswerResult{IsCorrect: true, Score: 1, TimeRemaining: 1},
	}
	s := initRemote(t, authority, nil)

	// The session is cleared while the round trip is in flight.
	authority.submitHook = func() { s.ClearSession() }

	_, err := s.SubmitAnswer(context.Background(), "1")
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if s.IsInitialized() {
		t.Fatal("discarded verdict must not resurrect the session")
	}
}

func TestSubmitAnswerTimeoutWinsOverVerdict(t *testing.T) {
	authority := &fakeAuthority{
		verdict: &api.SubmitAnswerResult{IsCorrect: true, IsLastQuestion: true, Score: 2, TimeRemaining: 0},
	}
	s := initRemote(t, authority, nil)

	// The countdown expires while the answer is in flight. The terminal
	// state from the timeout must not be overwritten by the late verdict.
	authority.submitHook = func() { s.CompleteByTimeout() }

	_, err := s.SubmitAnswer(context.Background(), "1")
	if !errors.Is(err, ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
	snap := s.Snapshot()
	if snap.Score != 0 {
		t.Errorf("late verdict mutated the terminal state: score = %d", snap.Score)
	}
}

func TestSubmitAnswerSerialized(t *testing.T) {
	authority := &fakeAuthority{
		verdict:    &api.SubmitAnswerResult{IsCorrect: true, Score: 1, TimeRemaining: 1},
		started:    make(chan struct{}, 1),
		submitGate: make(chan struct{}),
	}
	s := initRemote(t, authority, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(context.Background(), "1")
		firstDone <- err
	}()

	// Wait for the first submission to reach the authority.
	select {
	case <-authority.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never started")
	}

	_, err := s.SubmitAnswer(context.Background(), "2")
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(authority.submitGate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if authority.submitCalls != 1 {
		t.Fatalf("expected exactly one network submission, got %d", authority.submitCalls)
	}
}

func TestCompleteByTimeoutIdempotent(t *testing.T) {
	s := initRemote(t, &fakeAuthority{}, nil)
	if !s.CompleteByTimeout() {
		t.Fatal("first expiry should finalize")
	}
	if s.CompleteByTimeout() {
		t.Fatal("second expiry must be a no-op")
	}
	if s.TimeRemaining() != 0 {
		t.Errorf("time remaining = %d", s.TimeRemaining())
	}
}

func TestResetSessionRewinds(t *testing.T) {
	authority := &fakeAuthority{
		verdict: &api.SubmitAnswerResult{IsCorrect: true, CorrectAnswerID: 1, Score: 1, TimeRemaining: 400},
	}
	s := initRemote(t, authority, nil)
	if _, err := s.SubmitAnswer(context.Background(), "1"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	s.ResetSession()
	snap := s.Snapshot()
	if snap.ID != "42" {
		t.Errorf("identity changed: %q", snap.ID)
	}
	if snap.CurrentQuestionIndex != 0 || snap.Score != 0 || snap.ShowResults {
		t.Errorf("progress not rewound: %+v", snap)
	}
	if len(snap.Attempts) != 0 || len(snap.Answers) != 0 || len(snap.Verdicts) != 0 {
		t.Error("attempts/answers/verdicts not cleared")
	}
	if snap.TimeRemaining != snap.TotalDuration {
		t.Errorf("timer not rearmed: %d/%d", snap.TimeRemaining, snap.TotalDuration)
	}
	if snap.StartTime != nil {
		t.Error("start reference not cleared")
	}
	if len(snap.Questions) != 2 {
		t.Error("questions must survive a reset")
	}
}

func TestLoadSession(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		authority := &fakeAuthority{getErr: api.ErrNotFound}
		s := newRemoteStore(t, authority, nil)
		ok, err := s.LoadSession(context.Background(), "7")
		if ok || err != nil {
			t.Fatalf("want (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		authority := &fakeAuthority{getErr: errors.New("connection refused")}
		s := newRemoteStore(t, authority, nil)
		ok, err := s.LoadSession(context.Background(), "7")
		if ok || err == nil {
			t.Fatalf("want (false, err), got (%v, %v)", ok, err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		authority := &fakeAuthority{getErr: &api.ErrMalformedPayload{Reason: "bad json"}}
		s := newRemoteStore(t, authority, nil)
		ok, err := s.LoadSession(context.Background(), "7")
		if ok || err != nil {
			t.Fatalf("want (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		s := newRemoteStore(t, &fakeAuthority{}, nil)
		ok, err := s.LoadSession(context.Background(), "abc")
		if ok || err != nil {
			t.Fatalf("want (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("success replaces state", func(t *testing.T) {
		authority := &fakeAuthority{getPayload: twoQuestionPayload()}
		s := newRemoteStore(t, authority, nil)
		ok, err := s.LoadSession(context.Background(), "42")
		if !ok || err != nil {
			t.Fatalf("want (true, nil), got (%v, %v)", ok, err)
		}
		if s.SessionID() != "42" {
			t.Errorf("session id = %q", s.SessionID())
		}
	})

	t.Run("failure leaves state untouched", func(t *testing.T) {
		authority := &fakeAuthority{}
		s := initRemote(t, authority, nil)
		authority.getErr = errors.New("boom")
		if ok, _ := s.LoadSession(context.Background(), "7"); ok {
			t.Fatal("load should fail")
		}
		if s.SessionID() != "42" {
			t.Errorf("prior session lost: %q", s.SessionID())
		}
	})
}

func TestLoadSessionResumesInProgress(t *testing.T) {
	payload := twoQuestionPayload()
	payload.Status = api.StatusInProgress
	payload.CurrentQuestion = &payload.Questions[1]
	payload.CorrectAnswers = 1
	payload.TimeRemaining = 300

	authority := &fakeAuthority{getPayload: payload}
	s := newRemoteStore(t, authority, nil)
	ok, err := s.LoadSession(context.Background(), "42")
	if !ok || err != nil {
		t.Fatalf("LoadSession: (%v, %v)", ok, err)
	}

	snap := s.Snapshot()
	if snap.CurrentQuestionIndex != 1 {
		t.Errorf("index = %d, want the server's current question", snap.CurrentQuestionIndex)
	}
	if snap.Score != 1 {
		t.Errorf("score = %d", snap.Score)
	}
	if snap.TimeRemaining != 300 {
		t.Errorf("time remaining = %d", snap.TimeRemaining)
	}
}

func TestClearSession(t *testing.T) {
	cache := newFakeCache()
	s := initRemote(t, &fakeAuthority{}, cache)

	s.ClearSession()
	if s.IsInitialized() {
		t.Fatal("session should be gone")
	}
	if cache.cleared != 1 || cache.current != "" {
		t.Error("current pointer not cleared")
	}
}

// --- local variant ---

func localQuestions() []Question {
	return []Question{
		{
			ID:   "q1",
			Text: "Capital of France?",
			Kind: KindInput,
			// Grading is case-insensitive and whitespace-tolerant.
			Answer: "Paris",
		},
		{
			ID:   "q2",
			Text: "2 + 2?",
			Kind: KindMultipleChoice,
			Options: []Option{
				{ID: "a", Text: "4"},
				{ID: "b", Text: "5"},
			},
			CorrectOptionID: "a",
			Answer:          "4",
		},
	}
}

func newLocalStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil, nil, zerolog.Nop())
	if _, err := s.InitializeLocal("Quiz", localQuestions(), 300); err != nil {
		t.Fatalf("InitializeLocal: %v", err)
	}
	return s
}

func TestLocalInputQuestionAttempts(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		res, err := s.SubmitAnswer(ctx, "London")
		if err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
		if res.Correct || res.Advanced {
			t.Fatalf("attempt %d should fail without advancing: %+v", i, res)
		}
		if res.AttemptsLeft != 3-i {
			t.Errorf("attempts left = %d, want %d", res.AttemptsLeft, 3-i)
		}
		if q := s.CurrentQuestion(); q == nil || q.ID != "q1" {
			t.Fatal("question must not advance before the cap")
		}
	}

	// Third miss exhausts the cap and moves on.
	res, err := s.SubmitAnswer(ctx, "Berlin")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.Correct || !res.Advanced {
		t.Fatalf("exhausted attempts must advance: %+v", res)
	}
	if q := s.CurrentQuestion(); q == nil || q.ID != "q2" {
		t.Fatal("expected the next question")
	}
	if s.Snapshot().Score != 0 {
		t.Error("failed question must not score")
	}
}

func TestLocalInputGradingNormalizes(t *testing.T) {
	s := newLocalStore(t)
	res, err := s.SubmitAnswer(context.Background(), "  pArIs  ")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if !res.Correct || !res.Advanced {
		t.Fatalf("normalized answer should pass: %+v", res)
	}
	if s.Snapshot().Score != 1 {
		t.Error("correct answer must score")
	}
}

func TestLocalMultipleChoiceSingleAttempt(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()
	if _, err := s.SubmitAnswer(ctx, "Paris"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	// A wrong pick still advances: multiple choice allows one attempt.
	res, err := s.SubmitAnswer(ctx, "b")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.Correct {
		t.Fatal("wrong option graded correct")
	}
	if !res.Advanced || !res.Completed {
		t.Fatalf("single-attempt question must advance and finish: %+v", res)
	}
	if res.CorrectOptionID != "a" {
		t.Errorf("correct option = %q", res.CorrectOptionID)
	}

	snap := s.Snapshot()
	if !snap.ShowResults || snap.Score != 1 {
		t.Errorf("final state: results=%v score=%d", snap.ShowResults, snap.Score)
	}
	if snap.Answers["q2"] != "b" {
		t.Errorf("literal answer not recorded: %q", snap.Answers["q2"])
	}
	if v, ok := snap.Verdicts["q1"]; !ok || !v {
		t.Errorf("q1 verdict = %v, %v", v, ok)
	}
	if v, ok := snap.Verdicts["q2"]; !ok || v {
		t.Errorf("q2 verdict = %v, %v", v, ok)
	}
}

func TestLocalLoadFromCache(t *testing.T) {
	cache := newFakeCache()
	s := NewStore(nil, cache, zerolog.Nop())
	id, err := s.InitializeLocal("Quiz", localQuestions(), 300)
	if err != nil {
		t.Fatalf("InitializeLocal: %v", err)
	}

	other := NewStore(nil, cache, zerolog.Nop())
	ok, err := other.LoadSession(context.Background(), id)
	if !ok || err != nil {
		t.Fatalf("LoadSession from cache: (%v, %v)", ok, err)
	}
	if other.SessionID() != id {
		t.Errorf("session id = %q", other.SessionID())
	}

	if ok, _ := other.LoadSession(context.Background(), "missing"); ok {
		t.Error("missing cached session should not load")
	}
}

func TestLocalSessionIDIsUnique(t *testing.T) {
	s := NewStore(nil, nil, zerolog.Nop())
	id1, _ := s.InitializeLocal("A", localQuestions(), 60)
	id2, _ := s.InitializeLocal("B", localQuestions(), 60)
	if id1 == id2 || id1 == "" {
		t.Fatalf("ids must be unique and non-empty: %q %q", id1, id2)
	}
	if _, err := strconv.Atoi(id1); err == nil {
		t.Log("local ids happen to be numeric; remote ids always are")
	}
}
