package lesson

import "time"

// QuestionKind distinguishes the two question variants.
type QuestionKind string

const (
	// KindMultipleChoice is answered by picking one option; a single
	// submission always settles the question.
	KindMultipleChoice QuestionKind = "multipleChoice"

	// KindInput is answered by free text and allows repeated tries up to
	// the attempt cap.
	KindInput QuestionKind = "input"
)

// maxAttemptsByKind is the per-variant attempt cap, applied only in the
// local variant; the remote authority enforces its own limits.
var maxAttemptsByKind = map[QuestionKind]int{
	KindMultipleChoice: 1,
	KindInput:          3,
}

// MaxAttempts returns the attempt cap for a question kind.
func MaxAttempts(kind QuestionKind) int {
	if n, ok := maxAttemptsByKind[kind]; ok {
		return n
	}
	return 1
}

// Option is one candidate answer of a multiple-choice question.
type Option struct {
	ID   string
	Text string
}

// Question is immutable within a session.
type Question struct {
	ID              string
	Text            string
	Kind            QuestionKind
	Options         []Option
	Answer          string // accepted answer text
	CorrectOptionID string // set for multiple choice
}

// Status values for session summaries, mirroring the wire contract.
const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// State is the full session state. It is replaced wholesale on every
// transition; partial mutation never escapes the store.
type State struct {
	ID                   string
	Title                string
	Questions            []Question
	CurrentQuestionIndex int
	Score                int
	Attempts             map[string]int    // question id → attempts made
	Answers              map[string]string // question id → literal submitted answer
	Verdicts             map[string]bool   // question id → verdict recorded at submission
	ShowResults          bool
	StartTime            *time.Time
	TimeRemaining        int // seconds, authoritative
	TotalDuration        int // seconds, fixed at creation
	CreatedAt            time.Time
}

// Summary is the lightweight projection used for listings.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Status    string
}

// Finished reports whether the summary describes a terminal session.
func (s Summary) Finished() bool {
	return s.Status == StatusFinished
}

// SubmitResult describes the outcome of a single answer submission.
type SubmitResult struct {
	Correct         bool
	CorrectOptionID string
	Advanced        bool // index moved forward
	Completed       bool // session reached terminal state
	AttemptsLeft    int  // for the same question, 0 once advanced
}

// clone returns a deep copy of the state so a swap never aliases the maps
// of the published state.
func (s State) clone() State {
	out := s
	out.Attempts = make(map[string]int, len(s.Attempts))
	for k, v := range s.Attempts {
		out.Attempts[k] = v
	}
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Verdicts = make(map[string]bool, len(s.Verdicts))
	for k, v := range s.Verdicts {
		out.Verdicts[k] = v
	}
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	return out
}

// emptyState returns the zero session.
func emptyState(now time.Time) State {
	return State{
		Attempts:  make(map[string]int),
		Answers:   make(map[string]string),
		Verdicts:  make(map[string]bool),
		CreatedAt: now,
	}
}
