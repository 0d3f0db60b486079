package lesson

import (
	"testing"

	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
)

func TestAnswerVerdict(t *testing.T) {
	graded := sess.Question{
		ID:   "q1",
		Kind: sess.KindMultipleChoice,
		Options: []sess.Option{
			{ID: "a", Text: "Paris"},
			{ID: "b", Text: "Rome"},
		},
		Answer:          "Paris",
		CorrectOptionID: "a",
	}
	opaque := sess.Question{
		ID:   "q2",
		Kind: sess.KindMultipleChoice,
		Options: []sess.Option{
			{ID: "a", Text: "Paris"},
			{ID: "b", Text: "Rome"},
		},
	}

	tests := []struct {
		name        string
		verdicts    map[string]bool
		q           sess.Question
		answer      string
		wantCorrect bool
		wantGraded  bool
	}{
		{
			// The verdict recorded at submission wins even when local
			// re-derivation would disagree.
			name:        "recorded verdict wins",
			verdicts:    map[string]bool{"q1": false},
			q:           graded,
			answer:      "a",
			wantCorrect: false,
			wantGraded:  true,
		},
		{
			name:        "recorded verdict for opaque question",
			verdicts:    map[string]bool{"q2": true},
			q:           opaque,
			answer:      "b",
			wantCorrect: true,
			wantGraded:  true,
		},
		{
			name:        "fallback re-derives when grading data present",
			verdicts:    nil,
			q:           graded,
			answer:      "a",
			wantCorrect: true,
			wantGraded:  true,
		},
		{
			name:       "no verdict and no grading data stays unmarked",
			verdicts:   nil,
			q:          opaque,
			answer:     "b",
			wantGraded: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := sess.State{Verdicts: tt.verdicts}
			correct, ok := answerVerdict(snap, tt.q, tt.answer)
			if ok != tt.wantGraded {
				t.Fatalf("graded = %v, want %v", ok, tt.wantGraded)
			}
			if ok && correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", correct, tt.wantCorrect)
			}
		})
	}
}
