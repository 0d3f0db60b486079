package lesson

import (
	"testing"
	"time"

	"github.com/aleksandrbar00/kulai-app/internal/api"
)

var now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestStateFromPayloadFresh(t *testing.T) {
	st, err := stateFromPayload(twoQuestionPayload(), now)
	if err != nil {
		t.Fatalf("stateFromPayload: %v", err)
	}

	if st.ID != "42" || st.Title != "Arithmetic" {
		t.Errorf("identity: id=%q title=%q", st.ID, st.Title)
	}
	if len(st.Questions) != 2 {
		t.Fatalf("questions = %d", len(st.Questions))
	}
	q := st.Questions[0]
	if q.ID != "10" || q.Kind != KindMultipleChoice || len(q.Options) != 2 {
		t.Errorf("question shape: %+v", q)
	}
	if q.CorrectOptionID != "1" || q.Answer != "4" {
		t.Errorf("correct answer mapping: id=%q text=%q", q.CorrectOptionID, q.Answer)
	}
	if st.CurrentQuestionIndex != 0 || st.Score != 0 || st.ShowResults {
		t.Errorf("fresh session progress: %+v", st)
	}
	if st.TimeRemaining != 600 || st.TotalDuration != 600 {
		t.Errorf("time: %d/%d", st.TimeRemaining, st.TotalDuration)
	}
	if st.CreatedAt.IsZero() || st.CreatedAt.Equal(now) {
		t.Error("createdAt should come from startedAt when parseable")
	}
}

func TestStateFromPayloadMidSession(t *testing.T) {
	p := twoQuestionPayload()
	p.Status = api.StatusInProgress
	p.CurrentQuestion = &p.Questions[1]
	p.CorrectAnswers = 1
	p.TimeRemaining = 200

	st, err := stateFromPayload(p, now)
	if err != nil {
		t.Fatalf("stateFromPayload: %v", err)
	}
	if st.CurrentQuestionIndex != 1 {
		t.Errorf("index = %d", st.CurrentQuestionIndex)
	}
	if st.Score != 1 || st.TimeRemaining != 200 {
		t.Errorf("score=%d time=%d", st.Score, st.TimeRemaining)
	}
	// Total budget comes from totalTimeInSeconds, not the remaining value.
	if st.TotalDuration != 600 {
		t.Errorf("total duration = %d", st.TotalDuration)
	}
}

func TestStateFromPayloadFinished(t *testing.T) {
	p := twoQuestionPayload()
	p.Status = api.StatusFinished
	p.TimeRemaining = 0

	st, err := stateFromPayload(p, now)
	if err != nil {
		t.Fatalf("stateFromPayload: %v", err)
	}
	if !st.ShowResults {
		t.Fatal("expected terminal state")
	}
	if st.CurrentQuestionIndex != len(st.Questions) {
		t.Errorf("index = %d, want past the end", st.CurrentQuestionIndex)
	}
	if st.StartTime != nil {
		t.Error("finished session must not carry a running timer reference")
	}
}

func TestStateFromPayloadDefaults(t *testing.T) {
	p := twoQuestionPayload()
	p.Title = nil
	p.TotalTimeInSeconds = nil
	p.StartedAt = "not-a-timestamp"

	st, err := stateFromPayload(p, now)
	if err != nil {
		t.Fatalf("stateFromPayload: %v", err)
	}
	if st.Title != "Lesson 42" {
		t.Errorf("fallback title = %q", st.Title)
	}
	if st.TotalDuration != st.TimeRemaining {
		t.Errorf("fallback duration = %d", st.TotalDuration)
	}
	if !st.CreatedAt.Equal(now) {
		t.Error("unparseable startedAt should fall back to now")
	}
}

func TestStateFromPayloadRejectsUnusable(t *testing.T) {
	p := twoQuestionPayload()
	p.Questions = nil
	if _, err := stateFromPayload(p, now); err == nil {
		t.Error("payload without questions must be rejected")
	}

	p = twoQuestionPayload()
	p.Questions[0].Answers = nil
	if _, err := stateFromPayload(p, now); err == nil {
		t.Error("question without answers must be rejected")
	}
}

func TestQuestionsFromBank(t *testing.T) {
	bank := []api.Question{
		{
			ID:    7,
			Title: "Largest planet?",
			Answers: []api.AnswerOption{
				{ID: 70, Title: "Jupiter"},
				{ID: 71, Title: "Saturn"},
			},
			CorrectAnswer: &api.AnswerOption{ID: 70, Title: "Jupiter"},
		},
	}

	qs := QuestionsFromBank(bank)
	if len(qs) != 1 {
		t.Fatalf("questions = %d", len(qs))
	}
	q := qs[0]
	if q.ID != "7" || q.Kind != KindMultipleChoice {
		t.Errorf("shape: %+v", q)
	}
	if q.CorrectOptionID != "70" || q.Answer != "Jupiter" {
		t.Errorf("correct answer: id=%q text=%q", q.CorrectOptionID, q.Answer)
	}
	if !Evaluate(q, "70") || Evaluate(q, "71") {
		t.Error("converted question must grade locally")
	}
}

func TestSummariesFromHistory(t *testing.T) {
	page := &api.HistoryPage{
		Lessons: []api.LessonPayload{
			{ID: 1, Title: strPtr("Done"), Status: api.StatusFinished, StartedAt: "2026-08-29T10:00:00Z"},
			{ID: 2, Status: api.StatusInProgress, StartedAt: "2026-08-30T10:00:00Z"},
		},
	}

	sums := SummariesFromHistory(page, now)
	if len(sums) != 2 {
		t.Fatalf("summaries = %d", len(sums))
	}
	if !sums[0].Finished() || sums[1].Finished() {
		t.Error("finished flags wrong")
	}
	if sums[1].Title != "Lesson 2" {
		t.Errorf("fallback title = %q", sums[1].Title)
	}
	if sums[0].CreatedAt.Format("2006-01-02") != "2026-08-29" {
		t.Errorf("createdAt = %v", sums[0].CreatedAt)
	}
}
