package lesson

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aleksandrbar00/kulai-app/internal/api"
)

// stateFromPayload converts a validated remote session payload into domain
// state. Remote questions are always multiple choice; free-text questions
// exist only in the local variant.
func stateFromPayload(p *api.LessonPayload, now time.Time) (State, error) {
	if len(p.Questions) == 0 {
		return State{}, fmt.Errorf("payload has no questions")
	}

	questions := make([]Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		if len(q.Answers) == 0 {
			return State{}, fmt.Errorf("question %d has no answer options", q.ID)
		}
		dom := Question{
			ID:      strconv.Itoa(q.ID),
			Text:    q.Title,
			Kind:    KindMultipleChoice,
			Options: make([]Option, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			dom.Options = append(dom.Options, Option{ID: strconv.Itoa(a.ID), Text: a.Title})
		}
		if q.CorrectAnswer != nil {
			dom.Answer = q.CorrectAnswer.Title
			dom.CorrectOptionID = strconv.Itoa(q.CorrectAnswer.ID)
		}
		questions = append(questions, dom)
	}

	title := fmt.Sprintf("Lesson %d", p.ID)
	if p.Title != nil && *p.Title != "" {
		title = *p.Title
	}

	createdAt := now
	if t, err := time.Parse(time.RFC3339, p.StartedAt); err == nil {
		createdAt = t
	}

	totalDuration := p.TimeRemaining
	if p.TotalTimeInSeconds != nil && *p.TotalTimeInSeconds > 0 {
		totalDuration = *p.TotalTimeInSeconds
	}

	start := now
	st := State{
		ID:                   strconv.Itoa(p.ID),
		Title:                title,
		Questions:            questions,
		CurrentQuestionIndex: payloadIndex(p, questions),
		Score:                p.CorrectAnswers,
		Attempts:             make(map[string]int),
		Answers:              make(map[string]string),
		Verdicts:             make(map[string]bool),
		ShowResults:          p.Status == api.StatusFinished,
		StartTime:            &start,
		TimeRemaining:        p.TimeRemaining,
		TotalDuration:        totalDuration,
		CreatedAt:            createdAt,
	}
	if st.ShowResults {
		st.CurrentQuestionIndex = len(questions)
		st.StartTime = nil
	}
	return st, nil
}

// QuestionsFromBank converts bank-tree questions into domain questions for
// the local variant. The bank tree includes the correct answer, so a local
// session can grade without the remote service.
func QuestionsFromBank(qs []api.Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		dom := Question{
			ID:      strconv.Itoa(q.ID),
			Text:    q.Title,
			Kind:    KindMultipleChoice,
			Options: make([]Option, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			dom.Options = append(dom.Options, Option{ID: strconv.Itoa(a.ID), Text: a.Title})
		}
		if q.CorrectAnswer != nil {
			dom.Answer = q.CorrectAnswer.Title
			dom.CorrectOptionID = strconv.Itoa(q.CorrectAnswer.ID)
		}
		out = append(out, dom)
	}
	return out
}

// payloadIndex locates the server's current question within the ordered
// question list.
func payloadIndex(p *api.LessonPayload, questions []Question) int {
	if p.CurrentQuestion == nil {
		return 0
	}
	id := strconv.Itoa(p.CurrentQuestion.ID)
	for i, q := range questions {
		if q.ID == id {
			return i
		}
	}
	return 0
}

// summaryFromPayload projects a payload onto the listing shape.
func summaryFromPayload(p api.LessonPayload, now time.Time) Summary {
	title := fmt.Sprintf("Lesson %d", p.ID)
	if p.Title != nil && *p.Title != "" {
		title = *p.Title
	}
	createdAt := now
	if t, err := time.Parse(time.RFC3339, p.StartedAt); err == nil {
		createdAt = t
	}
	return Summary{
		ID:        strconv.Itoa(p.ID),
		Title:     title,
		CreatedAt: createdAt,
		Status:    p.Status,
	}
}

// SummariesFromHistory projects a history page onto summaries.
func SummariesFromHistory(page *api.HistoryPage, now time.Time) []Summary {
	out := make([]Summary, 0, len(page.Lessons))
	for _, l := range page.Lessons {
		out = append(out, summaryFromPayload(l, now))
	}
	return out
}
