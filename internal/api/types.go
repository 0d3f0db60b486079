package api

// Status values reported by the lesson service.
const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// AnswerOption is one candidate answer of a bank question.
type AnswerOption struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Question is a bank question as served inside a lesson payload.
type Question struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Answers       []AnswerOption `json:"answers"`
	CorrectAnswer *AnswerOption  `json:"correctAnswer"`
}

// CreateLessonRequest is the body of POST /lessons.
type CreateLessonRequest struct {
	Title            string `json:"title"`
	QuestionIDs      []int  `json:"questionIds"`
	MaxTimeInSeconds int    `json:"maxTimeInSeconds"`
}

// LessonPayload is the full session payload returned by POST /lessons and
// GET /lessons/{id}.
type LessonPayload struct {
	ID                 int        `json:"id"`
	Title              *string    `json:"title"`
	Status             string     `json:"status"`
	CurrentQuestion    *Question  `json:"currentQuestion"`
	CorrectAnswers     int        `json:"correctAnswersCount"`
	Questions          []Question `json:"questions"`
	TotalQuestions     int        `json:"totalQuestions"`
	TimeRemaining      int        `json:"timeRemaining"`
	StartedAt          string     `json:"startedAt"`
	FinishedAt         *string    `json:"finishedAt"`
	TotalTimeInSeconds *int       `json:"totalTimeInSeconds"`
}

// SubmitAnswerRequest is the body of POST /lessons/{id}/answer.
type SubmitAnswerRequest struct {
	AnswerID int `json:"answerId"`
}

// SubmitAnswerResult is the authoritative verdict for one submission.
type SubmitAnswerResult struct {
	IsCorrect       bool `json:"isCorrect"`
	CorrectAnswerID int  `json:"correctAnswerId"`
	IsLastQuestion  bool `json:"isLastQuestion"`
	Score           int  `json:"score"`
	TimeRemaining   int  `json:"timeRemaining"`
}

// HistoryPage is one page of GET /lessons/my-history.
type HistoryPage struct {
	Lessons    []LessonPayload `json:"lessons"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// Subcategory groups bank questions under a category.
type Subcategory struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Category is the top level of the question bank tree.
type Category struct {
	ID            int           `json:"id"`
	Title         string        `json:"title"`
	Subcategories []Subcategory `json:"subcategories"`
}
