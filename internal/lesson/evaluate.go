package lesson

import "strings"

// Evaluate applies the local correctness rules for a question. It is the
// single place client-side grading happens; the remote variant never calls
// it and trusts the server's verdict instead.
func Evaluate(q Question, input string) bool {
	switch q.Kind {
	case KindMultipleChoice:
		return q.CorrectOptionID != "" && input == q.CorrectOptionID
	case KindInput:
		return normalize(input) == normalize(q.Answer)
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
