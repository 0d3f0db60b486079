package lesson

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
	"github.com/aleksandrbar00/kulai-app/internal/ui/components"
	"github.com/aleksandrbar00/kulai-app/internal/ui/layout"
	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	// Blank until the guard allows entry: protected content must not
	// flash before a redirect.
	if !s.authorized {
		return ""
	}
	if s.results {
		return s.viewResults(width, height)
	}
	return s.viewQuestion(width, height)
}

func (s *Screen) viewQuestion(width, height int) string {
	snap := s.store.Snapshot()
	q := s.store.CurrentQuestion()
	if q == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(theme.Subtitle.Render(
		fmt.Sprintf("Question %d of %d", snap.CurrentQuestionIndex+1, len(snap.Questions)),
	))
	b.WriteString("\n\n")

	bar := components.NewTimerBar(s.clock.Display(s.now), snap.TotalDuration, min(width-8, 48))
	b.WriteString(bar.View())
	b.WriteString("\n\n")

	if s.isChoice {
		b.WriteString(s.mc.View())
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(q.Text))
		b.WriteString("\n\n")
		b.WriteString(s.input.View())
		if left := s.store.AttemptsLeft(); left > 0 && q.Kind == sess.KindInput {
			b.WriteString("\n")
			b.WriteString(theme.Hint.Render(fmt.Sprintf("%d attempt(s) left", left)))
		}
	}

	if s.showingFeedback && s.lastResult != nil {
		b.WriteString("\n\n")
		b.WriteString(s.viewVerdict(q))
	}

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Bad.Render(s.errMsg))
	}

	if s.submitting {
		b.WriteString("\n\n")
		b.WriteString(theme.Dimmed.Render("Checking..."))
	}

	return layout.Center(theme.Card.Render(b.String()), width, height)
}

func (s *Screen) viewVerdict(q *sess.Question) string {
	res := s.lastResult
	if res.Correct {
		return theme.Good.Render("Correct!") + "\n" + theme.Hint.Render("Press any key to continue")
	}

	line := theme.Bad.Render("Incorrect.")
	if !res.Advanced {
		line += " " + theme.Dimmed.Render(fmt.Sprintf("%d attempt(s) left.", res.AttemptsLeft))
	} else if q.Kind == sess.KindInput && q.Answer != "" {
		line += " " + theme.Dimmed.Render("Answer: "+q.Answer)
	}
	return line + "\n" + theme.Hint.Render("Press any key to continue")
}

func (s *Screen) viewResults(width, height int) string {
	snap := s.store.Snapshot()

	var b strings.Builder

	b.WriteString(theme.Title.Render(snap.Title))
	b.WriteString("\n\n")

	total := len(snap.Questions)
	scoreStyle := theme.Good
	if total > 0 && snap.Score*2 < total {
		scoreStyle = theme.Bad
	}
	b.WriteString(scoreStyle.Render(fmt.Sprintf("Score: %d / %d", snap.Score, total)))
	b.WriteString("\n")
	frac := 0.0
	if total > 0 {
		frac = float64(snap.Score) / float64(total)
	}
	b.WriteString(components.NewProgressBar("", frac, true, min(width-12, 40)).View())
	b.WriteString("\n\n")

	for i, q := range snap.Questions {
		answer, answered := snap.Answers[q.ID]
		mark := theme.Dimmed.Render("·")
		detail := theme.Dimmed.Render("skipped")
		if answered {
			if correct, graded := answerVerdict(snap, q, answer); graded {
				if correct {
					mark = theme.Good.Render("✓")
				} else {
					mark = theme.Bad.Render("✗")
				}
			}
			detail = theme.Dimmed.Render(displayAnswer(q, answer))
		}
		b.WriteString(fmt.Sprintf("%s %d. %s  %s\n", mark, i+1, truncate(q.Text, 44), detail))
	}

	return layout.Center(theme.Card.Render(b.String()), width, height)
}

// answerVerdict resolves the review mark for a stored answer. The verdict
// recorded at submission time wins; answers that predate the local record
// (a finished session fetched from the server) are re-derived only when
// the payload carried grading data, and stay unmarked otherwise.
func answerVerdict(snap sess.State, q sess.Question, answer string) (correct, graded bool) {
	if v, ok := snap.Verdicts[q.ID]; ok {
		return v, true
	}
	if q.CorrectOptionID == "" && q.Answer == "" {
		return false, false
	}
	return sess.Evaluate(q, answer), true
}

// displayAnswer renders the stored literal answer in human form:
// multiple-choice answers are option ids, so map them back to labels.
func displayAnswer(q sess.Question, answer string) string {
	if q.Kind == sess.KindMultipleChoice {
		for _, o := range q.Options {
			if o.ID == answer {
				return o.Text
			}
		}
	}
	return answer
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
