package lesson

import (
	"time"

	"github.com/aleksandrbar00/kulai-app/internal/guard"
	sess "github.com/aleksandrbar00/kulai-app/internal/lesson"
)

// guardResultMsg carries the guard's verdict for the requested session.
type guardResultMsg struct {
	SessionID string
	Decision  guard.Decision
}

// displayTickMsg drives the sub-second countdown display. It carries the
// session id it was armed for so ticks from a replaced session are dropped.
type displayTickMsg struct {
	SessionID string
	At        time.Time
}

// autosaveTickMsg drives the periodic cache save.
type autosaveTickMsg struct {
	SessionID string
}

// submitResultMsg carries the outcome of an answer submission.
type submitResultMsg struct {
	SessionID string
	Result    *sess.SubmitResult
	Err       error
}

// feedbackDoneMsg dismisses the verdict overlay.
type feedbackDoneMsg struct{}
