package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

// lowTimeThreshold switches the bar to the warning color.
const lowTimeThreshold = 10

// TimerBar renders the countdown as mm:ss plus a draining bar.
type TimerBar struct {
	Remaining int // seconds to display
	Total     int // full time budget in seconds
	Width     int
}

// NewTimerBar creates a timer bar.
func NewTimerBar(remaining, total, width int) TimerBar {
	return TimerBar{Remaining: remaining, Total: total, Width: width}
}

// View renders the timer bar.
func (t TimerBar) View() string {
	clock := FormatClock(t.Remaining)

	color := theme.Secondary
	if t.Remaining <= lowTimeThreshold {
		color = theme.Warning
	}
	if t.Remaining <= 0 {
		color = theme.Error
	}

	label := lipgloss.NewStyle().Foreground(color).Bold(true).Render("⏱ " + clock)

	barWidth := t.Width - lipgloss.Width(label) - 3
	if barWidth < 4 {
		return label
	}

	ratio := 0.0
	if t.Total > 0 {
		ratio = float64(t.Remaining) / float64(t.Total)
	}
	filled := int(float64(barWidth) * ratio)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := lipgloss.NewStyle().Background(color).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))

	return label + "  " + bar
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
