package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

// Modal is a centered two-button dialog. The hosting screen decides what
// confirm/dismiss mean; the modal only tracks which button is focused.
type Modal struct {
	Title        string
	Body         string
	ConfirmLabel string
	DismissLabel string
	confirmFocus bool
}

// NewModal creates a modal with the confirm button focused.
func NewModal(title, body, confirmLabel, dismissLabel string) Modal {
	return Modal{
		Title:        title,
		Body:         body,
		ConfirmLabel: confirmLabel,
		DismissLabel: dismissLabel,
		confirmFocus: true,
	}
}

// Update moves focus between the buttons.
func (m Modal) Update(msg tea.Msg) Modal {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m
	}
	switch kmsg.String() {
	case "left", "right", "tab", "h", "l":
		m.confirmFocus = !m.confirmFocus
	}
	return m
}

// ConfirmFocused reports whether the confirm button has focus.
func (m Modal) ConfirmFocused() bool {
	return m.confirmFocus
}

// View renders the modal centered in the given box.
func (m Modal) View(width, height int) string {
	title := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(m.Title)
	body := lipgloss.NewStyle().Foreground(theme.Text).Width(44).Render(m.Body)

	confirm := renderButton(m.ConfirmLabel, m.confirmFocus)
	dismiss := renderButton(m.DismissLabel, !m.confirmFocus)
	buttons := confirm + "   " + dismiss

	card := theme.Card.Render(strings.Join([]string{title, "", body, "", buttons}, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func renderButton(label string, focused bool) string {
	style := lipgloss.NewStyle().Padding(0, 2).Foreground(theme.TextDim)
	if focused {
		style = style.Foreground(theme.Text).Background(theme.Primary).Bold(true)
	}
	return style.Render(label)
}
