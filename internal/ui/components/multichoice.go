package components

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/aleksandrbar00/kulai-app/internal/ui/theme"
)

// Choice is one selectable answer option.
type Choice struct {
	ID    string
	Label string
}

// MultiChoice is a multiple-choice selector. Correctness is revealed only
// once Reveal is called with the authoritative correct option id — the
// component itself never grades.
type MultiChoice struct {
	Question  string
	Choices   []Choice
	Selected  int
	Submitted bool

	chosenID  string
	correctID string
	revealed  bool
}

// NewMultiChoice creates a new multiple-choice component.
func NewMultiChoice(question string, choices []Choice) MultiChoice {
	return MultiChoice{
		Question: question,
		Choices:  choices,
	}
}

// Update handles keyboard navigation and selection.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted {
		return m, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Choices)-1 {
			m.Selected++
		}
	default:
		// Number keys jump straight to an option.
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.Choices) {
				m.Selected = idx
			}
		}
	}

	return m, nil
}

// Submit locks in the current selection and returns the chosen option id.
func (m *MultiChoice) Submit() string {
	if m.Selected < 0 || m.Selected >= len(m.Choices) {
		return ""
	}
	m.Submitted = true
	m.chosenID = m.Choices[m.Selected].ID
	return m.chosenID
}

// Reveal shows the verdict using the authoritative correct option id.
func (m *MultiChoice) Reveal(correctID string) {
	m.revealed = true
	m.correctID = correctID
}

// View renders the component.
func (m MultiChoice) View() string {
	questionStyle := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	s := questionStyle.Render(m.Question) + "\n\n"

	for i, c := range m.Choices {
		prefix := "  "
		if i == m.Selected && !m.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d)  %s", prefix, i+1, c.Label)

		switch {
		case m.revealed && c.ID == m.correctID:
			s += theme.Good.Render(line) + "\n"
		case m.revealed && c.ID == m.chosenID:
			s += theme.Bad.Render(line) + "\n"
		case m.revealed:
			s += theme.Dimmed.Render(line) + "\n"
		case i == m.Selected:
			s += lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(line) + "\n"
		default:
			s += lipgloss.NewStyle().Foreground(theme.Text).Render(line) + "\n"
		}
	}

	return s
}
