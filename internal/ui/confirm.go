package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// confirmModel is a minimal yes/no prompt
type confirmModel struct {
	prompt   string
	answered bool
	yes      bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.answered = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch strings.ToLower(string(keyMsg.Runes)) {
		case "y":
			m.answered = true
			m.yes = true
			return m, tea.Quit
		case "n":
			m.answered = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}
	return m.prompt + " " + HintStyle.Render("[y/n]") + " "
}

// Confirm asks the user a yes/no question. Anything but an explicit "y"
// counts as no.
func Confirm(prompt string) (bool, error) {
	final, err := tea.NewProgram(confirmModel{prompt: prompt}).Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).yes, nil
}
