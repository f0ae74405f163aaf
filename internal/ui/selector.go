package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tranqh91/nimbus/pkg/types"
)

const listHeight = 8

// ErrCancelled is returned when the user dismisses a prompt
var ErrCancelled = fmt.Errorf("cancelled")

// selectorModel is the bubbletea model for instance selection
type selectorModel struct {
	instances []types.Instance
	filtered  []types.Instance
	cursor    int
	offset    int // for scrolling
	search    string
	selected  *types.Instance
	quitting  bool
	cancelled bool
}

func newSelectorModel(instances []types.Instance) selectorModel {
	return selectorModel{
		instances: instances,
		filtered:  instances,
	}
}

// Init implements tea.Model
func (m selectorModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		m.cancelled = true
		return m, tea.Quit

	case tea.KeyEnter:
		if len(m.filtered) > 0 {
			m.selected = &m.filtered[m.cursor]
			m.quitting = true
			return m, tea.Quit
		}

	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		}

	case tea.KeyDown:
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			if m.cursor >= m.offset+listHeight {
				m.offset = m.cursor - listHeight + 1
			}
		}

	case tea.KeyBackspace:
		if len(m.search) > 0 {
			m.search = m.search[:len(m.search)-1]
			m.applyFilter()
		}

	case tea.KeyRunes:
		m.search += string(keyMsg.Runes)
		m.applyFilter()
	}

	return m, nil
}

func (m *selectorModel) applyFilter() {
	m.cursor = 0
	m.offset = 0

	if m.search == "" {
		m.filtered = m.instances
		return
	}

	needle := strings.ToLower(m.search)
	var filtered []types.Instance
	for _, inst := range m.instances {
		if strings.Contains(strings.ToLower(inst.Name), needle) ||
			strings.Contains(strings.ToLower(inst.PublicIP), needle) {
			filtered = append(filtered, inst)
		}
	}
	m.filtered = filtered
}

// View implements tea.Model
func (m selectorModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render("Select an instance"))
	sb.WriteString("  ")
	sb.WriteString(HintStyle.Render("type to filter, enter to select, esc to cancel"))
	sb.WriteString("\n")
	if m.search != "" {
		sb.WriteString(MutedStyle.Render("filter: " + m.search))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(m.filtered) == 0 {
		sb.WriteString(MutedStyle.Render("  no matches"))
		sb.WriteString("\n")
		return sb.String()
	}

	end := m.offset + listHeight
	if end > len(m.filtered) {
		end = len(m.filtered)
	}

	for i := m.offset; i < end; i++ {
		inst := m.filtered[i]
		line := fmt.Sprintf("%s  %s  %s",
			padRight(inst.Name, 26),
			padRight(string(inst.State), 10),
			padRight(inst.PublicIP, 16),
		)
		if i == m.cursor {
			sb.WriteString(NameStyle.Render("▸ " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}

	if len(m.filtered) > listHeight {
		sb.WriteString(MutedStyle.Render(
			fmt.Sprintf("\n  %d/%d", m.cursor+1, len(m.filtered)),
		))
		sb.WriteString("\n")
	}

	return sb.String()
}

// SelectInstance runs an interactive picker over the given instances
func SelectInstance(instances []types.Instance) (*types.Instance, error) {
	model := newSelectorModel(instances)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, err
	}

	result := final.(selectorModel)
	if result.cancelled || result.selected == nil {
		return nil, ErrCancelled
	}

	return result.selected, nil
}
