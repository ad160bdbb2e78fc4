package ui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// staticModel is a Bubble Tea model that draws its content once and quits.
// Commands use it for tables that should go through the same renderer as
// the rest of the terminal output, without any interaction.
type staticModel struct {
	content string
}

func (m staticModel) Init() tea.Cmd {
	return tea.Quit
}

func (m staticModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticModel) View() string {
	return m.content
}

// RenderOnce draws content to stdout with Bubble Tea and returns
func RenderOnce(content string) error {
	_, err := tea.NewProgram(staticModel{content: content}, tea.WithOutput(os.Stdout), tea.WithInput(nil)).Run()
	return err
}
