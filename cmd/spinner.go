package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type turnDoneMsg struct {
	err error
}

// turnSpinnerModel shows a spinner while one assistant turn is in flight.
type turnSpinnerModel struct {
	spinner spinner.Model
	label   string
	turn    tea.Cmd
	err     error
	done    bool
}

func newTurnSpinnerModel(label string, turn tea.Cmd) turnSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Moon),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return turnSpinnerModel{
		spinner: s,
		label:   label,
		turn:    turn,
	}
}

func (m turnSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.turn)
}

func (m turnSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case turnDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m turnSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runWithSpinner runs turn while drawing a spinner on output. turn's error is
// returned as is.
func runWithSpinner(ctx context.Context, output io.Writer, label string, turn func(context.Context) error) error {
	turnCmd := func() tea.Msg {
		return turnDoneMsg{err: turn(ctx)}
	}

	p := tea.NewProgram(
		newTurnSpinnerModel(label, turnCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(turnSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
