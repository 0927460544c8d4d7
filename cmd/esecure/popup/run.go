package popup

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Program wraps a running bubbletea program so other goroutines can push
// updates into it.
type Program struct {
	p *tea.Program
}

// NewProgram prepares the popup program on the alternate screen.
func NewProgram(ctx context.Context, m Model, opts ...tea.ProgramOption) *Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return &Program{p: tea.NewProgram(m, opts...)}
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// ApplyConfig forwards new backends to the running model.
func (p *Program) ApplyConfig(msg ConfigChangedMsg) {
	p.p.Send(msg)
}
