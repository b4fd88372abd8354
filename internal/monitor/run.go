package monitor

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the monitor until the user quits or ctx ends.
// A nil out writes to the terminal.
func Run(ctx context.Context, src Source, out io.Writer, opts ...Option) error {
	popts := []tea.ProgramOption{tea.WithContext(ctx)}
	if out != nil {
		popts = append(popts, tea.WithOutput(out))
	} else {
		popts = append(popts, tea.WithAltScreen())
	}

	_, err := tea.NewProgram(New(src, opts...), popts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
