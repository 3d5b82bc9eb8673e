package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

// Run opens the browse view full screen and blocks until the user quits or ctx is
// canceled.
func Run(ctx context.Context, t ranking.Table, rows []model.Row, opts ...Option) error {
	m := New(ctx, t, rows, opts...)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
