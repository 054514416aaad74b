package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"lifequest/internal/engine"
)

// RunBoard starts the interactive today board.
func RunBoard(ctx context.Context, svc *engine.Service) error {
	p := tea.NewProgram(newBoardModel(ctx, svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	return nil
}
