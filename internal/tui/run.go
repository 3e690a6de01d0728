package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the category browser and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Engine == nil {
		return fmt.Errorf("tui: engine is required")
	}

	p := tea.NewProgram(newModel(cfg), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
