package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/chatbox/internal/model/profile"
)

// Run starts the full-screen widget and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, conv Conversation, p profile.Profile, opts ...Option) error {
	m := New(conv, p, opts...)
	defer m.Close()

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
