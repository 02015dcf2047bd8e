package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/task"
)

// runTask runs fn on the pool and converts its outcome into a message, so
// the Bubble Tea loop never blocks on the network.
func runTask[T any](pool *task.Pool, ctx context.Context, name string, fn func(context.Context) (T, error), wrap func(T, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, err := task.Submit(pool, ctx, name, fn).Wait(ctx)
		return wrap(v, err)
	}
}
