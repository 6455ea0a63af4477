package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/livesync"
)

// ChannelObserver adapts livesync.Observer to a channel for Bubble Tea.
type ChannelObserver[T any] struct {
	ch  chan<- tea.Msg
	tab Tab
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver[T any](ch chan<- tea.Msg, tab Tab) *ChannelObserver[T] {
	return &ChannelObserver[T]{ch: ch, tab: tab}
}

// StateChanged signals the UI (non-blocking if full).
func (o *ChannelObserver[T]) StateChanged(livesync.State[T]) {
	select {
	case o.ch <- StateChangedMsg{Tab: o.tab}:
	default: // A pending signal already covers this change
	}
}
