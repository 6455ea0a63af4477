package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/adapter"
)

// Command factories for async operations

// ListenCmd waits for the next sync signal. The model re-issues it after
// every StateChangedMsg so the channel is pumped for the program's lifetime.
func ListenCmd(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// StartSyncCmd mounts the configured targets on the sync units
func StartSyncCmd(m Model) tea.Cmd {
	target := m.target
	collection, document, account := m.Collection, m.Document, m.Account
	return func() tea.Msg {
		collection.Start(target.Database, target.Collection, target.Queries)
		document.Start(target.Database, target.Collection, target.Document)
		account.Start()
		return nil
	}
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// LogoutCmd clears server config and cache, then signals completion
func LogoutCmd() tea.Cmd {
	return func() tea.Msg {
		if err := adapter.ClearServerConfig(); err != nil {
			return LogoutCompleteMsg{Error: err}
		}
		if err := adapter.ClearCache(); err != nil {
			return LogoutCompleteMsg{Error: err}
		}
		return LogoutCompleteMsg{}
	}
}
