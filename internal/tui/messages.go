package tui

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// StateChangedMsg signals that a sync unit published a new snapshot.
// The model re-reads every unit on receipt, so a dropped signal is harmless
// as long as another one is queued.
type StateChangedMsg struct {
	Tab Tab
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// LogoutCompleteMsg signals that credentials and cache were cleared
type LogoutCompleteMsg struct {
	Error error
}
