package components

import (
	"errors"

	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/livesync"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// SyncStatus summarizes a sync unit for display
type SyncStatus int

const (
	StatusIdle    SyncStatus = iota // Not started or stopped
	StatusLoading                   // Subscribed, first fetch pending
	StatusCached                    // Showing a cached snapshot, fetch pending
	StatusLive                      // Fetched and subscribed
	StatusError                     // Latest fetch failed
)

// StatusOf derives the display status from a unit snapshot
func StatusOf[T any](s livesync.State[T], active bool) SyncStatus {
	switch {
	case s.Err != nil:
		return StatusError
	case !active:
		return StatusIdle
	case s.Loaded:
		return StatusLive
	case s.Cached:
		return StatusCached
	default:
		return StatusLoading
	}
}

func (s SyncStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusCached:
		return "cached"
	case StatusLive:
		return "live"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// RenderSyncBadge renders a one-line status such as "● live · fine".
// spinner is shown while a fetch is pending.
func RenderSyncBadge(status SyncStatus, policy livesync.Policy, spinner string) string {
	var mark string
	switch status {
	case StatusLoading, StatusCached:
		mark = spinner
	case StatusLive:
		mark = styles.SuccessStyle.Render("●")
	case StatusError:
		mark = styles.ErrorStyle.Render("✗")
	default:
		mark = styles.DimStyle.Render("○")
	}

	label := status.String()
	switch status {
	case StatusCached:
		label = styles.WarningStyle.Render(label)
	case StatusError:
		label = styles.ErrorStyle.Render(label)
	default:
		label = styles.SubtitleStyle.Render(label)
	}

	return mark + " " + label + styles.DimStyle.Render(" · "+string(policy))
}

// ErrorText turns a sync error into a short user-facing message
func ErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUnauthorized):
		return "Not authorized. Log in again with L."
	case errors.Is(err, domain.ErrNotFound):
		return "Not found."
	case errors.Is(err, domain.ErrServerOffline):
		return "Endpoint unreachable."
	case errors.Is(err, domain.ErrInvalidTarget):
		return "Set watch.database and watch.collection in the config."
	default:
		return err.Error()
	}
}
