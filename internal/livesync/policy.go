package livesync

import (
	"fmt"
	"strings"
)

// Policy decides how a sync unit reacts to realtime events
type Policy string

const (
	// PolicyCoarse re-fetches on every event
	PolicyCoarse Policy = "coarse"

	// PolicyFine applies update payloads in place and re-fetches otherwise
	PolicyFine Policy = "fine"
)

// ParsePolicy parses a policy name, case-insensitively. Empty means fine.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyFine):
		return PolicyFine, nil
	case string(PolicyCoarse):
		return PolicyCoarse, nil
	default:
		return "", fmt.Errorf("unknown sync policy %q (want fine or coarse)", s)
	}
}

// Toggle returns the other policy
func (p Policy) Toggle() Policy {
	if p == PolicyCoarse {
		return PolicyFine
	}
	return PolicyCoarse
}
