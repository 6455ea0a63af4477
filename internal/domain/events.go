package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Event actions carried as the last segment of an Appwrite event name,
// e.g. "databases.db.collections.tasks.documents.abc.update"
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one realtime message delivered on a subscribed channel
type Event struct {
	Events    []string        `json:"events"`    // Fully qualified event names
	Channels  []string        `json:"channels"`  // Channels the event was published to
	Timestamp Timestamp       `json:"timestamp"` // Server time of the change
	Payload   json.RawMessage `json:"payload"`   // Affected resource
}

// Is reports whether any of the event names ends with the given action
func (e Event) Is(action string) bool {
	suffix := "." + action
	for _, name := range e.Events {
		if strings.HasSuffix(name, suffix) || name == action {
			return true
		}
	}
	return false
}

// Action returns the first recognised action among the event names,
// or "" when none is present.
func (e Event) Action() string {
	for _, a := range []string{ActionCreate, ActionUpdate, ActionDelete} {
		if e.Is(a) {
			return a
		}
	}
	return ""
}

// Document decodes the payload as a document. ok is false when the payload
// is missing, malformed, or has no $id.
func (e Event) Document() (doc Document, ok bool) {
	if len(e.Payload) == 0 {
		return Document{}, false
	}
	if err := json.Unmarshal(e.Payload, &doc); err != nil {
		return Document{}, false
	}
	return doc, doc.ID != ""
}

// Timestamp accepts both the unix-seconds number and the formatted string
// forms used by different server versions.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02 15:04:05.000"

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] != '"' {
		secs, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		t.Time = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, timestampLayout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	// Unknown format; keep the zero time rather than dropping the event
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
