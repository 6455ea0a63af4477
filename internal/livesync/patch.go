package livesync

import (
	"slices"

	"github.com/mmcdole/awsync/internal/domain"
)

// patchCollection replaces the document matching an update payload by $id,
// keeping Total. It reports false when the list should be re-fetched instead.
func patchCollection(ev domain.Event, list domain.DocumentList, policy Policy) (domain.DocumentList, bool) {
	if policy != PolicyFine || !ev.Is(domain.ActionUpdate) {
		return list, false
	}
	doc, ok := ev.Document()
	if !ok {
		return list, false
	}
	i := list.IndexOf(doc.ID)
	if i < 0 {
		return list, false
	}

	// Earlier snapshots handed to observers share the old slice
	docs := slices.Clone(list.Documents)
	docs[i] = doc
	return domain.DocumentList{Total: list.Total, Documents: docs}, true
}

// documentPatcher replaces the snapshot with an update payload for id
func documentPatcher(id string) func(domain.Event, *domain.Document, Policy) (*domain.Document, bool) {
	return func(ev domain.Event, current *domain.Document, policy Policy) (*domain.Document, bool) {
		if policy != PolicyFine || !ev.Is(domain.ActionUpdate) {
			return current, false
		}
		doc, ok := ev.Document()
		if !ok || doc.ID != id {
			return current, false
		}
		return &doc, true
	}
}
