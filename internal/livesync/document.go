package livesync

import (
	"context"
	"sync"

	"github.com/mmcdole/awsync/internal/domain"
)

// Document mirrors a single document. With an empty document ID the unit
// stays idle: no fetch and no subscription.
type Document struct {
	*Unit[*domain.Document]

	repo  domain.DocumentRepository
	store domain.SnapshotStore

	mu           sync.Mutex
	started      bool
	databaseID   string
	collectionID string
	documentID   string
}

// NewDocument creates a stopped document unit
func NewDocument(repo domain.DocumentRepository, sub domain.Subscriber, opts ...Option) *Document {
	o := buildOptions(opts)
	return &Document{
		Unit:  newUnit[*domain.Document]("document", sub, o),
		repo:  repo,
		store: o.store,
	}
}

// Start mirrors the given document, restarting if the target changed
func (d *Document) Start(databaseID, collectionID, documentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started && d.databaseID == databaseID && d.collectionID == collectionID &&
		d.documentID == documentID {
		return
	}
	d.started = true
	d.databaseID = databaseID
	d.collectionID = collectionID
	d.documentID = documentID
	d.rebind()
}

// SetDocumentID retargets the unit within the same collection
func (d *Document) SetDocumentID(documentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.documentID == documentID {
		return
	}
	d.documentID = documentID
	if d.started {
		d.rebind()
	}
}

// DocumentID returns the ID being mirrored, or "" when idle
func (d *Document) DocumentID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.documentID
}

// Stop releases the subscription. It is safe to call more than once.
func (d *Document) Stop() {
	d.mu.Lock()
	d.started = false
	d.mu.Unlock()
	d.stop()
}

// rebind must be called with d.mu held
func (d *Document) rebind() {
	switch {
	case d.documentID == "":
		d.reset(nil)
	case d.databaseID == "" || d.collectionID == "":
		d.reset(domain.ErrInvalidTarget)
	default:
		d.bind(d.binding())
	}
}

func (d *Document) binding() *binding[*domain.Document] {
	db, coll, id := d.databaseID, d.collectionID, d.documentID

	b := &binding[*domain.Document]{
		channel: domain.DocumentChannel(db, coll, id),
		fetch: func(ctx context.Context) (*domain.Document, error) {
			return d.repo.GetDocument(ctx, db, coll, id)
		},
		apply: documentPatcher(id),
	}

	if d.store == nil {
		return b
	}
	b.seed = func() (*domain.Document, bool) {
		return d.store.GetDocument(db, coll, id)
	}
	b.persist = func(doc *domain.Document) {
		if err := d.store.SaveDocument(doc); err != nil {
			d.logger.Error("failed to cache document", "error", err)
		}
	}
	b.evict = func(ev domain.Event) {
		if ev.Is(domain.ActionDelete) {
			d.store.InvalidateDocument(db, coll, id)
		}
	}
	return b
}
