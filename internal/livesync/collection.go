package livesync

import (
	"context"
	"slices"
	"sync"

	"github.com/mmcdole/awsync/internal/domain"
)

// Collection mirrors a filtered document listing
type Collection struct {
	*Unit[domain.DocumentList]

	repo  domain.DocumentRepository
	store domain.SnapshotStore

	mu           sync.Mutex
	started      bool
	databaseID   string
	collectionID string
	queries      []string
}

// NewCollection creates a stopped collection unit
func NewCollection(repo domain.DocumentRepository, sub domain.Subscriber, opts ...Option) *Collection {
	o := buildOptions(opts)
	return &Collection{
		Unit:  newUnit[domain.DocumentList]("collection", sub, o),
		repo:  repo,
		store: o.store,
	}
}

// Start fetches the listing and subscribes to the collection channel.
// Starting again with the same target is a no-op; a different target
// restarts the unit.
func (c *Collection) Start(databaseID, collectionID string, queries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started && c.databaseID == databaseID && c.collectionID == collectionID &&
		slices.Equal(c.queries, queries) {
		return
	}
	c.started = true
	c.databaseID = databaseID
	c.collectionID = collectionID
	c.queries = slices.Clone(queries)
	c.rebind()
}

// SetQueries changes the filter set. Equal sets (by value) are ignored.
func (c *Collection) SetQueries(queries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Equal(c.queries, queries) {
		return
	}
	c.queries = slices.Clone(queries)
	if c.started {
		c.rebind()
	}
}

// Queries returns the active filter set
func (c *Collection) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.queries)
}

// Target returns the database and collection being mirrored
func (c *Collection) Target() (databaseID, collectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.databaseID, c.collectionID
}

// Stop releases the subscription. It is safe to call more than once.
func (c *Collection) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
	c.stop()
}

// rebind must be called with c.mu held
func (c *Collection) rebind() {
	if c.databaseID == "" || c.collectionID == "" {
		c.reset(domain.ErrInvalidTarget)
		return
	}
	c.bind(c.binding())
}

func (c *Collection) binding() *binding[domain.DocumentList] {
	db, coll, queries := c.databaseID, c.collectionID, slices.Clone(c.queries)

	b := &binding[domain.DocumentList]{
		channel: domain.CollectionChannel(db, coll),
		fetch: func(ctx context.Context) (domain.DocumentList, error) {
			return c.repo.ListDocuments(ctx, db, coll, queries)
		},
		apply: patchCollection,
	}

	if c.store == nil {
		return b
	}
	b.seed = func() (domain.DocumentList, bool) {
		return c.store.GetDocumentList(db, coll, queries)
	}
	b.persist = func(list domain.DocumentList) {
		if err := c.store.SaveDocumentList(db, coll, queries, list); err != nil {
			c.logger.Error("failed to cache document list", "error", err)
		}
	}
	b.evict = func(ev domain.Event) {
		if !ev.Is(domain.ActionDelete) {
			return
		}
		if doc, ok := ev.Document(); ok {
			c.store.InvalidateDocument(db, coll, doc.ID)
		}
	}
	return b
}
