package livesync

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmcdole/awsync/internal/domain"
)

func newTestCollection(docs *fakeDocs, sub *fakeSubscriber, opts ...Option) *Collection {
	opts = append([]Option{WithLogger(nullLogger())}, opts...)
	return NewCollection(docs, sub, opts...)
}

func TestCollectionStartFetchesOnceAndSubscribes(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(3, testDoc("a", "A"), testDoc("b", "B"), testDoc("c", "C")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)

	c.Start(testDB, testColl, []string{domain.Limit(25)})
	c.Wait()

	state := c.State()
	assert.Equal(t, docs.lists(), 1)
	assert.Equal(t, state.Loaded, true)
	assert.Equal(t, state.Err, nil)
	assert.Equal(t, ids(state.Value), []string{"a", "b", "c"})
	assert.Equal(t, sub.active(), []string{"databases.main.collections.tasks.documents"})

	// Same target again is a no-op
	c.Start(testDB, testColl, []string{domain.Limit(25)})
	c.Wait()
	subscribes, releases := sub.counts()
	assert.Equal(t, docs.lists(), 1)
	assert.Equal(t, subscribes, 1)
	assert.Equal(t, releases, 0)
}

func TestCollectionFetchErrorKeepsLoaded(t *testing.T) {
	fail := true
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			if fail {
				return domain.DocumentList{}, &domain.ServiceError{Code: 404, Type: "collection_not_found", Message: "missing"}
			}
			return testList(1, testDoc("a", "A")), nil
		},
	}
	c := newTestCollection(docs, &fakeSubscriber{})

	c.Start(testDB, testColl, nil)
	c.Wait()

	state := c.State()
	assert.Equal(t, state.Loaded, false)
	assert.Equal(t, errors.Is(state.Err, domain.ErrNotFound), true)

	fail = false
	c.Refresh()
	c.Wait()

	state = c.State()
	assert.Equal(t, state.Loaded, true)
	assert.Equal(t, state.Err, nil)

	// A later failure keeps the loaded value and flag
	fail = true
	c.Refresh()
	c.Wait()

	state = c.State()
	assert.Equal(t, state.Loaded, true)
	assert.NotEqual(t, state.Err, nil)
	assert.Equal(t, ids(state.Value), []string{"a"})
}

func TestCollectionFinePatchReplacesInPlace(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(42, testDoc("a", "A"), testDoc("b", "B"), testDoc("c", "C")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub, WithPolicy(PolicyFine))
	c.Start(testDB, testColl, nil)
	c.Wait()

	before := c.State().Value
	patched := testDoc("b", "B2")
	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, patched))
	c.Wait()

	state := c.State()
	assert.Equal(t, docs.lists(), 1)
	assert.Equal(t, state.Value.Total, 42)
	assert.Equal(t, ids(state.Value), []string{"a", "b", "c"})
	assert.Equal(t, state.Value.Documents[1], patched)

	// The earlier snapshot is untouched
	assert.Equal(t, before.Documents[1].Data["title"], "B")
}

func TestCollectionPatchMissRefetches(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(3, testDoc("a", "A"), testDoc("b", "B"), testDoc("c", "C")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, nil)
	c.Wait()

	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, testDoc("z", "Z")))
	c.Wait()

	state := c.State()
	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, state.Value.Total, 3)
	assert.Equal(t, ids(state.Value), []string{"a", "b", "c"})
}

func TestCollectionUnusablePayloadRefetches(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, nil)
	c.Wait()

	ev := docEvent(domain.ActionUpdate, testDoc("a", "A2"))
	ev.Payload = []byte(`"not a document"`)
	sub.publish(domain.CollectionChannel(testDB, testColl), ev)
	c.Wait()

	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, c.State().Value.Documents[0].Data["title"], "A")
}

func TestCollectionNonUpdateEventsRefetch(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			if call == 1 {
				return testList(1, testDoc("a", "A")), nil
			}
			return testList(2, testDoc("a", "A"), testDoc("b", "B")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, nil)
	c.Wait()

	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionCreate, testDoc("b", "B")))
	c.Wait()

	state := c.State()
	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, state.Value.Total, 2)
	assert.Equal(t, ids(state.Value), []string{"a", "b"})
}

func TestCollectionCoarsePolicyRefetchesOnUpdate(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub, WithPolicy(PolicyCoarse))
	c.Start(testDB, testColl, nil)
	c.Wait()

	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, testDoc("a", "A2")))
	c.Wait()

	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, c.State().Value.Documents[0].Data["title"], "A")

	// Switching policy takes effect without resubscribing
	c.SetPolicy(PolicyFine)
	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, testDoc("a", "A2")))
	c.Wait()

	subscribes, _ := sub.counts()
	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, subscribes, 1)
	assert.Equal(t, c.State().Value.Documents[0].Data["title"], "A2")
}

func TestCollectionQueryChangeRestarts(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc(queries[0], "x")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, []string{"a"})
	c.Wait()

	c.SetQueries([]string{"b"})
	c.Wait()

	subscribes, releases := sub.counts()
	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, subscribes, 2)
	assert.Equal(t, releases, 1)
	assert.Equal(t, len(sub.active()), 1)
	assert.Equal(t, docs.listCalls[1], []string{"b"})
	assert.Equal(t, ids(c.State().Value), []string{"b"})

	// Equal by value, different slice: nothing happens
	c.SetQueries([]string{"b"})
	c.Wait()
	subscribes, releases = sub.counts()
	assert.Equal(t, docs.lists(), 2)
	assert.Equal(t, subscribes, 2)
	assert.Equal(t, releases, 1)
}

func TestCollectionStopIsIdempotent(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, nil)
	c.Wait()

	c.Stop()
	c.Stop()
	c.Refresh()
	c.Wait()

	subscribes, releases := sub.counts()
	assert.Equal(t, docs.lists(), 1)
	assert.Equal(t, subscribes, 1)
	assert.Equal(t, releases, 1)
	assert.Equal(t, c.Active(), false)

	// Snapshot survives Stop
	assert.Equal(t, c.State().Loaded, true)
}

func TestCollectionIgnoresEventsAfterStop(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)
	c.Start(testDB, testColl, nil)
	c.Wait()
	c.Stop()

	sub.publishLate(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, testDoc("a", "late")))
	sub.publishLate(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionCreate, testDoc("b", "late")))
	c.Wait()

	assert.Equal(t, docs.lists(), 1)
	assert.Equal(t, c.State().Value.Documents[0].Data["title"], "A")
}

func TestCollectionDropsFetchCompletingAfterStop(t *testing.T) {
	gate := make(chan struct{})
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			<-gate
			return testList(1, testDoc("a", "A")), nil
		},
	}
	c := newTestCollection(docs, &fakeSubscriber{})
	c.Start(testDB, testColl, nil)
	c.Stop()
	close(gate)
	c.Wait()

	state := c.State()
	assert.Equal(t, state.Loaded, false)
	assert.Equal(t, len(state.Value.Documents), 0)
}

func TestCollectionDropsOlderFetch(t *testing.T) {
	slow := make(chan struct{})
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			if call == 1 {
				<-slow
				return testList(1, testDoc("old", "old")), nil
			}
			return testList(1, testDoc("new", "new")), nil
		},
	}
	c := newTestCollection(docs, &fakeSubscriber{})
	c.Start(testDB, testColl, nil)

	// Second fetch lands first
	c.Refresh()
	for !c.State().Loaded {
		waitBriefly()
	}
	close(slow)
	c.Wait()

	assert.Equal(t, ids(c.State().Value), []string{"new"})
}

func TestCollectionInvalidTarget(t *testing.T) {
	docs := &fakeDocs{}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub)

	c.Start("", testColl, nil)
	c.Wait()

	subscribes, _ := sub.counts()
	assert.Equal(t, docs.lists(), 0)
	assert.Equal(t, subscribes, 0)
	assert.Equal(t, errors.Is(c.State().Err, domain.ErrInvalidTarget), true)
}
