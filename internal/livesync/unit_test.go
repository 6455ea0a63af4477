package livesync

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmcdole/awsync/internal/domain"
)

// memStore is a map-backed SnapshotStore
type memStore struct {
	mu    sync.Mutex
	lists map[string]domain.DocumentList
	docs  map[string]*domain.Document
	user  *domain.User
}

func newMemStore() *memStore {
	return &memStore{
		lists: make(map[string]domain.DocumentList),
		docs:  make(map[string]*domain.Document),
	}
}

func listKey(db, coll string, queries []string) string {
	return db + "/" + coll + "?" + strings.Join(queries, "&")
}

func (m *memStore) GetDocumentList(db, coll string, queries []string) (domain.DocumentList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[listKey(db, coll, queries)]
	return l, ok
}

func (m *memStore) SaveDocumentList(db, coll string, queries []string, list domain.DocumentList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[listKey(db, coll, queries)] = list
	return nil
}

func (m *memStore) GetDocument(db, coll, id string) (*domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[db+"/"+coll+"/"+id]
	return d, ok
}

func (m *memStore) SaveDocument(doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.DatabaseID+"/"+doc.CollectionID+"/"+doc.ID] = doc
	return nil
}

func (m *memStore) GetAccount() (*domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.user != nil
}

func (m *memStore) SaveAccount(user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	return nil
}

func (m *memStore) InvalidateDocument(db, coll, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, db+"/"+coll+"/"+id)
}

func (m *memStore) InvalidateCollection(db, coll string) {}
func (m *memStore) InvalidateAccount()                   {}
func (m *memStore) InvalidateAll()                       {}
func (m *memStore) Close() error                         { return nil }

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyFine, false},
		{"fine", PolicyFine, false},
		{" Coarse ", PolicyCoarse, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	assert.Equal(t, PolicyFine.Toggle(), PolicyCoarse)
	assert.Equal(t, PolicyCoarse.Toggle(), PolicyFine)
}

func TestObserverReceivesChangesUntilRemoved(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := NewCollection(docs, sub, WithLogger(nullLogger()))

	var mu sync.Mutex
	var seen []State[domain.DocumentList]
	remove := c.Observe(ObserverFunc[domain.DocumentList](func(s State[domain.DocumentList]) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	c.Start(testDB, testColl, nil)
	c.Wait()

	mu.Lock()
	last := seen[len(seen)-1]
	mu.Unlock()
	assert.Equal(t, last.Loaded, true)

	remove()
	remove()

	mu.Lock()
	count := len(seen)
	mu.Unlock()

	c.Refresh()
	c.Wait()

	mu.Lock()
	assert.Equal(t, len(seen), count)
	mu.Unlock()
}

func TestStoreSeedsAndWritesThrough(t *testing.T) {
	store := newMemStore()
	cached := testList(1, testDoc("cached", "C"))
	_ = store.SaveDocumentList(testDB, testColl, nil, cached)

	gate := make(chan struct{})
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			<-gate
			return testList(1, testDoc("fresh", "F")), nil
		},
	}
	c := NewCollection(docs, &fakeSubscriber{}, WithLogger(nullLogger()), WithStore(store))
	c.Start(testDB, testColl, nil)

	state := c.State()
	assert.Equal(t, state.Cached, true)
	assert.Equal(t, state.Loaded, false)
	assert.Equal(t, ids(state.Value), []string{"cached"})

	close(gate)
	c.Wait()

	state = c.State()
	assert.Equal(t, state.Cached, false)
	assert.Equal(t, state.Loaded, true)

	saved, ok := store.GetDocumentList(testDB, testColl, nil)
	assert.Equal(t, ok, true)
	assert.Equal(t, ids(saved), []string{"fresh"})
}

func TestDocumentDeleteEvictsCache(t *testing.T) {
	store := newMemStore()
	docs := &fakeDocs{
		get: func(ctx context.Context, call int, id string) (*domain.Document, error) {
			if call > 1 {
				return nil, domain.ErrNotFound
			}
			d := testDoc(id, "T")
			return &d, nil
		},
	}
	sub := &fakeSubscriber{}
	d := NewDocument(docs, sub, WithLogger(nullLogger()), WithStore(store))
	d.Start(testDB, testColl, "x")
	d.Wait()

	_, ok := store.GetDocument(testDB, testColl, "x")
	assert.Equal(t, ok, true)

	sub.publish(domain.DocumentChannel(testDB, testColl, "x"), docEvent(domain.ActionDelete, testDoc("x", "T")))
	d.Wait()

	_, ok = store.GetDocument(testDB, testColl, "x")
	assert.Equal(t, ok, false)
}

func TestNeverTwoLiveSubscriptions(t *testing.T) {
	docs := &fakeDocs{}
	sub := &fakeSubscriber{}
	c := NewCollection(docs, sub, WithLogger(nullLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.SetQueries([]string{domain.Limit(i)})
			c.Start(testDB, testColl, []string{domain.Offset(i)})
		}(i)
	}
	wg.Wait()
	c.Wait()

	assert.Equal(t, len(sub.active()), 1)
	subscribes, releases := sub.counts()
	assert.Equal(t, subscribes-releases, 1)
	assert.Equal(t, len(c.Queries()), 1)
}

func TestSlowObserverEndsOnLatestState(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	sub := &fakeSubscriber{}
	c := newTestCollection(docs, sub, WithPolicy(PolicyFine))

	entered := make(chan struct{})
	gate := make(chan struct{})
	var (
		once sync.Once
		mu   sync.Mutex
		last string
	)
	c.Observe(ObserverFunc[domain.DocumentList](func(s State[domain.DocumentList]) {
		if !s.Loaded || len(s.Value.Documents) == 0 {
			return
		}
		once.Do(func() {
			close(entered)
			<-gate
		})
		mu.Lock()
		last = s.Value.Documents[0].Data["title"].(string)
		mu.Unlock()
	}))

	c.Start(testDB, testColl, nil)
	<-entered

	// The fetch goroutine is stuck delivering "A" while the patch lands
	sub.publish(domain.CollectionChannel(testDB, testColl), docEvent(domain.ActionUpdate, testDoc("a", "A2")))
	close(gate)
	c.Wait()

	assert.Equal(t, c.State().Value.Documents[0].Data["title"], "A2")
	mu.Lock()
	assert.Equal(t, last, "A2")
	mu.Unlock()
}

func TestObserverCanStopUnitOnLoad(t *testing.T) {
	docs := &fakeDocs{
		list: func(ctx context.Context, call int, queries []string) (domain.DocumentList, error) {
			return testList(1, testDoc("a", "A")), nil
		},
	}
	c := newTestCollection(docs, &fakeSubscriber{})

	var stopped sync.Once
	c.Observe(ObserverFunc[domain.DocumentList](func(s State[domain.DocumentList]) {
		if s.Loaded {
			stopped.Do(c.Stop)
		}
	}))

	c.Start(testDB, testColl, nil)
	c.Wait()
	assert.Equal(t, c.Active(), false)
	assert.Equal(t, c.State().Loaded, true)
}
