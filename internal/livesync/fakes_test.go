package livesync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/awsync/internal/domain"
)

const (
	testDB   = "main"
	testColl = "tasks"
)

type fakeDocs struct {
	mu        sync.Mutex
	listCalls [][]string
	getCalls  []string

	list func(ctx context.Context, call int, queries []string) (domain.DocumentList, error)
	get  func(ctx context.Context, call int, id string) (*domain.Document, error)
}

func (f *fakeDocs) ListDocuments(ctx context.Context, db, coll string, queries []string) (domain.DocumentList, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, queries)
	call := len(f.listCalls)
	fn := f.list
	f.mu.Unlock()
	if fn == nil {
		return domain.DocumentList{}, nil
	}
	return fn(ctx, call, queries)
}

func (f *fakeDocs) GetDocument(ctx context.Context, db, coll, id string) (*domain.Document, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, id)
	call := len(f.getCalls)
	fn := f.get
	f.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrNotFound
	}
	return fn(ctx, call, id)
}

func (f *fakeDocs) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeDocs) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.getCalls)
}

type fakeAccount struct {
	mu    sync.Mutex
	calls int
	user  *domain.User
	err   error
}

func (f *fakeAccount) GetAccount(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAccount) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSub struct {
	channel  string
	fn       func(domain.Event)
	released bool
}

// fakeSubscriber records subscriptions. Released handlers are kept so tests
// can simulate events that race with teardown.
type fakeSubscriber struct {
	mu         sync.Mutex
	subs       []*fakeSub
	subscribes int
	releases   int
}

func (f *fakeSubscriber) Subscribe(channel string, fn func(domain.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSub{channel: channel, fn: fn}
	f.subs = append(f.subs, s)
	f.subscribes++
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.releases++
		s.released = true
	}
}

// active returns the channels of unreleased subscriptions
func (f *fakeSubscriber) active() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var channels []string
	for _, s := range f.subs {
		if !s.released {
			channels = append(channels, s.channel)
		}
	}
	return channels
}

func (f *fakeSubscriber) counts() (subscribes, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes, f.releases
}

// publish delivers ev to live subscriptions on channel
func (f *fakeSubscriber) publish(channel string, ev domain.Event) {
	f.deliver(channel, ev, false)
}

// publishLate also delivers to released subscriptions
func (f *fakeSubscriber) publishLate(channel string, ev domain.Event) {
	f.deliver(channel, ev, true)
}

func (f *fakeSubscriber) deliver(channel string, ev domain.Event, includeReleased bool) {
	f.mu.Lock()
	var fns []func(domain.Event)
	for _, s := range f.subs {
		if s.channel == channel && (includeReleased || !s.released) {
			fns = append(fns, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func testDoc(id, title string) domain.Document {
	return domain.Document{
		ID:           id,
		CollectionID: testColl,
		DatabaseID:   testDB,
		Permissions:  []string{},
		Data:         map[string]any{"title": title},
	}
}

func testList(total int, docs ...domain.Document) domain.DocumentList {
	return domain.DocumentList{Total: total, Documents: docs}
}

func docEvent(action string, doc domain.Document) domain.Event {
	payload, _ := json.Marshal(doc)
	prefix := "databases." + testDB + ".collections." + testColl + ".documents"
	return domain.Event{
		Events: []string{
			prefix + "." + doc.ID + "." + action,
			"databases.*.collections.*.documents.*." + action,
		},
		Channels: []string{prefix, prefix + "." + doc.ID},
		Payload:  payload,
	}
}

func ids(list domain.DocumentList) []string {
	out := make([]string, 0, len(list.Documents))
	for _, d := range list.Documents {
		out = append(out, d.ID)
	}
	return out
}

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitBriefly() {
	time.Sleep(time.Millisecond)
}
