package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/adapter"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/livesync"
)

type stubDocs struct {
	list domain.DocumentList
}

func (s *stubDocs) ListDocuments(ctx context.Context, db, coll string, queries []string) (domain.DocumentList, error) {
	return s.list.Clone(), nil
}

func (s *stubDocs) GetDocument(ctx context.Context, db, coll, id string) (*domain.Document, error) {
	if i := s.list.IndexOf(id); i >= 0 {
		return s.list.Documents[i].Clone(), nil
	}
	return nil, domain.ErrNotFound
}

type stubAccount struct{}

func (stubAccount) GetAccount(ctx context.Context) (*domain.User, error) {
	return &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Status: true}, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) Model {
	t.Helper()

	docs := &stubDocs{list: domain.DocumentList{
		Total: 2,
		Documents: []domain.Document{
			{ID: "a", DatabaseID: "main", CollectionID: "tasks", Data: map[string]any{"title": "Alpha"}},
			{ID: "b", DatabaseID: "main", CollectionID: "tasks", Data: map[string]any{"title": "Beta"}},
		},
	}}
	opts := []livesync.Option{livesync.WithLogger(adapter.NullLogger())}

	m := NewModel(Options{
		Collection:    livesync.NewCollection(docs, nil, opts...),
		Document:      livesync.NewDocument(docs, nil, opts...),
		Account:       livesync.NewAccount(stubAccount{}, nil, opts...),
		Target:        Target{Database: "main", Collection: "tasks"},
		Theme:         "monokai",
		ShowInspector: true,
	})
	t.Cleanup(func() {
		m.Close()
		m.Collection.Stop()
		m.Document.Stop()
		m.Account.Stop()
	})

	// Mount synchronously instead of through Init
	StartSyncCmd(m)()
	m.Collection.Wait()
	m.Document.Wait()
	m.Account.Wait()

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.Update(StateChangedMsg{Tab: TabCollection})
	return next.(Model)
}

func TestStateChangePullsSnapshots(t *testing.T) {
	m := newTestModel(t)

	if got := m.DocList.ItemCount(); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
	if m.acctState.Value == nil || m.acctState.Value.Name != "Ada" {
		t.Fatalf("expected account to be loaded, got %+v", m.acctState)
	}
	if !m.Inspector.HasDocument() {
		t.Error("expected inspector to show the selected row")
	}
	if m.DocView.HasDocument() {
		t.Error("expected document tab to be idle")
	}
}

func TestEnterOpensDocument(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if m.Tab != TabDocument {
		t.Fatalf("expected document tab, got %v", m.Tab)
	}
	if got := m.Document.DocumentID(); got != "b" {
		t.Fatalf("expected document unit on b, got %q", got)
	}

	m.Document.Wait()
	next, _ = m.Update(StateChangedMsg{Tab: TabDocument})
	m = next.(Model)
	if !m.DocView.HasDocument() {
		t.Error("expected document view to show b")
	}
}

func TestPolicyToggle(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(runes("p"))
	m = next.(Model)

	if got := m.Collection.Policy(); got != livesync.PolicyCoarse {
		t.Errorf("expected collection coarse, got %s", got)
	}
	if got := m.Document.Policy(); got != livesync.PolicyCoarse {
		t.Errorf("expected document coarse, got %s", got)
	}
	if got := m.Account.Policy(); got != livesync.PolicyCoarse {
		t.Errorf("expected account to stay coarse, got %s", got)
	}

	next, _ = m.Update(runes("p"))
	if got := next.(Model).Collection.Policy(); got != livesync.PolicyFine {
		t.Errorf("expected collection fine after second toggle, got %s", got)
	}
}

func TestTabCycling(t *testing.T) {
	m := newTestModel(t)

	want := []Tab{TabDocument, TabAccount, TabCollection}
	for _, tab := range want {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = next.(Model)
		if m.Tab != tab {
			t.Fatalf("expected %v, got %v", tab, m.Tab)
		}
	}

	next, _ := m.Update(runes("3"))
	if next.(Model).Tab != TabAccount {
		t.Fatalf("expected account tab after 3")
	}
}

func TestFilterTypingDoesNotTriggerShortcuts(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(runes("/"))
	next, _ = next.Update(runes("p"))
	m = next.(Model)

	if got := m.Collection.Policy(); got != livesync.PolicyFine {
		t.Errorf("expected p to go to the filter, policy changed to %s", got)
	}
	if !m.DocList.IsFilterTyping() {
		t.Error("expected filter input to stay focused")
	}
}

func TestChannelObserverNeverBlocks(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	obs := NewChannelObserver[int](ch, TabAccount)

	obs.StateChanged(livesync.State[int]{Value: 1})
	obs.StateChanged(livesync.State[int]{Value: 2})

	msg := <-ch
	if got := msg.(StateChangedMsg).Tab; got != TabAccount {
		t.Fatalf("expected account signal, got %v", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected the second signal to be dropped, got %v", extra)
	default:
	}
}

func TestQueryModalRestartsCollection(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(runes("f"))
	m = next.(Model)
	if !m.QueryModal.IsVisible() {
		t.Fatal("expected query modal to open")
	}

	next, _ = m.Update(runes("title=Beta"))
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if m.QueryModal.IsVisible() {
		t.Fatal("expected query modal to close on submit")
	}
	want := domain.Equal("title", "Beta")
	if got := m.Collection.Queries(); len(got) != 1 || got[0] != want {
		t.Fatalf("expected queries [%s], got %v", want, got)
	}
	if len(m.target.Filters) != 1 || m.target.Filters[0] != "title=Beta" {
		t.Errorf("expected filters to be remembered, got %v", m.target.Filters)
	}
}

func TestQueryModalRejectsBadExpression(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(runes("f"))
	next, _ = next.Update(runes("nonsense"))
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if !m.QueryModal.IsVisible() {
		t.Fatal("expected modal to stay open on a parse error")
	}
	if got := m.Collection.Queries(); len(got) != 0 {
		t.Errorf("expected queries untouched, got %v", got)
	}
}

func TestSortModalReplacesOrderExpression(t *testing.T) {
	m := newTestModel(t)
	m.target.Filters = []string{"status=open", "order:title"}

	next, _ := m.Update(runes("o"))
	m = next.(Model)
	if !m.SortModal.IsVisible() {
		t.Fatal("expected sort modal to open")
	}

	// cursor starts on the active attribute; enter flips its direction
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	want := []string{"status=open", "order:-title"}
	if len(m.target.Filters) != 2 || m.target.Filters[0] != want[0] || m.target.Filters[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, m.target.Filters)
	}
	if got := m.Collection.Queries(); len(got) != 2 || got[1] != domain.OrderDesc("title") {
		t.Fatalf("expected descending order query, got %v", got)
	}
}
