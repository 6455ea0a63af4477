package store

import (
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmcdole/awsync/internal/domain"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(t.TempDir(), "https://cloud.appwrite.io/v1", "proj")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doc(id, title string) domain.Document {
	return domain.Document{
		ID:           id,
		CollectionID: "tasks",
		DatabaseID:   "main",
		Permissions:  []string{},
		Data:         map[string]any{"title": title},
	}
}

func TestDocumentListRoundTripPerQuerySet(t *testing.T) {
	s := openTestStore(t)
	open := []string{domain.Equal("status", "open")}
	closed := []string{domain.Equal("status", "closed")}

	err := s.SaveDocumentList("main", "tasks", open, domain.DocumentList{Total: 7, Documents: []domain.Document{doc("a", "A")}})
	assert.Equal(t, err, nil)

	got, ok := s.GetDocumentList("main", "tasks", open)
	assert.Equal(t, ok, true)
	assert.Equal(t, got.Total, 7)
	assert.Equal(t, got.Documents[0], doc("a", "A"))

	_, ok = s.GetDocumentList("main", "tasks", closed)
	assert.Equal(t, ok, false)
}

func TestReadsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSnapshotStore(dir, "https://example.test/v1", "proj")
	assert.Equal(t, err, nil)

	d := doc("a", "A")
	assert.Equal(t, s.SaveDocument(&d), nil)
	assert.Equal(t, s.SaveAccount(&domain.User{ID: "u1", Name: "Ada"}), nil)
	assert.Equal(t, s.Close(), nil)

	s, err = NewSnapshotStore(dir, "https://example.test/v1", "proj")
	assert.Equal(t, err, nil)
	t.Cleanup(func() { s.Close() })

	got, ok := s.GetDocument("main", "tasks", "a")
	assert.Equal(t, ok, true)
	assert.Equal(t, *got, d)

	user, ok := s.GetAccount()
	assert.Equal(t, ok, true)
	assert.Equal(t, user.Name, "Ada")

	// A different project gets its own cache
	other, err := NewSnapshotStore(dir, "https://example.test/v1", "other")
	assert.Equal(t, err, nil)
	t.Cleanup(func() { other.Close() })
	_, ok = other.GetDocument("main", "tasks", "a")
	assert.Equal(t, ok, false)
}

func TestInvalidateCollectionCascades(t *testing.T) {
	s := openTestStore(t)

	a, b := doc("a", "A"), doc("b", "B")
	s.SaveDocument(&a)
	s.SaveDocument(&b)
	s.SaveDocumentList("main", "tasks", nil, domain.DocumentList{Total: 2, Documents: []domain.Document{a, b}})

	other := doc("x", "X")
	other.CollectionID = "tasks-archive"
	s.SaveDocument(&other)

	s.InvalidateDocument("main", "tasks", "a")
	_, ok := s.GetDocument("main", "tasks", "a")
	assert.Equal(t, ok, false)
	_, ok = s.GetDocument("main", "tasks", "b")
	assert.Equal(t, ok, true)

	s.InvalidateCollection("main", "tasks")
	_, ok = s.GetDocument("main", "tasks", "b")
	assert.Equal(t, ok, false)
	_, ok = s.GetDocumentList("main", "tasks", nil)
	assert.Equal(t, ok, false)

	// "tasks" is a prefix of "tasks-archive" but the key separator keeps them apart
	_, ok = s.GetDocument("main", "tasks-archive", "x")
	assert.Equal(t, ok, true)
}

func TestInvalidateAll(t *testing.T) {
	s := openTestStore(t)
	d := doc("a", "A")
	s.SaveDocument(&d)
	s.SaveAccount(&domain.User{ID: "u1"})

	s.InvalidateAll()

	_, ok := s.GetDocument("main", "tasks", "a")
	assert.Equal(t, ok, false)
	_, ok = s.GetAccount()
	assert.Equal(t, ok, false)

	// Buckets are still usable
	assert.Equal(t, s.SaveDocument(&d), nil)
}

func TestMemoryOnlyStore(t *testing.T) {
	s, err := NewSnapshotStore("", "", "")
	assert.Equal(t, err, nil)

	d := doc("a", "A")
	assert.Equal(t, s.SaveDocument(&d), nil)
	_, ok := s.GetDocument("main", "tasks", "a")
	assert.Equal(t, ok, true)

	s.InvalidateAccount()
	assert.Equal(t, s.Close(), nil)
}

func TestSaveDocumentRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.NotEqual(t, s.SaveDocument(&domain.Document{}), nil)
}
