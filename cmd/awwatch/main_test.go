package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/mmcdole/awsync/internal/domain"
)

func TestSplitTarget(t *testing.T) {
	db, coll, err := splitTarget("main/tasks")
	assert.Equal(t, err, nil)
	assert.Equal(t, db, "main")
	assert.Equal(t, coll, "tasks")

	for _, bad := range []string{"main", "/tasks", "main/", ""} {
		_, _, err := splitTarget(bad)
		assert.Equal(t, errors.Is(err, domain.ErrInvalidTarget), true)
	}
}

func TestYAMLEncoderKeepsFlatDocumentShape(t *testing.T) {
	var buf bytes.Buffer
	enc, err := newEncoder(&buf, "yaml")
	assert.Equal(t, err, nil)

	doc := &domain.Document{ID: "a", DatabaseID: "main", CollectionID: "tasks", Data: map[string]any{"title": "hello"}}
	assert.Equal(t, enc.Encode(record{Unit: "document", Loaded: true, Value: doc}), nil)

	out := buf.String()
	assert.Equal(t, strings.Contains(out, "$id: a"), true)
	assert.Equal(t, strings.Contains(out, "title: hello"), true)
	assert.Equal(t, strings.Contains(out, "unit: document"), true)
}

func TestUnknownFormat(t *testing.T) {
	_, err := newEncoder(&bytes.Buffer{}, "toml")
	assert.NotEqual(t, err, nil)
}

func TestWatcherOnceStopsOnFirstLoad(t *testing.T) {
	var buf bytes.Buffer
	enc, _ := newEncoder(&buf, "json")
	stopped := 0
	w := &watcher{enc: enc, once: true, done: func() { stopped++ }}

	w.emit("collection", false, true, nil, domain.DocumentList{Total: 1})
	assert.Equal(t, stopped, 0)

	w.emit("collection", true, false, nil, domain.DocumentList{Total: 2})
	assert.Equal(t, stopped, 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 2)
	assert.Equal(t, strings.Contains(lines[0], `"cached":true`), true)
	assert.Equal(t, w.err(), nil)
}

func TestWatcherOmitsValueUntilLoaded(t *testing.T) {
	var buf bytes.Buffer
	enc, _ := newEncoder(&buf, "json")
	w := &watcher{enc: enc, done: func() {}}

	w.emit("account", false, false, errors.New("boom"), (*domain.User)(nil))
	out := buf.String()
	assert.Equal(t, strings.Contains(out, `"error":"boom"`), true)
	assert.Equal(t, strings.Contains(out, `"value"`), false)
}

