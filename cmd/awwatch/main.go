// Command awwatch mounts one live-sync unit and prints every state change
// to stdout, one record per change.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mmcdole/awsync/internal/adapter"
	"github.com/mmcdole/awsync/internal/adapter/appwrite"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/livesync"
	"github.com/mmcdole/awsync/internal/search"
	"github.com/mmcdole/awsync/internal/store"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

type filterFlags []string

func (f *filterFlags) String() string { return strings.Join(*f, ", ") }

func (f *filterFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

type options struct {
	collection string
	document   string
	account    bool
	output     string
	once       bool
	grep       string
	policy     string
	filters    filterFlags
}

func main() {
	var (
		opts        options
		showVersion bool
	)
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&opts.collection, "collection", "", "database/collection to watch")
	flag.StringVar(&opts.document, "document", "", "document ID inside -collection to watch")
	flag.BoolVar(&opts.account, "account", false, "watch the signed-in account")
	flag.StringVar(&opts.output, "o", "json", "output format: json or yaml")
	flag.BoolVar(&opts.once, "once", false, "exit after the first loaded state")
	flag.StringVar(&opts.grep, "grep", "", "fuzzy filter applied to collection output")
	flag.StringVar(&opts.policy, "policy", "", "update policy: fine or coarse")
	flag.Var(&opts.filters, "filter", "filter expression, e.g. status=open (repeatable)")
	flag.Parse()

	if showVersion {
		fmt.Printf("awwatch %s\n", Version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsConfigured() {
		return errors.New("not configured; run awsync once to sign in")
	}

	// stdout carries records, so logs always go to stderr
	cfg.Logging.File = "-"
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	policy := cfg.Policy()
	if opts.policy != "" {
		if policy, err = livesync.ParsePolicy(opts.policy); err != nil {
			return err
		}
	}

	enc, err := newEncoder(os.Stdout, opts.output)
	if err != nil {
		return err
	}

	client, err := appwrite.NewClient(cfg.Server.Endpoint, cfg.Server.Project, appwrite.Credentials{
		APIKey:  cfg.Server.APIKey,
		Session: cfg.Server.Session,
		JWT:     cfg.Server.JWT,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create appwrite client: %w", err)
	}
	realtime := appwrite.NewRealtime(cfg.Server.Endpoint, cfg.Server.Project, cfg.Server.Session, nil, logger)
	defer realtime.Close()

	cacheDir := ""
	if cfg.Cache.Enabled {
		cacheDir = adapter.GetCachePath()
	}
	snapshots, err := store.NewSnapshotStore(cacheDir, cfg.Server.Endpoint, cfg.Server.Project)
	if err != nil {
		logger.Warn("snapshot cache unavailable, continuing without it", "error", err)
		snapshots, _ = store.NewSnapshotStore("", "", "")
	}
	defer snapshots.Close()

	unitOpts := []livesync.Option{
		livesync.WithPolicy(policy),
		livesync.WithStore(snapshots),
		livesync.WithLogger(logger),
		livesync.WithFetchTimeout(cfg.Sync.FetchTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &watcher{enc: enc, once: opts.once, done: stop}

	switch {
	case opts.account:
		unit := livesync.NewAccount(client, realtime, unitOpts...)
		defer unit.Observe(livesync.ObserverFunc[*domain.User](func(s livesync.State[*domain.User]) {
			w.emit("account", s.Loaded, s.Cached, s.Err, s.Value)
		}))()
		unit.Start()
		defer unit.Stop()

	case opts.collection != "":
		databaseID, collectionID, err := splitTarget(opts.collection)
		if err != nil {
			return err
		}

		if opts.document != "" {
			unit := livesync.NewDocument(client, realtime, unitOpts...)
			defer unit.Observe(livesync.ObserverFunc[*domain.Document](func(s livesync.State[*domain.Document]) {
				w.emit("document", s.Loaded, s.Cached, s.Err, s.Value)
			}))()
			unit.Start(databaseID, collectionID, opts.document)
			defer unit.Stop()
			break
		}

		queries, err := domain.ParseFilters(opts.filters)
		if err != nil {
			return err
		}
		searchSvc := search.NewService(logger)
		unit := livesync.NewCollection(client, realtime, unitOpts...)
		defer unit.Observe(livesync.ObserverFunc[domain.DocumentList](func(s livesync.State[domain.DocumentList]) {
			list := s.Value
			if opts.grep != "" {
				list = searchSvc.Filter(opts.grep, list)
			}
			w.emit("collection", s.Loaded, s.Cached, s.Err, list)
		}))()
		unit.Start(databaseID, collectionID, queries)
		defer unit.Stop()

	default:
		return errors.New("one of -collection or -account is required")
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return w.err()
}

// splitTarget parses "database/collection"
func splitTarget(s string) (string, string, error) {
	databaseID, collectionID, ok := strings.Cut(s, "/")
	if !ok || databaseID == "" || collectionID == "" {
		return "", "", fmt.Errorf("%w: want database/collection, got %q", domain.ErrInvalidTarget, s)
	}
	return databaseID, collectionID, nil
}

// record is one printed state change
type record struct {
	Unit   string `json:"unit" yaml:"unit"`
	Loaded bool   `json:"loaded" yaml:"loaded"`
	Cached bool   `json:"cached" yaml:"cached"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// watcher serializes output from the units' delivery goroutines
type watcher struct {
	mu       sync.Mutex
	enc      encoder
	once     bool
	done     func()
	writeErr error
}

func (w *watcher) emit(unit string, loaded, cached bool, err error, value any) {
	r := record{Unit: unit, Loaded: loaded, Cached: cached}
	if err != nil {
		r.Error = err.Error()
	}
	if loaded || cached {
		r.Value = value
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr != nil {
		return
	}
	if werr := w.enc.Encode(r); werr != nil {
		w.writeErr = werr
		w.done()
		return
	}
	if w.once && (loaded || err != nil) {
		w.done()
	}
}

func (w *watcher) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

type encoder interface {
	Encode(v any) error
}

func newEncoder(out io.Writer, format string) (encoder, error) {
	switch format {
	case "json":
		return json.NewEncoder(out), nil
	case "yaml":
		return &yamlEncoder{enc: yaml.NewEncoder(out)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// yamlEncoder routes values through their JSON form first so documents
// keep the flat Appwrite attribute layout.
type yamlEncoder struct {
	enc *yaml.Encoder
}

func (e *yamlEncoder) Encode(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	return e.enc.Encode(generic)
}
