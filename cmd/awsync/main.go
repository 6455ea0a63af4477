package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/adapter"
	"github.com/mmcdole/awsync/internal/adapter/appwrite"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/livesync"
	"github.com/mmcdole/awsync/internal/search"
	"github.com/mmcdole/awsync/internal/store"
	"github.com/mmcdole/awsync/internal/tui"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func main() {
	var (
		showVersion bool
		clearCache  bool
		database    string
		collection  string
		document    string
	)
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&clearCache, "clear-cache", false, "delete the snapshot cache and exit")
	flag.StringVar(&database, "database", "", "database ID (overrides watch.database)")
	flag.StringVar(&collection, "collection", "", "collection ID (overrides watch.collection)")
	flag.StringVar(&document, "document", "", "document ID to open on start")
	flag.Parse()

	if showVersion {
		fmt.Printf("awsync %s\n", Version)
		return
	}

	if clearCache {
		if err := adapter.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared.")
		return
	}

	if err := run(database, collection, document); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(database, collection, document string) error {
	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if database != "" {
		cfg.Watch.Database = database
	}
	if collection != "" {
		cfg.Watch.Collection = collection
	}
	if document != "" {
		cfg.Watch.Document = document
	}

	// Setup logger
	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting awsync", "version", Version)

	// Check if configured
	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, logger)
	}

	queries, err := domain.ParseFilters(cfg.Watch.Queries)
	if err != nil {
		return fmt.Errorf("invalid watch.queries: %w", err)
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

	opts := []livesync.Option{
		livesync.WithPolicy(cfg.Policy()),
		livesync.WithStore(snapshots),
		livesync.WithLogger(logger),
		livesync.WithFetchTimeout(cfg.Sync.FetchTimeout),
	}
	collectionUnit := livesync.NewCollection(client, realtime, opts...)
	documentUnit := livesync.NewDocument(client, realtime, opts...)
	accountUnit := livesync.NewAccount(client, realtime, opts...)
	defer func() {
		collectionUnit.Stop()
		documentUnit.Stop()
		accountUnit.Stop()
	}()

	model := tui.NewModel(tui.Options{
		Collection: collectionUnit,
		Document:   documentUnit,
		Account:    accountUnit,
		Search:     search.NewService(logger),
		Target: tui.Target{
			Database:   cfg.Watch.Database,
			Collection: cfg.Watch.Collection,
			Queries:    queries,
			Filters:    cfg.Watch.Queries,
			Document:   cfg.Watch.Document,
		},
		Endpoint:      cfg.Server.Endpoint + " · " + cfg.Server.Project,
		Theme:         cfg.UI.Theme,
		ShowInspector: cfg.UI.ShowInspector,
	})
	defer model.Close()

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	logger.Info("starting TUI", "database", cfg.Watch.Database, "collection", cfg.Watch.Collection)

	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	if m, ok := final.(tui.Model); ok && m.LoggedOut {
		fmt.Println("Logged out. Run awsync again to set up a new endpoint.")
	}

	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *adapter.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to awsync!")
	fmt.Println()

	// Loop until we reach an Appwrite endpoint
	for {
		endpoint, project, err := appwrite.PromptForEndpoint()
		if err != nil {
			return err
		}
		if endpoint == "" || project == "" {
			fmt.Println("Endpoint and project ID are required. Please try again.")
			continue
		}

		fmt.Println()
		version, err := detectWithSpinner(endpoint)
		if err != nil {
			fmt.Printf("\n✗ Could not reach Appwrite: %v\n", err)
			fmt.Println("Please check the endpoint and try again.")
			fmt.Println()
			continue
		}
		fmt.Printf("✓ Appwrite %s\n", version)

		cfg.Server.Endpoint = endpoint
		cfg.Server.Project = project
		break
	}

	ctx := context.Background()
	result, err := appwrite.NewAuthFlow(logger).Run(ctx, cfg.Server.Endpoint, cfg.Server.Project)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	cfg.Server.Session = result.Session
	cfg.Server.Email = result.Email

	if err := adapter.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	if cfg.Watch.Collection == "" {
		fmt.Println("Set watch.database and watch.collection in the config, or pass -database and -collection.")
	}
	fmt.Println()
	fmt.Println("Run awsync again to start the application.")

	return nil
}

// detectWithSpinner probes the endpoint with a visual spinner
func detectWithSpinner(endpoint string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	type result struct {
		version string
		err     error
	}
	resultCh := make(chan result, 1)

	go func() {
		version, err := appwrite.DetectVersion(ctx, endpoint)
		resultCh <- result{version, err}
	}()

	frame := 0
	fmt.Printf("\r%s Contacting endpoint...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			return res.version, res.err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Contacting endpoint...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return "", fmt.Errorf("detection timed out")
		}
	}
}
