package tui

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/livesync"
	"github.com/mmcdole/awsync/internal/search"
	"github.com/mmcdole/awsync/internal/tui/components"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateHelp
	StateConfirmLogout
)

// Tab selects which sync unit fills the main area
type Tab int

const (
	TabCollection Tab = iota
	TabDocument
	TabAccount
)

var tabNames = []string{"Collection", "Document", "Account"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "?"
}

// Layout proportions
const (
	ListColumnPercent = 45 // Collection list when the inspector is shown
	MinColumnWidth    = 20

	// Tab bar + footer
	ChromeHeight = 2

	statusDuration = 3 * time.Second
	signalBuffer   = 16
)

// Target names the resources mounted at startup
type Target struct {
	Database   string
	Collection string
	Queries    []string
	Filters    []string // Expressions Queries was parsed from, shown when editing
	Document   string   // Optional; empty leaves the document tab idle
}

// Options wires the model to its sync units
type Options struct {
	Collection    *livesync.Collection
	Document      *livesync.Document
	Account       *livesync.Account
	Search        *search.Service
	Target        Target
	Endpoint      string // Shown in the tab bar
	Theme         string // Chroma style for JSON
	ShowInspector bool
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool
	Tab   Tab

	// Sync units
	Collection *livesync.Collection
	Document   *livesync.Document
	Account    *livesync.Account
	SearchSvc  *search.Service

	target    Target
	endpoint  string
	events    chan tea.Msg
	unobserve []func()

	// UI Components
	DocList     *components.DocumentList
	Inspector   components.Inspector // Selected row on the collection tab
	DocView     components.Inspector // Document tab
	SearchModal components.SearchModal
	QueryModal  components.QueryModal
	SortModal   components.SortModal
	Spinner     spinner.Model

	// Last snapshots read from the units
	collState livesync.State[domain.DocumentList]
	docState  livesync.State[*domain.Document]
	acctState livesync.State[*domain.User]

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg     string
	StatusIsErr   bool
	ShowInspector bool
	LoggedOut     bool
}

// NewModel creates a new application model and registers it with the units
func NewModel(opts Options) Model {
	events := make(chan tea.Msg, signalBuffer)

	m := Model{
		State:         StateBrowsing,
		Tab:           TabCollection,
		Collection:    opts.Collection,
		Document:      opts.Document,
		Account:       opts.Account,
		SearchSvc:     opts.Search,
		target:        opts.Target,
		endpoint:      opts.Endpoint,
		events:        events,
		DocList:       components.NewDocumentList(collectionTitle(opts.Target)),
		Inspector:     components.NewInspector(opts.Theme),
		DocView:       components.NewInspector(opts.Theme),
		SearchModal:   components.NewSearchModal(),
		QueryModal:    components.NewQueryModal(),
		SortModal:     components.NewSortModal(),
		ShowInspector: opts.ShowInspector,
		Spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(styles.SpinnerStyle),
		),
	}
	if m.SearchSvc == nil {
		m.SearchSvc = search.NewService(nil)
	}
	m.Inspector.SetTitle("Selected")
	m.DocList.SetFocused(true)

	m.unobserve = []func(){
		m.Collection.Observe(NewChannelObserver[domain.DocumentList](events, TabCollection)),
		m.Document.Observe(NewChannelObserver[*domain.Document](events, TabDocument)),
		m.Account.Observe(NewChannelObserver[*domain.User](events, TabAccount)),
	}
	return m
}

func collectionTitle(t Target) string {
	if t.Collection == "" {
		return "Collection"
	}
	return t.Database + " / " + t.Collection
}

// Close detaches the model from the sync units
func (m Model) Close() {
	for _, fn := range m.unobserve {
		fn()
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		StartSyncCmd(m),
		ListenCmd(m.events),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		m.refreshBadges()
		return m, cmd

	case StateChangedMsg:
		m.pullStates()
		return m, ListenCmd(m.events)

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(statusDuration)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, ClearStatusCmd(statusDuration)

	case LogoutCompleteMsg:
		if msg.Error != nil {
			m.State = StateBrowsing
			m.StatusMsg = fmt.Sprintf("Logout failed: %v", msg.Error)
			m.StatusIsErr = true
			return m, ClearStatusCmd(statusDuration)
		}
		m.LoggedOut = true
		return m, tea.Quit
	}

	// Forward everything else (cursor blink) to the focused input
	var cmd tea.Cmd
	switch {
	case m.SearchModal.IsVisible():
		m.SearchModal, cmd, _ = m.SearchModal.Update(msg)
	case m.DocList.IsFilterTyping():
		m.DocList, cmd = m.DocList.Update(msg)
	}
	return m, cmd
}

// pullStates re-reads every unit and pushes the snapshots into the views
func (m *Model) pullStates() {
	m.collState = m.Collection.State()
	m.docState = m.Document.State()
	m.acctState = m.Account.State()

	m.DocList.SetDocuments(m.collState.Value)
	m.updateInspector()

	m.DocView.SetDocument(m.docState.Value)
	switch {
	case m.docState.Err != nil:
		m.DocView.SetMessage(components.ErrorText(m.docState.Err))
	case m.Document.DocumentID() == "":
		m.DocView.SetMessage("Press enter on a collection row to open a document.")
	default:
		m.DocView.SetMessage("")
	}
	if id := m.Document.DocumentID(); id != "" {
		m.DocView.SetTitle(id)
	}

	if m.SearchModal.IsVisible() {
		m.SearchModal.SetResults(m.SearchSvc.Rank(m.SearchModal.Query(), m.collState.Value.Documents))
	}

	m.refreshBadges()
}

// refreshBadges re-renders the sync badges so the spinner animates
func (m *Model) refreshBadges() {
	spin := m.Spinner.View()
	m.DocList.SetStatus(components.RenderSyncBadge(
		components.StatusOf(m.collState, m.Collection.Active()), m.Collection.Policy(), spin))
	m.DocView.SetStatus(components.RenderSyncBadge(
		components.StatusOf(m.docState, m.Document.Active()), m.Document.Policy(), spin))
}

// updateInspector shows the selected collection row
func (m *Model) updateInspector() {
	if m.collState.Err != nil && len(m.collState.Value.Documents) == 0 {
		m.Inspector.SetDocument(nil)
		m.Inspector.SetMessage(components.ErrorText(m.collState.Err))
		return
	}
	m.Inspector.SetMessage("")
	if doc, ok := m.DocList.Selected(); ok {
		m.Inspector.SetDocument(&doc)
		return
	}
	m.Inspector.SetDocument(nil)
}

// openDocument points the document unit at id and switches to its tab
func (m *Model) openDocument(id string) tea.Cmd {
	m.Document.Start(m.target.Database, m.target.Collection, id)
	m.setTab(TabDocument)
	return func() tea.Msg {
		return StatusMsg{Message: "Watching " + id}
	}
}

// filterExprs returns the expressions behind the active queries
func (m Model) filterExprs() []string {
	if m.target.Filters != nil {
		return m.target.Filters
	}
	return m.target.Queries
}

// sortAttributes lists the system timestamps and every attribute seen in
// the loaded page, in that order
func (m Model) sortAttributes() []string {
	attrs := []string{"$createdAt", "$updatedAt", "$id"}
	seen := make(map[string]bool)
	var keys []string
	for i := range m.collState.Value.Documents {
		for _, k := range m.collState.Value.Documents[i].AttributeKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return append(attrs, keys...)
}

// activeSort returns the order expression currently applied, if any
func (m Model) activeSort() components.SortSelection {
	for _, e := range m.filterExprs() {
		if sel, ok := components.ParseSortExpression(e); ok {
			return sel
		}
	}
	return components.SortSelection{}
}

// applySort replaces any order expression with sel and restarts the collection
func (m *Model) applySort(sel components.SortSelection) tea.Cmd {
	var exprs []string
	for _, e := range m.filterExprs() {
		if _, ok := components.ParseSortExpression(e); !ok {
			exprs = append(exprs, e)
		}
	}
	exprs = append(exprs, sel.Expression())
	queries, err := domain.ParseFilters(exprs)
	if err != nil {
		return func() tea.Msg { return ErrMsg{Err: err} }
	}
	return m.applyQueries(exprs, queries)
}

// applyQueries restarts the collection unit with a new filter set
func (m *Model) applyQueries(exprs, queries []string) tea.Cmd {
	m.target.Filters = exprs
	m.target.Queries = queries
	m.Collection.Start(m.target.Database, m.target.Collection, queries)
	return func() tea.Msg {
		if len(queries) == 0 {
			return StatusMsg{Message: "Queries cleared"}
		}
		return StatusMsg{Message: fmt.Sprintf("Applied %d queries", len(queries))}
	}
}

func (m *Model) setTab(t Tab) {
	m.Tab = t
	m.DocList.SetFocused(t == TabCollection)
	m.DocView.SetFocused(t == TabDocument)
}

// refreshCurrent re-fetches the unit behind the active tab
func (m *Model) refreshCurrent() tea.Cmd {
	tab := m.Tab
	switch tab {
	case TabCollection:
		m.Collection.Refresh()
	case TabDocument:
		m.Document.Refresh()
	case TabAccount:
		m.Account.Refresh()
	}
	return func() tea.Msg {
		return StatusMsg{Message: "Refreshing " + tab.String()}
	}
}

func (m *Model) refreshAll() tea.Cmd {
	m.Collection.Refresh()
	m.Document.Refresh()
	m.Account.Refresh()
	return func() tea.Msg {
		return StatusMsg{Message: "Refreshing all"}
	}
}

// togglePolicy flips fine/coarse on the collection and document units.
// The account unit is always coarse.
func (m *Model) togglePolicy() tea.Cmd {
	next := m.Collection.Policy().Toggle()
	m.Collection.SetPolicy(next)
	m.Document.SetPolicy(next)
	m.refreshBadges()
	return func() tea.Msg {
		return StatusMsg{Message: "Event policy: " + string(next)}
	}
}
