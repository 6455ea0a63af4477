package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// Layout constants for bordered panels
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2
)

// DocumentList is a scrollable, filterable list of documents
type DocumentList struct {
	docs  []domain.Document
	total int // Server-side match count

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width   int
	height  int
	focused bool

	title  string
	status string // Rendered sync badge shown next to the title

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into docs
}

// NewDocumentList creates an empty list with the given title
func NewDocumentList(title string) *DocumentList {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &DocumentList{
		title:       title,
		filterInput: ti,
	}
}

// SetDocuments replaces the listing. The selected document stays selected
// when it is still present.
func (l *DocumentList) SetDocuments(list domain.DocumentList) {
	var selectedID string
	if doc, ok := l.Selected(); ok {
		selectedID = doc.ID
	}

	l.docs = list.Documents
	l.total = list.Total
	if l.filterQuery != "" {
		l.runFilter()
	}

	if selectedID != "" {
		for i := 0; i < l.ItemCount(); i++ {
			if l.docs[l.mapIndex(i)].ID == selectedID {
				l.cursor = i
				l.ensureVisible()
				return
			}
		}
	}
	l.SetSelectedIndex(l.cursor)
}

func (l *DocumentList) Update(msg tea.Msg) (*DocumentList, tea.Cmd) {
	if !l.focused {
		return l, nil
	}

	// Typing into the filter
	if l.filterActive && l.filterInput.Focused() {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(msg, DocumentListKeys.Escape):
				l.clearFilter()
				return l, nil
			case key.Matches(msg, DocumentListKeys.Enter):
				l.filterInput.Blur()
				return l, nil
			case msg.String() == "backspace" && l.filterInput.Value() == "":
				l.clearFilter()
				return l, nil
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return l, cmd
	}

	// Filter accepted; navigation over the matches
	if l.filterActive {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(msg, DocumentListKeys.Escape):
				l.clearFilter()
				return l, nil
			case key.Matches(msg, DocumentListKeys.Filter):
				return l, l.filterInput.Focus()
			}
		}
	}

	count := l.ItemCount()
	if count == 0 {
		return l, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch {
	case key.Matches(keyMsg, DocumentListKeys.Down):
		if l.cursor < count-1 {
			l.cursor++
			l.ensureVisible()
		}
	case key.Matches(keyMsg, DocumentListKeys.Up):
		if l.cursor > 0 {
			l.cursor--
			l.ensureVisible()
		}
	case key.Matches(keyMsg, DocumentListKeys.Home):
		l.cursor = 0
		l.offset = 0
	case key.Matches(keyMsg, DocumentListKeys.End):
		l.cursor = count - 1
		l.ensureVisible()
	case key.Matches(keyMsg, DocumentListKeys.HalfDown):
		l.SetSelectedIndex(l.cursor + l.maxVisible/2)
	case key.Matches(keyMsg, DocumentListKeys.HalfUp):
		l.SetSelectedIndex(l.cursor - l.maxVisible/2)
	case key.Matches(keyMsg, DocumentListKeys.PageDown):
		l.SetSelectedIndex(l.cursor + l.maxVisible)
	case key.Matches(keyMsg, DocumentListKeys.PageUp):
		l.SetSelectedIndex(l.cursor - l.maxVisible)
	}
	return l, nil
}

func (l *DocumentList) View() string {
	style := styles.InactiveBorder
	if l.focused {
		style = styles.ActiveBorder
	}

	content := l.renderContent()

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(l.width - frameW).
		Height(l.height - frameH).
		Render(content)
}

func (l *DocumentList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

func (l *DocumentList) SetFocused(focused bool) {
	l.focused = focused
}

func (l *DocumentList) SetTitle(title string) {
	l.title = title
}

// SetStatus sets the pre-rendered sync badge shown in the header
func (l *DocumentList) SetStatus(status string) {
	l.status = status
}

// Selected returns the document under the cursor
func (l *DocumentList) Selected() (domain.Document, bool) {
	count := l.ItemCount()
	if count == 0 || l.cursor >= count {
		return domain.Document{}, false
	}
	return l.docs[l.mapIndex(l.cursor)], true
}

// Select moves the cursor to the document with the given ID. A filter that
// hides it is cleared first.
func (l *DocumentList) Select(id string) bool {
	idx := -1
	for i := range l.docs {
		if l.docs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if l.filteredIdx != nil {
		l.clearFilter()
	}
	l.SetSelectedIndex(idx)
	return true
}

func (l *DocumentList) SelectedIndex() int {
	return l.cursor
}

func (l *DocumentList) SetSelectedIndex(idx int) {
	last := l.ItemCount() - 1
	if last < 0 {
		l.cursor = 0
		l.offset = 0
		return
	}
	l.cursor = max(0, min(idx, last))
	l.ensureVisible()
}

// ItemCount returns the number of visible (filtered) rows
func (l *DocumentList) ItemCount() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.docs)
}

// ToggleFilter activates the filter input
func (l *DocumentList) ToggleFilter() tea.Cmd {
	l.filterActive = true
	l.recalcMaxVisible()
	return l.filterInput.Focus()
}

// IsFiltering returns true if filter mode is active
func (l *DocumentList) IsFiltering() bool {
	return l.filterActive
}

// IsFilterTyping returns true if filter is active and the input is focused
func (l *DocumentList) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all documents
func (l *DocumentList) ClearFilter() {
	l.clearFilter()
}

// Internal methods

func (l *DocumentList) recalcMaxVisible() {
	// Interior minus title line and scroll indicators
	l.maxVisible = l.height - BorderHeight - ScrollIndicatorLines - 1
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *DocumentList) ensureVisible() {
	if l.maxVisible <= 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
}

func (l *DocumentList) clearFilter() {
	l.filterActive = false
	l.filterQuery = ""
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()
	l.recalcMaxVisible()
}

func (l *DocumentList) applyFilter() {
	query := l.filterInput.Value()
	if query == l.filterQuery {
		return
	}
	l.filterQuery = query
	l.runFilter()

	l.cursor = 0
	l.offset = 0
}

func (l *DocumentList) runFilter() {
	if l.filterQuery == "" {
		l.filteredIdx = nil
		return
	}
	matches := fuzzy.FindFrom(strings.ToLower(l.filterQuery), rowSource(l.docs))
	l.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		l.filteredIdx[i] = match.Index
	}
}

func (l *DocumentList) mapIndex(i int) int {
	if l.filteredIdx != nil && i < len(l.filteredIdx) {
		return l.filteredIdx[i]
	}
	return i
}

// rowSource implements fuzzy.Source over the lowercase row text
type rowSource []domain.Document

func (r rowSource) String(i int) string {
	return strings.ToLower(r[i].ID + " " + r[i].Summary())
}

func (r rowSource) Len() int { return len(r) }

// Rendering

func (l *DocumentList) renderContent() string {
	itemWidth := max(l.width-BorderWidth, 10)

	header := l.title
	if l.total > 0 {
		header = fmt.Sprintf("%s (%d)", l.title, l.total)
	}
	titleLine := styles.AccentStyle.Render(styles.Truncate(header, itemWidth))
	if l.status != "" {
		titleLine += "  " + l.status
	}

	count := l.ItemCount()
	if count == 0 {
		emptyMsg := styles.DimStyle.Render("No documents")
		if l.filterActive && l.filterQuery != "" {
			emptyMsg = styles.DimStyle.Render("No matches")
		}
		content := titleLine + "\n" + " " + "\n" + emptyMsg + "\n" + " "
		if l.filterActive {
			content += "\n" + l.renderFilterBar()
		}
		return content
	}

	end := min(l.offset+l.maxVisible, count)

	lines := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderRow(l.docs[l.mapIndex(i)], i == l.cursor, itemWidth))
	}

	// Always reserve the indicator lines so the layout doesn't shift
	up := " "
	if l.offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < count {
		down = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + up + "\n" + strings.Join(lines, "\n") + "\n" + down
	if l.filterActive {
		content += "\n" + l.renderFilterBar()
	}
	return content
}

func (l *DocumentList) renderRow(doc domain.Document, selected bool, width int) string {
	idWidth := min(lipgloss.Width(doc.ID), max(width/3, 8))
	id := styles.Truncate(doc.ID, idWidth)

	summaryWidth := width - idWidth - 4
	summary := styles.Truncate(doc.Summary(), summaryWidth)

	dim := styles.DimGray
	parts := []styles.RowPart{
		{Text: id, Foreground: &dim},
		{Text: "  "},
		{Text: summary},
	}
	return styles.RenderListRow(parts, selected, width)
}

func (l *DocumentList) renderFilterBar() string {
	input := l.filterInput.View()
	if l.filterQuery == "" {
		return input
	}
	return input + styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.docs)))
}
