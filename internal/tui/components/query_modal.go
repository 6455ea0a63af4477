package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// QuerySeparator splits filter expressions typed into the query modal
const QuerySeparator = ";"

// QueryModal edits the filter expressions of the mounted collection
type QueryModal struct {
	visible bool
	input   textinput.Model
	queries []string
	err     error
}

// NewQueryModal creates a hidden query modal
func NewQueryModal() QueryModal {
	ti := textinput.New()
	ti.Placeholder = "status=open; order:-$createdAt; limit:25"
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "» "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return QueryModal{input: ti}
}

// Show displays the modal prefilled with the current expressions
func (m *QueryModal) Show(exprs []string) tea.Cmd {
	m.visible = true
	m.err = nil
	m.queries = nil
	m.input.SetValue(strings.Join(exprs, QuerySeparator+" "))
	m.input.CursorEnd()
	return m.input.Focus()
}

// Hide dismisses the modal
func (m *QueryModal) Hide() {
	m.visible = false
	m.input.Blur()
}

// IsVisible returns whether the modal is shown
func (m QueryModal) IsVisible() bool {
	return m.visible
}

// Expressions returns the typed filter expressions, blanks dropped
func (m QueryModal) Expressions() []string {
	var exprs []string
	for _, e := range strings.Split(m.input.Value(), QuerySeparator) {
		if e = strings.TrimSpace(e); e != "" {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

// Queries returns the parsed queries after a successful submit
func (m QueryModal) Queries() []string {
	return m.queries
}

// Update handles input events, returns (modal, cmd, submitted).
// A submit that fails to parse keeps the modal open with the error shown.
func (m QueryModal) Update(msg tea.Msg) (QueryModal, tea.Cmd, bool) {
	if !m.visible {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			queries, err := domain.ParseFilters(m.Expressions())
			if err != nil {
				m.err = err
				return m, nil, false
			}
			m.queries = queries
			m.err = nil
			return m, nil, true
		case "esc":
			m.Hide()
			return m, nil, false
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = nil
	return m, cmd, false
}

// View renders the query modal
func (m QueryModal) View() string {
	if !m.visible {
		return ""
	}

	lines := []string{
		styles.ModalTitleStyle.Render("Collection queries"),
		m.input.View(),
		"",
	}
	if m.err != nil {
		lines = append(lines, styles.ErrorStyle.Render(m.err.Error()))
	} else {
		lines = append(lines, styles.DimStyle.Render("attr=v  attr!=v  attr~term  order:[-]attr  limit:N  after:ID"))
	}
	lines = append(lines, styles.DimStyle.Render("enter apply · esc cancel"))

	return styles.ModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
