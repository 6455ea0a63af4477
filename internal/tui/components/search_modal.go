package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/awsync/internal/search"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

const searchModalMaxResults = 10

// SearchModal is the document search overlay
type SearchModal struct {
	input     textinput.Model
	results   []search.Result
	cursor    int
	visible   bool
	width     int
	height    int
	prevQuery string
}

// NewSearchModal creates a new search modal
func NewSearchModal() SearchModal {
	ti := textinput.New()
	ti.Placeholder = "Search documents..."
	ti.CharLimit = 100
	ti.Width = 40
	ti.Prompt = "? "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return SearchModal{input: ti}
}

// Show makes the modal visible and focuses the input
func (s *SearchModal) Show() tea.Cmd {
	s.visible = true
	s.input.SetValue("")
	s.results = nil
	s.cursor = 0
	s.prevQuery = ""
	return s.input.Focus()
}

// Hide hides the modal
func (s *SearchModal) Hide() {
	s.visible = false
	s.input.Blur()
}

// IsVisible returns true if the modal is visible
func (s SearchModal) IsVisible() bool {
	return s.visible
}

// SetResults sets the ranked results
func (s *SearchModal) SetResults(results []search.Result) {
	s.results = results
	s.cursor = 0
}

// SetSize updates the component dimensions
func (s *SearchModal) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.input.Width = max(width-10, 10)
}

// Query returns the current search query
func (s SearchModal) Query() string {
	return s.input.Value()
}

// QueryChanged returns true if the query changed since the last check
func (s *SearchModal) QueryChanged() bool {
	current := s.input.Value()
	if current != s.prevQuery {
		s.prevQuery = current
		return true
	}
	return false
}

// SelectedResult returns the highlighted result
func (s SearchModal) SelectedResult() (search.Result, bool) {
	if s.cursor >= len(s.results) {
		return search.Result{}, false
	}
	return s.results[s.cursor], true
}

// Update handles messages. selected is true when enter picks a result.
func (s SearchModal) Update(msg tea.Msg) (SearchModal, tea.Cmd, bool) {
	if !s.visible {
		return s, nil, false
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, SearchModalKeys.Escape):
			s.Hide()
			return s, nil, false
		case key.Matches(msg, SearchModalKeys.Enter):
			return s, nil, len(s.results) > 0
		case key.Matches(msg, SearchModalKeys.Down):
			if s.cursor < min(len(s.results), searchModalMaxResults)-1 {
				s.cursor++
			}
			return s, nil, false
		case key.Matches(msg, SearchModalKeys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
			return s, nil, false
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, false
}

// View renders the modal centered in the window
func (s SearchModal) View() string {
	if !s.visible {
		return ""
	}

	modalWidth := max(min(s.width*2/3, 80), 40)

	var b strings.Builder
	b.WriteString("Search")
	b.WriteString("\n\n")
	b.WriteString(s.input.View())
	b.WriteString("\n\n")
	s.renderResults(&b, modalWidth)

	content := lipgloss.NewStyle().
		Width(modalWidth - 4).
		Render(b.String())

	modal := styles.ModalStyle.
		Width(modalWidth).
		Render(content)

	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, modal)
}

func (s SearchModal) renderResults(b *strings.Builder, modalWidth int) {
	if len(s.results) == 0 {
		if s.input.Value() != "" {
			b.WriteString(styles.DimStyle.Render("No matches found"))
		}
		return
	}

	shown := min(len(s.results), searchModalMaxResults)
	for i := 0; i < shown; i++ {
		r := s.results[i]

		var line strings.Builder
		line.WriteString(styles.DimBadgeStyle.Render(styles.Truncate(r.Field, 12)))
		line.WriteString(" ")
		line.WriteString(styles.DimStyle.Render(styles.Truncate(r.Document.ID, 20)))
		line.WriteString(" ")

		text := r.Document.Summary()
		if text == "" {
			text = r.Value
		}
		text = styles.Truncate(text, modalWidth-40)

		style := styles.NormalItemStyle
		if i == s.cursor {
			style = styles.SelectedItemStyle
		}
		line.WriteString(style.Render(text))

		b.WriteString(line.String())
		b.WriteString("\n")
	}

	if len(s.results) > shown {
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("... and %d more", len(s.results)-shown)))
	}
}
