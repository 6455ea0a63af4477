package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

const sortModalWidth = 24

// SortDirection represents sort direction
type SortDirection int

const (
	SortAsc SortDirection = iota
	SortDesc
)

// DefaultDirection returns the default sort direction for an attribute
func DefaultDirection(attribute string) SortDirection {
	if attribute == "$createdAt" || attribute == "$updatedAt" {
		return SortDesc // newest first
	}
	return SortAsc
}

// SortSelection represents the user's sort choice
type SortSelection struct {
	Attribute string
	Direction SortDirection
}

// Expression returns the order filter expression for the selection
func (s SortSelection) Expression() string {
	if s.Direction == SortDesc {
		return "order:-" + s.Attribute
	}
	return "order:" + s.Attribute
}

// ParseSortExpression reads an "order:[-]attr" expression back into a selection
func ParseSortExpression(expr string) (SortSelection, bool) {
	arg, ok := strings.CutPrefix(strings.TrimSpace(expr), "order:")
	if !ok || arg == "" {
		return SortSelection{}, false
	}
	if attr, desc := strings.CutPrefix(arg, "-"); desc {
		return SortSelection{Attribute: attr, Direction: SortDesc}, true
	}
	return SortSelection{Attribute: arg, Direction: SortAsc}, true
}

// SortModal is a small popup for choosing the server-side order
type SortModal struct {
	visible bool
	options []string
	cursor  int
	active  SortSelection
}

// NewSortModal creates a new sort modal
func NewSortModal() SortModal {
	return SortModal{}
}

// Show displays the modal with the given attributes and current order
func (m *SortModal) Show(attributes []string, active SortSelection) {
	m.visible = true
	m.options = attributes
	m.active = active
	// Position cursor on the active attribute
	m.cursor = 0
	for i, opt := range attributes {
		if opt == active.Attribute {
			m.cursor = i
			break
		}
	}
}

// Hide dismisses the modal
func (m *SortModal) Hide() {
	m.visible = false
}

// IsVisible returns whether the modal is shown
func (m SortModal) IsVisible() bool {
	return m.visible
}

// HandleKey processes a key press, returns (handled, selection).
// If selection is non-nil, the user confirmed a choice.
func (m *SortModal) HandleKey(key string) (handled bool, selection *SortSelection) {
	if !m.visible {
		return false, nil
	}

	switch key {
	case "j", "down":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
		return true, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return true, nil
	case "enter":
		if len(m.options) == 0 {
			m.visible = false
			return true, nil
		}
		chosen := m.options[m.cursor]
		dir := DefaultDirection(chosen)
		if chosen == m.active.Attribute {
			// Toggle direction
			if m.active.Direction == SortAsc {
				dir = SortDesc
			} else {
				dir = SortAsc
			}
		}
		m.visible = false
		return true, &SortSelection{Attribute: chosen, Direction: dir}
	case "esc", "o":
		m.visible = false
		return true, nil
	}

	return true, nil // consume all keys when visible
}

// View renders the sort modal
func (m SortModal) View() string {
	if !m.visible {
		return ""
	}

	line := lipgloss.NewStyle().Width(sortModalWidth)

	var lines []string
	for i, opt := range m.options {
		isActive := opt == m.active.Attribute

		prefix := "  "
		suffix := ""
		if isActive {
			prefix = "✓ "
			suffix = " ↓"
			if m.active.Direction == SortAsc {
				suffix = " ↑"
			}
		}
		text := styles.Truncate(prefix+opt+suffix, sortModalWidth)

		switch {
		case i == m.cursor:
			lines = append(lines, line.Foreground(styles.White).Background(styles.SlateLight).Render(text))
		case isActive:
			lines = append(lines, line.Foreground(styles.Pink).Render(text))
		default:
			lines = append(lines, line.Foreground(styles.LightGray).Render(text))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, styles.DimStyle.Render("No attributes loaded"))
	}

	return styles.ModalStyle.Padding(0, 1).
		Render(styles.ModalTitleStyle.Render("Order by") + "\n" + strings.Join(lines, "\n"))
}
