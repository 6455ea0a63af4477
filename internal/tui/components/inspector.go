package components

import (
	"encoding/json"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// Layout constants for inspector
const (
	// Title line plus the blank line under it
	InspectorHeaderLines = 2
)

// Inspector shows a document as highlighted JSON in a scrollable viewport
type Inspector struct {
	viewport viewport.Model
	theme    string
	title    string
	status   string
	message  string // Shown instead of the document, e.g. an error
	docID    string
	width    int
	height   int
	focused  bool
}

// NewInspector creates an inspector using the given chroma style name
func NewInspector(theme string) Inspector {
	return Inspector{
		viewport: viewport.New(0, 0),
		theme:    theme,
		title:    "Document",
	}
}

// SetDocument shows doc. The scroll position is kept when the same document
// is updated in place.
func (i *Inspector) SetDocument(doc *domain.Document) {
	if doc == nil {
		i.docID = ""
		i.viewport.SetContent("")
		i.viewport.GotoTop()
		return
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		i.message = err.Error()
		return
	}

	sameDoc := doc.ID == i.docID
	i.docID = doc.ID
	i.viewport.SetContent(HighlightJSON(string(body), i.theme))
	if !sameDoc {
		i.viewport.GotoTop()
	}
}

// SetMessage replaces the body with a dim message. Empty clears it.
func (i *Inspector) SetMessage(msg string) {
	i.message = msg
}

func (i *Inspector) SetTitle(title string) {
	i.title = title
}

// SetStatus sets the pre-rendered sync badge shown in the header
func (i *Inspector) SetStatus(status string) {
	i.status = status
}

func (i *Inspector) SetFocused(focused bool) {
	i.focused = focused
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
	i.viewport.Width = max(width-BorderWidth-1, 10)
	i.viewport.Height = max(height-BorderHeight-InspectorHeaderLines, 1)
}

// HasDocument returns true if a document is loaded
func (i Inspector) HasDocument() bool {
	return i.docID != ""
}

// Update scrolls the viewport
func (i Inspector) Update(msg tea.Msg) (Inspector, tea.Cmd) {
	var cmd tea.Cmd
	i.viewport, cmd = i.viewport.Update(msg)
	return i, cmd
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder
	if i.focused {
		style = styles.ActiveBorder
	}

	contentWidth := max(i.width-BorderWidth-1, 10)
	titleLine := styles.AccentStyle.Render(styles.Truncate(i.title, contentWidth/2))
	if i.status != "" {
		titleLine += "  " + i.status
	}

	var body string
	switch {
	case i.message != "":
		body = styles.DimStyle.Render(wordWrap(i.message, contentWidth))
	case i.docID == "":
		body = styles.DimStyle.Render("No document selected")
	default:
		body = i.viewport.View()
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(i.width - frameW).
		Height(i.height - frameH).
		Render(titleLine + "\n\n" + body)
}

// HighlightJSON colors src with the named chroma style. Unknown styles fall
// back to chroma's default; any failure returns src unchanged.
func HighlightJSON(src, theme string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		return src
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	style := chromastyles.Get(theme)

	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return src
	}
	return b.String()
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wordLen := len(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}
