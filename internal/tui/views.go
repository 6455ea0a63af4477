package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/awsync/internal/domain"
	"github.com/mmcdole/awsync/internal/tui/components"
	"github.com/mmcdole/awsync/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	// Handle modal states
	if m.State == StateHelp {
		return m.renderHelp()
	}
	if m.State == StateConfirmLogout {
		return m.renderLogoutConfirmation()
	}
	if m.SearchModal.IsVisible() {
		return m.SearchModal.View()
	}
	if m.SortModal.IsVisible() {
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.SortModal.View())
	}
	if m.QueryModal.IsVisible() {
		return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, m.QueryModal.View())
	}

	var content string
	switch m.Tab {
	case TabCollection:
		content = m.DocList.View()
		if m.ShowInspector {
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.Inspector.View())
		}
	case TabDocument:
		content = m.DocView.View()
	case TabAccount:
		content = m.renderAccount(m.Width, m.Height-ChromeHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTabs(),
		content,
		m.renderFooter(),
	)
}

// renderTabs renders the tab bar with the endpoint on the right
func (m Model) renderTabs() string {
	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.Tab {
			tabs = append(tabs, styles.ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, styles.InactiveTabStyle.Render(label))
		}
	}
	left := strings.Join(tabs, " ")

	right := styles.DimStyle.Render(styles.Truncate(m.endpoint, max(m.Width-lipgloss.Width(left)-2, 0)))
	gap := max(m.Width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	}

	// Context-specific hints
	var hints []string
	hint := func(k, desc string) {
		hints = append(hints, styles.AccentStyle.Render(k)+styles.DimStyle.Render(" "+desc))
	}
	switch m.Tab {
	case TabCollection:
		hint("enter", "open")
		hint("/", "filter")
		hint("s", "search")
		hint("f", "queries")
		hint("o", "order")
	case TabDocument:
		hint("j/k", "scroll")
	}
	hint("r", "refresh")
	hint("p", string(m.Collection.Policy().Toggle()))
	center := strings.Join(hints, "  ")

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	leftWidth := lipgloss.Width(left)
	centerWidth := lipgloss.Width(center)
	rightWidth := lipgloss.Width(right)

	if leftWidth+centerWidth+rightWidth >= m.Width {
		gap := max(m.Width-leftWidth-rightWidth, 0)
		return left + strings.Repeat(" ", gap) + right
	}

	available := m.Width - leftWidth - rightWidth
	leftPad := (available - centerWidth) / 2
	rightPad := available - centerWidth - leftPad

	return left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
}

// renderAccount renders the account tab
func (m Model) renderAccount(width, height int) string {
	style := styles.ActiveBorder
	frameW, frameH := style.GetFrameSize()
	contentWidth := max(width-frameW-2, 10)

	status := components.StatusOf(m.acctState, m.Account.Active())
	badge := components.RenderSyncBadge(status, m.Account.Policy(), m.Spinner.View())

	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render("Account") + "  " + badge)
	b.WriteString("\n\n")

	if m.acctState.Err != nil {
		b.WriteString(styles.ErrorStyle.Render(components.ErrorText(m.acctState.Err)))
		b.WriteString("\n\n")
	}

	if u := m.acctState.Value; u != nil {
		b.WriteString(renderUser(u, contentWidth))
	} else if m.acctState.Err == nil {
		b.WriteString(styles.DimStyle.Render("Waiting for account..."))
	}

	return style.
		Width(width - frameW).
		Height(height - frameH).
		Render(b.String())
}

func renderUser(u *domain.User, width int) string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(styles.Truncate(u.DisplayName(), width)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("%-14s", label)))
		b.WriteString(styles.Truncate(value, max(width-14, 4)))
		b.WriteString("\n")
	}

	row("ID", u.ID)
	row("Email", u.Email+verified(u.Email, u.EmailVerification))
	row("Phone", u.Phone+verified(u.Phone, u.PhoneVerification))
	if u.Status {
		row("Status", styles.SuccessStyle.Render("active"))
	} else {
		row("Status", styles.ErrorStyle.Render("blocked"))
	}
	row("Labels", strings.Join(u.Labels, ", "))
	row("Registered", u.Registration)
	row("Last access", u.AccessedAt)
	row("Updated", u.UpdatedAt)

	if len(u.Prefs) > 0 {
		prefs, err := json.MarshalIndent(u.Prefs, "", "  ")
		if err == nil {
			b.WriteString("\n")
			b.WriteString(styles.DimStyle.Render("Preferences"))
			b.WriteString("\n")
			b.WriteString(string(prefs))
		}
	}

	return b.String()
}

func verified(value string, ok bool) string {
	if value == "" {
		return ""
	}
	if ok {
		return " " + styles.SuccessStyle.Render("✓")
	}
	return " " + styles.DimStyle.Render("(unverified)")
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	help := `
NAVIGATION                      SYNC
  j/k        Up/down               r      Refresh this tab
  g/G        First/last            R      Refresh all
  Ctrl+u/d   Half page             p      Toggle fine/coarse
  tab        Next tab              f      Edit queries
  1/2/3      Collection/Doc/Acct   o      Order by

SEARCH & VIEW                   OTHER
  /          Filter list           q      Quit
  s          Search documents      ?      This help
  enter      Open document         Esc    Close / Cancel
  i          Toggle inspector      L      Logout

Press any key to return...
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

// renderLogoutConfirmation renders the logout confirmation modal
func (m Model) renderLogoutConfirmation() string {
	modal := `
              Log Out?

  This will clear your credentials,
  endpoint, and all cached data.

        [Y] Yes      [N] No
`

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(modal))
}
