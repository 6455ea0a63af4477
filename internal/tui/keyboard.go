package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = StateBrowsing
		return m, nil

	case StateConfirmLogout:
		switch {
		case key.Matches(msg, Keys.Confirm):
			return m, LogoutCmd()
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Route to active modal or input if any
	if handled, newModel, cmd := m.routeToInput(msg); handled {
		return newModel, cmd
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.NextTab):
		m.setTab((m.Tab + 1) % Tab(len(tabNames)))
		return m, nil

	case key.Matches(msg, Keys.PrevTab):
		m.setTab((m.Tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
		return m, nil

	case key.Matches(msg, Keys.CollectionTab):
		m.setTab(TabCollection)
		return m, nil

	case key.Matches(msg, Keys.DocumentTab):
		m.setTab(TabDocument)
		return m, nil

	case key.Matches(msg, Keys.AccountTab):
		m.setTab(TabAccount)
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		return m, m.refreshCurrent()

	case key.Matches(msg, Keys.RefreshAll):
		return m, m.refreshAll()

	case key.Matches(msg, Keys.Policy):
		return m, m.togglePolicy()

	case key.Matches(msg, Keys.ToggleInspector):
		m.ShowInspector = !m.ShowInspector
		m.updateLayout()
		return m, nil

	case key.Matches(msg, Keys.Logout):
		m.State = StateConfirmLogout
		return m, nil
	}

	switch m.Tab {
	case TabCollection:
		return m.handleCollectionKey(msg)
	case TabDocument:
		var cmd tea.Cmd
		m.DocView, cmd = m.DocView.Update(msg)
		return m, cmd
	}
	return m, nil
}

// routeToInput gives an open modal or a typing filter first pick of the key
func (m Model) routeToInput(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	if m.SortModal.IsVisible() {
		_, sel := m.SortModal.HandleKey(msg.String())
		if sel != nil {
			return true, m, m.applySort(*sel)
		}
		return true, m, nil
	}

	if m.QueryModal.IsVisible() {
		var (
			cmd       tea.Cmd
			submitted bool
		)
		m.QueryModal, cmd, submitted = m.QueryModal.Update(msg)
		if submitted {
			m.QueryModal.Hide()
			return true, m, m.applyQueries(m.QueryModal.Expressions(), m.QueryModal.Queries())
		}
		return true, m, cmd
	}

	if m.SearchModal.IsVisible() {
		var (
			cmd      tea.Cmd
			selected bool
		)
		m.SearchModal, cmd, selected = m.SearchModal.Update(msg)
		if selected {
			result, _ := m.SearchModal.SelectedResult()
			m.SearchModal.Hide()
			m.DocList.Select(result.Document.ID)
			m.updateInspector()
			return true, m, m.openDocument(result.Document.ID)
		}
		if m.SearchModal.QueryChanged() {
			m.SearchModal.SetResults(m.SearchSvc.Rank(m.SearchModal.Query(), m.collState.Value.Documents))
		}
		return true, m, cmd
	}

	if m.Tab == TabCollection && m.DocList.IsFilterTyping() {
		var cmd tea.Cmd
		m.DocList, cmd = m.DocList.Update(msg)
		m.updateInspector()
		return true, m, cmd
	}

	return false, m, nil
}

func (m Model) handleCollectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Filter):
		cmd := m.DocList.ToggleFilter()
		m.updateLayout()
		return m, cmd

	case key.Matches(msg, Keys.Search):
		m.SearchModal.SetSize(m.Width, m.Height)
		return m, m.SearchModal.Show()

	case key.Matches(msg, Keys.Queries):
		return m, m.QueryModal.Show(m.filterExprs())

	case key.Matches(msg, Keys.Sort):
		m.SortModal.Show(m.sortAttributes(), m.activeSort())
		return m, nil

	case key.Matches(msg, Keys.Enter):
		if doc, ok := m.DocList.Selected(); ok {
			return m, m.openDocument(doc.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.DocList, cmd = m.DocList.Update(msg)
	m.updateInspector()
	return m, cmd
}
