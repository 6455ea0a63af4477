package tui

// columnLayout holds calculated widths for the collection tab
type columnLayout struct {
	listWidth      int
	inspectorWidth int // 0 if not shown
}

// calculateColumnLayout splits the width between the list and the inspector
func (m Model) calculateColumnLayout(availableWidth int) columnLayout {
	if !m.ShowInspector {
		return columnLayout{listWidth: availableWidth}
	}
	list := max(availableWidth*ListColumnPercent/100, MinColumnWidth)
	return columnLayout{
		listWidth:      list,
		inspectorWidth: max(availableWidth-list, MinColumnWidth),
	}
}

// updateLayout updates component sizes based on window size
func (m *Model) updateLayout() {
	if m.Width == 0 || m.Height == 0 {
		return
	}

	contentHeight := m.Height - ChromeHeight
	layout := m.calculateColumnLayout(m.Width)

	m.DocList.SetSize(layout.listWidth, contentHeight)
	if layout.inspectorWidth > 0 {
		m.Inspector.SetSize(layout.inspectorWidth, contentHeight)
	}
	m.DocView.SetSize(m.Width, contentHeight)
	m.SearchModal.SetSize(m.Width, m.Height)
}
