package chat

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.viewport.View() + "\n" + m.input.View() + "\n" + m.footerView()
}
