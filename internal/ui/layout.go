package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderMain renders header, tab bar, content, status line and footer.
func (m Model) renderMain() string {
	content := m.renderContent()
	content = lipgloss.NewStyle().Height(m.contentHeight()).MaxHeight(m.contentHeight()).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		content,
		m.renderStatusLine(),
		m.renderFooter(),
	)
}

func (m Model) renderContent() string {
	if m.mode == modeConfirmInstall {
		return m.renderConfirmInstall()
	}
	switch m.view {
	case ViewStatus:
		return m.renderStatus()
	case ViewRecords:
		return m.renderRecords()
	case ViewUsers:
		return m.renderUsers()
	case ViewLogs:
		return m.renderLogs()
	}
	return ""
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	sep := "  "

	parts := []string{styles.Logo.Render("FADEAPI")}
	if m.client != nil {
		who := m.client.Username()
		if m.me.IsAdmin() {
			who += " (admin)"
		}
		parts = append(parts, styles.Text.Render(who))
	}
	if m.sess != nil {
		st := m.sess.SyncStatus()
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("records %d", m.sess.Cache().Len())))
		switch {
		case st.IsFailing():
			parts = append(parts, styles.DangerText.Render("● sync failing"))
		case !st.LastSynced.IsZero():
			parts = append(parts, styles.SuccessText.Render("● synced "+st.LastSynced.Local().Format("15:04:05")))
		}
		if m.autoRefresh != nil {
			parts = append(parts, styles.InfoText.Render("auto"))
		}
	}
	if m.pending > 0 {
		parts = append(parts, styles.WarningText.Render(fmt.Sprintf("working (%d)", m.pending)))
	}
	if m.update.newer {
		parts = append(parts, styles.WarningText.Render("update "+m.update.release.Version()))
	}
	return fillLine(strings.Join(parts, sep), m.theme.Surface, m.width)
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if View(i) == m.view {
			tabs[i] = styles.ActiveTab.Render(label)
		} else {
			tabs[i] = styles.Tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	if m.flash.text == "" {
		return ""
	}
	var style lipgloss.Style
	switch m.flash.level {
	case flashSuccess:
		style = styles.SuccessText
	case flashWarning:
		style = styles.WarningText
	case flashError:
		style = styles.DangerText
	default:
		style = styles.InfoText
	}
	text := m.flash.at.Format("15:04:05") + " " + m.flash.text
	return style.Render(truncate(text, max(m.width, 1)))
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}
