package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

type statusState struct {
	info    fadeapi.Info
	err     error
	fetched time.Time
	loading bool
}

type statusMsg struct {
	client *fadeapi.Client
	info   fadeapi.Info
	err    error
}

func (m Model) statusCmd() tea.Cmd {
	client := m.client
	if client == nil {
		return nil
	}
	return runTask(m.pool, m.ctx, "server status", client.Status, func(info fadeapi.Info, err error) tea.Msg {
		return statusMsg{client: client, info: info, err: err}
	})
}

func (m Model) handleStatus(msg statusMsg) (tea.Model, tea.Cmd) {
	if msg.client != m.client {
		return m, nil
	}
	m.status.loading = false
	m.status.err = msg.err
	if msg.err == nil {
		m.status.info = msg.info
		m.status.fetched = time.Now()
	}
	return m, nil
}

func (m Model) handleStatusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if keyIs(msg, m.keys.Refresh) {
		m.status.loading = true
		return m, m.statusCmd()
	}
	return m, nil
}

// infoLines renders a status payload as sorted "key: value" lines.
func infoLines(info fadeapi.Info) []string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("%s: %v", k, info[k])
	}
	return lines
}

func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	var b strings.Builder

	section := func(title string) {
		b.WriteString(styles.AccentText.Bold(true).Render(title))
		b.WriteString("\n")
	}
	row := func(label, value string) {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %-18s", label)))
		b.WriteString(styles.Text.Render(value))
		b.WriteString("\n")
	}

	section("Server")
	if m.client != nil {
		row("base url", m.client.BaseURL())
	}
	switch {
	case m.status.err != nil:
		row("status", styles.DangerText.Render(describeError(m.status.err)))
	case m.status.fetched.IsZero():
		row("status", "loading...")
	default:
		for _, line := range infoLines(m.status.info) {
			b.WriteString(styles.Text.Render("  " + line))
			b.WriteString("\n")
		}
		row("fetched", formatWhen(m.status.fetched))
	}
	b.WriteString("\n")

	section("Session")
	row("user", m.me.Username)
	row("role", placeholderOr(m.me.Role))
	if m.client != nil {
		if exp, ok := m.client.SessionExpiry(); ok {
			row("token expires", formatWhen(exp))
		} else {
			row("token expires", "unknown")
		}
	}
	b.WriteString("\n")

	section("Sync")
	if m.sess != nil {
		st := m.sess.SyncStatus()
		row("cached records", fmt.Sprintf("%d", m.sess.Cache().Len()))
		row("last sync", formatWhen(st.LastSynced))
		row("last merge", summarizeMerge(st.LastMerge))
		row("cursor", placeholderOr(st.Cursor))
		if st.IsFailing() {
			row("last error", styles.DangerText.Render(describeError(st.LastError)))
			row("failures", fmt.Sprintf("%d in a row", st.ConsecutiveFailures))
		}
	}
	b.WriteString("\n")

	section("Client")
	row("version", m.version)
	row("theme", m.theme.Name)
	row("log file", truncateMiddle(placeholderOr(m.logFile), max(m.width-24, 20)))
	if m.update.checked {
		if m.update.newer {
			row("update", styles.WarningText.Render(m.update.release.Version()+" available (U to install)"))
		} else {
			row("update", "up to date")
		}
	}

	return b.String()
}

