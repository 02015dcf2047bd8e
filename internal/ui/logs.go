package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/logtail"
)

const logTailLines = 500

type logsState struct {
	viewport viewport.Model
	lines    []string
	follow   bool
	err      error
}

func newLogsState() logsState {
	return logsState{viewport: viewport.New(80, 20), follow: true}
}

func (l *logsState) resize(width, height int) {
	l.viewport.Width = max(width, 10)
	l.viewport.Height = max(height, 3)
}

type logsMsg struct {
	lines []string
	err   error
}

func (m Model) logsCmd() tea.Cmd {
	path := m.logFile
	if path == "" {
		return nil
	}
	return runTask(m.pool, m.ctx, "read log", func(context.Context) ([]string, error) {
		lines, err := logtail.Read(path, logTailLines)
		if err != nil {
			return nil, err
		}
		return logtail.FormatLines(lines), nil
	}, func(lines []string, err error) tea.Msg {
		return logsMsg{lines: lines, err: err}
	})
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logs.err = msg.err
	if msg.err != nil {
		return
	}
	m.logs.lines = msg.lines
	m.logs.viewport.SetContent(strings.Join(msg.lines, "\n"))
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case keyIs(msg, m.keys.Refresh):
		return m, m.logsCmd()
	case msg.String() == " ":
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
		}
		return m, nil
	case keyIs(msg, m.keys.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
		return m, nil
	case keyIs(msg, m.keys.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	if !m.logs.viewport.AtBottom() {
		m.logs.follow = false
	}
	return m, cmd
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	switch {
	case m.logFile == "":
		return styles.MutedText.Render("Logging to a file is disabled (set log_file in config.toml).")
	case m.logs.err != nil:
		return styles.DangerText.Render("Could not read log: " + m.logs.err.Error())
	case len(m.logs.lines) == 0:
		return styles.MutedText.Render("No log lines yet in " + m.logFile)
	}
	return m.logs.viewport.View()
}
