package ui

import (
	"context"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/updater"
)

type updateState struct {
	checked  bool
	checking bool
	newer    bool
	release  updater.Release
}

type updateCheckMsg struct {
	newer   bool
	release updater.Release
	err     error
}

type updateInstallMsg struct {
	path string
	err  error
}

type checkResult struct {
	newer   bool
	release updater.Release
}

func (m Model) startUpdateCheck() (tea.Model, tea.Cmd) {
	if m.updater == nil {
		m.setFlash(flashWarning, "Updates are not configured")
		return m, nil
	}
	if m.update.checking {
		return m, nil
	}
	m.update.checking = true
	m.setFlash(flashInfo, "Checking for updates...")
	up, current := m.updater, m.version
	return m, runTask(m.pool, m.ctx, "check update", func(ctx context.Context) (checkResult, error) {
		newer, rel, err := up.Check(ctx, current)
		return checkResult{newer: newer, release: rel}, err
	}, func(r checkResult, err error) tea.Msg {
		return updateCheckMsg{newer: r.newer, release: r.release, err: err}
	})
}

func (m Model) handleUpdateCheck(msg updateCheckMsg) (tea.Model, tea.Cmd) {
	m.update.checking = false
	if msg.err != nil {
		m.setError("update check", msg.err)
		return m, nil
	}
	m.update.checked = true
	m.update.newer = msg.newer
	m.update.release = msg.release
	if msg.newer {
		m.setFlash(flashWarning, "Version %s is available (current %s). Press U to install.", msg.release.Version(), m.version)
	} else {
		m.setFlash(flashSuccess, "Up to date (%s)", m.version)
	}
	return m, nil
}

func (m Model) askInstall() (tea.Model, tea.Cmd) {
	if !m.update.newer {
		m.setFlash(flashInfo, "No update pending. Press u to check.")
		return m, nil
	}
	m.mode = modeConfirmInstall
	return m, nil
}

func (m Model) handleConfirmInstallKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if s := msg.String(); s != "y" && s != "Y" {
		m.setFlash(flashInfo, "Update postponed")
		return m, nil
	}
	up, version := m.updater, m.update.release.Version()
	m.begin()
	m.setFlash(flashInfo, "Downloading %s...", version)
	return m, runTask(m.pool, m.ctx, "install update", func(ctx context.Context) (string, error) {
		path, err := up.Download(ctx, version)
		if err != nil {
			return "", err
		}
		return path, updater.Launch(path)
	}, func(path string, err error) tea.Msg {
		return updateInstallMsg{path: path, err: err}
	})
}

func (m Model) handleUpdateInstall(msg updateInstallMsg) (tea.Model, tea.Cmd) {
	m.end()
	if msg.err != nil {
		m.setError("install update", msg.err)
		return m, nil
	}
	if strings.EqualFold(filepath.Ext(msg.path), ".exe") {
		// The installer replaces this binary.
		return m.quit()
	}
	m.setFlash(flashSuccess, "Update downloaded to %s", msg.path)
	return m, nil
}

func (m Model) renderConfirmInstall() string {
	styles := m.theme.Styles()
	body := styles.WarningText.Render("Install version "+m.update.release.Version()+"?") + "\n\n" +
		styles.Text.Render("The installer is downloaded and started; the client closes when it runs.") + "\n" +
		styles.MutedText.Render("Press y to continue, any other key to cancel.")
	return styles.FocusPanel.Render(body)
}
