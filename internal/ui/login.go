package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/records"
	"github.com/fadea/fadeclient/internal/session"
)

var errNoStoredSession = errors.New("no stored session")

const (
	loginUsername = iota
	loginPassword
)

type loginState struct {
	form       form
	remember   bool
	onRemember bool // focus is on the remember toggle
	busy       bool
}

func newLoginState(username string, remember bool) loginState {
	f := newForm(
		formField{label: "Username", value: username, charLimit: 64},
		formField{label: "Password", secret: true},
	)
	if username == "" {
		f.Focus(loginUsername)
	} else {
		f.Focus(loginPassword)
	}
	return loginState{form: f, remember: remember}
}

func (l loginState) username() string {
	return l.form.Value(loginUsername)
}

type loginMsg struct {
	client  *fadeapi.Client
	sess    *session.Session
	user    fadeapi.User
	resumed bool
	err     error
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.login.busy {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		return m.submitLogin()
	case "tab", "down":
		cmd := m.moveLoginFocus(1)
		return m, cmd
	case "shift+tab", "up":
		cmd := m.moveLoginFocus(-1)
		return m, cmd
	case " ":
		if m.login.onRemember {
			m.login.remember = !m.login.remember
			return m, nil
		}
	}
	if m.login.onRemember {
		return m, nil
	}
	cmd := m.login.form.Update(msg)
	return m, cmd
}

// moveLoginFocus cycles username → password → remember.
func (m *Model) moveLoginFocus(delta int) tea.Cmd {
	slots := len(m.login.form.inputs) + 1
	cur := m.login.form.focus
	if m.login.onRemember {
		cur = slots - 1
	}
	next := ((cur+delta)%slots + slots) % slots
	if next == slots-1 {
		m.login.onRemember = true
		for i := range m.login.form.inputs {
			m.login.form.inputs[i].Blur()
		}
		return nil
	}
	m.login.onRemember = false
	return m.login.form.Focus(next)
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	username := m.login.username()
	password := m.login.form.RawValue(loginPassword)
	switch {
	case username == "":
		m.login.form.err = "username is required"
		return m, nil
	case password == "":
		m.login.form.err = "password is required"
		return m, nil
	}
	m.login.form.err = ""
	m.login.busy = true
	return m, m.loginCmd(username, password)
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	connect := m.connect
	log := m.log
	return runTask(m.pool, m.ctx, "login", func(ctx context.Context) (loginMsg, error) {
		client, sess, err := connect(username)
		if err != nil {
			return loginMsg{}, err
		}
		if err := client.Login(ctx, password); err != nil {
			return loginMsg{}, err
		}
		me, err := client.GetCurrentUser(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load profile after login")
			me = fadeapi.User{Username: username}
		}
		return loginMsg{client: client, sess: sess, user: me}, nil
	}, func(v loginMsg, err error) tea.Msg {
		v.err = err
		return v
	})
}

// resumeCmd reuses stored tokens. GetCurrentUser validates them and
// refreshes the pair when the access token has expired.
func (m Model) resumeCmd(username string) tea.Cmd {
	connect := m.connect
	return runTask(m.pool, m.ctx, "resume session", func(ctx context.Context) (loginMsg, error) {
		client, sess, err := connect(username)
		if err != nil {
			return loginMsg{}, err
		}
		if !client.HasSession() {
			return loginMsg{}, errNoStoredSession
		}
		me, err := client.GetCurrentUser(ctx)
		if err != nil {
			return loginMsg{}, err
		}
		return loginMsg{client: client, sess: sess, user: me, resumed: true}, nil
	}, func(v loginMsg, err error) tea.Msg {
		v.err = err
		v.resumed = true
		return v
	})
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.login.busy = false
	if msg.err != nil {
		switch {
		case msg.resumed && errors.Is(msg.err, errNoStoredSession):
			m.login.form.err = ""
		case msg.resumed:
			m.login.form.err = "stored session could not be resumed: " + describeError(msg.err)
		case fadeapi.StatusCode(msg.err) == 401:
			m.login.form.err = "invalid username or password"
		default:
			m.login.form.err = "login failed: " + describeError(msg.err)
		}
		m.log.Warn().Err(msg.err).Bool("resumed", msg.resumed).Msg("login failed")
		cmd := m.login.form.Focus(loginPassword)
		return m, cmd
	}

	m.client, m.sess, m.me = msg.client, msg.sess, msg.user
	m.screen = screenMain
	m.view = ViewRecords
	m.mode = modeNormal
	m.records = newRecordsState(m.pageLimit)
	m.users = newUsersState()
	m.status = statusState{}
	m.resize()
	m.records.applyStyles(m.theme)
	m.users.applyStyles(m.theme)

	if !msg.resumed {
		m.prefs.Remember = m.login.remember
		m.prefs.AutoLogin = m.login.remember
		m.prefs.LastUsername = m.client.Username()
		m.savePrefs()
	}
	m.login = newLoginState(m.client.Username(), m.prefs.Remember)

	if m.autoRefresh != nil {
		pollCtx, cancel := context.WithCancel(m.ctx)
		m.stopPoll = cancel
		m.autoRefresh(pollCtx, m.sess)
	}

	m.setFlash(flashSuccess, "Signed in as %s", m.client.Username())
	m.begin()
	return m, tea.Batch(m.syncCmd(false), m.statusCmd())
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if m.stopPoll != nil {
		m.stopPoll()
		m.stopPoll = nil
	}
	username := ""
	if m.client != nil {
		username = m.client.Username()
		if err := m.client.Logout(); err != nil {
			m.setError("logout", err)
		}
	}
	m.client, m.sess, m.me = nil, nil, fadeapi.User{}
	m.records = newRecordsState(m.pageLimit)
	m.users = newUsersState()
	m.status = statusState{}
	m.update = updateState{}
	m.mode = modeNormal
	m.pending = 0

	m.prefs.AutoLogin = false
	m.savePrefs()

	m.screen = screenLogin
	m.login = newLoginState(username, m.prefs.Remember)
	m.setFlash(flashInfo, "Signed out")
	cmd := m.login.form.Focus(loginPassword)
	return m, cmd
}

func (m Model) renderLogin() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Logo.Render("FADEAPI"))
	b.WriteString(styles.MutedText.Render("  sensor records client " + m.version))
	b.WriteString("\n\n")
	b.WriteString(m.login.form.View(styles, "Sign in"))
	b.WriteString("\n\n")

	box := "[ ]"
	if m.login.remember {
		box = "[x]"
	}
	toggle := box + " Remember me and sign in automatically"
	if m.login.onRemember {
		b.WriteString(styles.AccentText.Render("› " + toggle))
	} else {
		b.WriteString(styles.MutedText.Render("  " + toggle))
	}
	b.WriteString("\n\n")

	switch {
	case m.login.busy:
		b.WriteString(styles.WarningText.Render("Signing in..."))
	default:
		b.WriteString(styles.FaintText.Render("space toggles remember  esc quits"))
	}

	panel := styles.FocusPanel.Width(min(max(m.width-4, 40), 72)).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// summarizeMerge renders a merge result for the status line.
func summarizeMerge(res records.MergeResult) string {
	s := fmt.Sprintf("%d new", res.Added)
	if res.Duplicates > 0 {
		s += fmt.Sprintf(", %d duplicate", res.Duplicates)
	}
	if res.Invalid > 0 {
		s += fmt.Sprintf(", %d invalid", res.Invalid)
	}
	return s
}
