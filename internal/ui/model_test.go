package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/credstore"
	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/prefs"
	"github.com/fadea/fadeclient/internal/records"
	"github.com/fadea/fadeclient/internal/session"
	"github.com/fadea/fadeclient/internal/task"
)

func newTestModel(t *testing.T, baseURL string) Model {
	t.Helper()
	store := credstore.NewMemory()
	connect := func(username string) (*fadeapi.Client, *session.Session, error) {
		client, err := fadeapi.NewClient(fadeapi.Options{BaseURL: baseURL, Username: username, Store: store})
		if err != nil {
			return nil, nil, err
		}
		return client, session.New(client, &records.Cache{}, zerolog.Nop()), nil
	}
	m := New(Options{
		Context:   context.Background(),
		Connect:   connect,
		Pool:      task.NewPool(2, zerolog.Nop()),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		Prefs:     prefs.Prefs{Theme: "Slate"},
		Version:   "1.0.0",
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func loggedIn(t *testing.T, m Model) Model {
	t.Helper()
	client, sess, err := m.connect("ana")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	updated, _ := m.Update(loginMsg{client: client, sess: sess, user: fadeapi.User{Username: "ana", Role: "user"}})
	m = updated.(Model)
	m.pending = 0
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNew_UsesPrefs(t *testing.T) {
	m := newTestModel(t, "http://example.test/")
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	if m.screen != screenLogin || m.login.busy {
		t.Fatalf("screen = %v busy = %v, want idle login", m.screen, m.login.busy)
	}
	if !strings.Contains(m.View(), "Sign in") {
		t.Fatalf("login view missing title")
	}
}

func TestLoginKey_RequiresFields(t *testing.T) {
	m := newTestModel(t, "http://example.test/")
	updated, cmd := m.Update(keyPress("enter"))
	m = updated.(Model)
	if cmd != nil || m.login.form.err != "username is required" {
		t.Fatalf("err = %q, cmd = %v", m.login.form.err, cmd)
	}
}

func TestHandleLogin_FailureStaysOnLogin(t *testing.T) {
	m := newTestModel(t, "http://example.test/")
	err := &fadeapi.HTTPStatusError{Method: "POST", Path: "token", StatusCode: 401}
	updated, _ := m.Update(loginMsg{err: err})
	m = updated.(Model)
	if m.screen != screenLogin || m.login.form.err != "invalid username or password" {
		t.Fatalf("screen = %v err = %q", m.screen, m.login.form.err)
	}
}

func TestHandleLogin_SuccessEntersMainAndSavesPrefs(t *testing.T) {
	m := newTestModel(t, "http://example.test/")
	m.login.remember = true
	m = loggedIn(t, m)

	if m.screen != screenMain || m.view != ViewRecords {
		t.Fatalf("screen/view = %v/%v", m.screen, m.view)
	}
	saved, _ := prefs.Load(m.prefsPath)
	if saved.LastUsername != "ana" || !saved.Remember {
		t.Fatalf("saved prefs = %+v", saved)
	}
	if !strings.Contains(m.View(), "Records") {
		t.Fatalf("main view missing tab bar")
	}
}

func TestStaleResultsAreDropped(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))
	other := session.New(nil, &records.Cache{}, zerolog.Nop())

	m.pending = 1
	updated, _ := m.Update(syncMsg{sess: other, res: records.MergeResult{Added: 5}})
	m = updated.(Model)
	if m.pending != 1 || strings.Contains(m.flash.text, "5 new") {
		t.Fatalf("stale sync result applied: pending=%d flash=%q", m.pending, m.flash.text)
	}
}

func TestSyncResultRebuildsTable(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))
	v := 1.5
	m.sess.Cache().Merge([]fadeapi.Record{
		{Timestamp: "2024-01-01T00:00:00Z", SensorValues: []*float64{&v, &v}},
	})
	m.pending = 1
	updated, _ := m.Update(syncMsg{sess: m.sess, res: records.MergeResult{Added: 1}})
	m = updated.(Model)

	if m.pending != 0 || m.records.sensors != 2 {
		t.Fatalf("pending = %d sensors = %d", m.pending, m.records.sensors)
	}
	if rows := m.records.table.Rows(); len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if !strings.Contains(m.flash.text, "1 new") {
		t.Fatalf("flash = %q", m.flash.text)
	}
}

func TestDeleteAllNeedsConfirmation(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))

	updated, _ := m.Update(keyPress("D"))
	m = updated.(Model)
	if m.mode != modeConfirmDelete {
		t.Fatalf("mode = %v, want confirm", m.mode)
	}
	updated, cmd := m.Update(keyPress("n"))
	m = updated.(Model)
	if m.mode != modeNormal || cmd != nil || m.flash.text != "Delete cancelled" {
		t.Fatalf("mode = %v flash = %q cmd = %v", m.mode, m.flash.text, cmd)
	}

	updated, _ = m.Update(keyPress("D"))
	updated, cmd = updated.(Model).Update(keyPress("y"))
	m = updated.(Model)
	if cmd == nil || m.pending != 1 {
		t.Fatalf("confirm did not start delete: pending=%d", m.pending)
	}
}

func TestFilterFormValidates(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))
	updated, _ := m.Update(keyPress("f"))
	m = updated.(Model)
	if m.mode != modeFilter {
		t.Fatalf("mode = %v, want filter", m.mode)
	}
	m.records.filter.inputs[filterLimit].SetValue("-4")
	updated, _ = m.Update(keyPress("enter"))
	m = updated.(Model)
	if m.mode != modeFilter || !strings.Contains(m.records.filter.err, "limit") {
		t.Fatalf("mode = %v err = %q", m.mode, m.records.filter.err)
	}

	m.records.filter.inputs[filterLimit].SetValue("10")
	updated, cmd := m.Update(keyPress("enter"))
	m = updated.(Model)
	if m.mode != modeNormal || m.records.query.Limit != 10 || cmd == nil {
		t.Fatalf("mode = %v query = %+v", m.mode, m.records.query)
	}
}

func TestThemeCyclePersists(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))
	updated, _ := m.Update(keyPress("T"))
	m = updated.(Model)
	if m.theme.Name != NextTheme("Slate") {
		t.Fatalf("theme = %q", m.theme.Name)
	}
	saved, _ := prefs.Load(m.prefsPath)
	if saved.Theme != m.theme.Name {
		t.Fatalf("saved theme = %q, want %q", saved.Theme, m.theme.Name)
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	m := loggedIn(t, newTestModel(t, server.URL))
	stopped := false
	m.stopPoll = func() { stopped = true }

	updated, _ := m.Update(keyPress("L"))
	m = updated.(Model)
	if m.screen != screenLogin || m.sess != nil || !stopped {
		t.Fatalf("screen = %v sess = %v stopped = %v", m.screen, m.sess, stopped)
	}
	if m.login.username() != "ana" {
		t.Fatalf("login username = %q, want ana prefilled", m.login.username())
	}
}

func TestUsersDeniedForNonAdmin(t *testing.T) {
	m := loggedIn(t, newTestModel(t, "http://example.test/"))
	updated, _ := m.Update(usersMsg{sess: m.sess, err: session.ErrNotAdmin})
	m = updated.(Model)
	m.view = ViewUsers
	if !m.users.denied || !strings.Contains(m.View(), "administrator") {
		t.Fatalf("denied = %v", m.users.denied)
	}
}
