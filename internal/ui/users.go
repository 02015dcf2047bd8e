package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/session"
)

// Create form fields.
const (
	createUsername = iota
	createPassword
	createFirstName
	createLastName
	createEmail
	createRole
)

// Edit form fields.
const (
	editFirstName = iota
	editLastName
	editEmail
	editPassword
	editRole
	editActive
)

type usersState struct {
	table   table.Model
	list    []fadeapi.User
	loaded  bool
	loading bool
	denied  bool
	err     error

	form    form
	editing *fadeapi.User // nil while creating
}

func newUsersState() usersState {
	return usersState{table: table.New(table.WithFocused(true), table.WithColumns(userColumns()))}
}

func (u *usersState) applyStyles(th Theme) {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(th.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(th.Accent)).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(th.SelectionText)).
		Background(lipgloss.Color(th.SelectionBg)).
		Bold(false)
	u.table.SetStyles(s)
}

func (u *usersState) resize(width, height int) {
	u.table.SetWidth(width)
	u.table.SetHeight(max(height-1, 3))
	u.form.SetWidth(width - 30)
}

func userColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Username", Width: 16},
		{Title: "Name", Width: 24},
		{Title: "Email", Width: 28},
		{Title: "Role", Width: 8},
		{Title: "Active", Width: 7},
		{Title: "Created", Width: 20},
	}
}

func userRows(users []fadeapi.User) []table.Row {
	rows := make([]table.Row, len(users))
	for i, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		rows[i] = table.Row{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			placeholderOr(name),
			placeholderOr(u.Email),
			placeholderOr(u.Role),
			yesNo(u.IsActive),
			placeholderOr(u.CreatedAt),
		}
	}
	return rows
}

func newCreateForm() form {
	return newForm(
		formField{label: "Username", charLimit: 64},
		formField{label: "Password", secret: true},
		formField{label: "First name"},
		formField{label: "Last name"},
		formField{label: "Email"},
		formField{label: "Role", placeholder: "user or admin (blank for server default)"},
	)
}

func newEditForm(u fadeapi.User) form {
	return newForm(
		formField{label: "First name", value: u.FirstName},
		formField{label: "Last name", value: u.LastName},
		formField{label: "Email", value: u.Email},
		formField{label: "Password", secret: true, placeholder: "blank keeps the current password"},
		formField{label: "Role", value: u.Role},
		formField{label: "Active", value: yesNo(u.IsActive), charLimit: 5},
	)
}

// buildUserCreate validates the create form values.
func buildUserCreate(username, password, first, last, email, role string) (fadeapi.UserCreate, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"username", username}, {"password", password}, {"first name", first},
		{"last name", last}, {"email", email},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fadeapi.UserCreate{}, fmt.Errorf("required: %s", strings.Join(missing, ", "))
	}
	payload := fadeapi.UserCreate{
		Username:  strings.TrimSpace(username),
		Password:  password,
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Email:     strings.TrimSpace(email),
	}
	if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
		if err := validateRole(role); err != nil {
			return fadeapi.UserCreate{}, err
		}
		payload = payload.WithRole(role)
	}
	return payload, nil
}

// buildUserUpdate sends only non-empty fields that differ from orig.
func buildUserUpdate(orig fadeapi.User, first, last, email, password, role, active string) (fadeapi.UserUpdate, error) {
	var upd fadeapi.UserUpdate
	if v := strings.TrimSpace(first); v != "" && v != orig.FirstName {
		upd = upd.WithFirstName(v)
	}
	if v := strings.TrimSpace(last); v != "" && v != orig.LastName {
		upd = upd.WithLastName(v)
	}
	if v := strings.TrimSpace(email); v != "" && v != orig.Email {
		upd = upd.WithEmail(v)
	}
	if password != "" {
		upd = upd.WithPassword(password)
	}
	if v := strings.ToLower(strings.TrimSpace(role)); v != "" && v != strings.ToLower(orig.Role) {
		if err := validateRole(v); err != nil {
			return fadeapi.UserUpdate{}, err
		}
		upd = upd.WithRole(v)
	}
	if v := strings.TrimSpace(active); v != "" {
		b, err := parseYesNo(v)
		if err != nil {
			return fadeapi.UserUpdate{}, err
		}
		if b != orig.IsActive {
			upd = upd.WithActive(b)
		}
	}
	if upd.IsEmpty() {
		return upd, errors.New("nothing changed")
	}
	return upd, nil
}

func validateRole(role string) error {
	switch role {
	case fadeapi.RoleAdmin, fadeapi.RoleUser:
		return nil
	}
	return fmt.Errorf("role must be %q or %q", fadeapi.RoleUser, fadeapi.RoleAdmin)
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("active must be yes or no")
}

type usersMsg struct {
	sess  *session.Session
	users []fadeapi.User
	err   error
}

func (m Model) usersCmd() tea.Cmd {
	sess := m.sess
	if sess == nil {
		return nil
	}
	return runTask(m.pool, m.ctx, "list users", sess.ListUsers, func(users []fadeapi.User, err error) tea.Msg {
		return usersMsg{sess: sess, users: users, err: err}
	})
}

func (m Model) handleUsers(msg usersMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.sess) {
		return m, nil
	}
	m.users.loading = false
	m.users.loaded = true
	m.users.err = msg.err
	m.users.denied = errors.Is(msg.err, session.ErrNotAdmin)
	if msg.err != nil {
		if !m.users.denied {
			m.setError("load users", msg.err)
		}
		return m, nil
	}
	m.users.list = msg.users
	m.users.table.SetRows(userRows(msg.users))
	if c := m.users.table.Cursor(); c >= len(msg.users) {
		m.users.table.SetCursor(max(len(msg.users)-1, 0))
	}
	return m, nil
}

type userSavedMsg struct {
	sess    *session.Session
	user    fadeapi.User
	created bool
	err     error
}

func (m Model) createUserCmd(payload fadeapi.UserCreate) tea.Cmd {
	sess := m.sess
	return runTask(m.pool, m.ctx, "create user", func(ctx context.Context) (fadeapi.User, error) {
		return sess.CreateUser(ctx, payload)
	}, func(u fadeapi.User, err error) tea.Msg {
		return userSavedMsg{sess: sess, user: u, created: true, err: err}
	})
}

func (m Model) updateUserCmd(id int64, payload fadeapi.UserUpdate) tea.Cmd {
	sess := m.sess
	return runTask(m.pool, m.ctx, "update user", func(ctx context.Context) (fadeapi.User, error) {
		return sess.UpdateUser(ctx, id, payload)
	}, func(u fadeapi.User, err error) tea.Msg {
		return userSavedMsg{sess: sess, user: u, err: err}
	})
}

func (m Model) handleUserSaved(msg userSavedMsg) (tea.Model, tea.Cmd) {
	if !m.isCurrent(msg.sess) {
		return m, nil
	}
	m.end()
	if msg.err != nil {
		m.setError("save user", msg.err)
		return m, nil
	}
	verb := "Updated"
	if msg.created {
		verb = "Created"
	}
	m.setFlash(flashSuccess, "%s user %s", verb, msg.user.Username)
	m.users.loading = true
	return m, m.usersCmd()
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.users.denied {
		return m, nil
	}
	switch {
	case keyIs(msg, m.keys.Refresh):
		m.users.loading = true
		return m, m.usersCmd()
	case keyIs(msg, m.keys.NewUser):
		m.users.editing = nil
		m.users.form = newCreateForm()
		m.users.form.SetWidth(m.width - 30)
		m.mode = modeUserForm
		cmd := m.users.form.Focus(0)
		return m, cmd
	case keyIs(msg, m.keys.EditUser):
		sel := m.selectedUser()
		if sel == nil {
			return m, nil
		}
		m.users.editing = sel
		m.users.form = newEditForm(*sel)
		m.users.form.SetWidth(m.width - 30)
		m.mode = modeUserForm
		cmd := m.users.form.Focus(0)
		return m, cmd
	}
	var cmd tea.Cmd
	m.users.table, cmd = m.users.table.Update(msg)
	return m, cmd
}

func (m Model) selectedUser() *fadeapi.User {
	i := m.users.table.Cursor()
	if i < 0 || i >= len(m.users.list) {
		return nil
	}
	u := m.users.list[i]
	return &u
}

func (m Model) handleUserFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		return m, nil
	case "enter":
		return m.submitUserForm()
	}
	if cmd, ok := m.users.form.handleNav(msg); ok {
		return m, cmd
	}
	cmd := m.users.form.Update(msg)
	return m, cmd
}

func (m Model) submitUserForm() (tea.Model, tea.Cmd) {
	f := &m.users.form
	if m.users.editing == nil {
		payload, err := buildUserCreate(f.Value(createUsername), f.RawValue(createPassword),
			f.Value(createFirstName), f.Value(createLastName), f.Value(createEmail), f.Value(createRole))
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		m.mode = modeNormal
		m.begin()
		return m, m.createUserCmd(payload)
	}

	orig := *m.users.editing
	payload, err := buildUserUpdate(orig, f.Value(editFirstName), f.Value(editLastName), f.Value(editEmail),
		f.RawValue(editPassword), f.Value(editRole), f.Value(editActive))
	if err != nil {
		f.err = err.Error()
		return m, nil
	}
	m.mode = modeNormal
	m.begin()
	return m, m.updateUserCmd(orig.ID, payload)
}

func (m Model) renderUsers() string {
	styles := m.theme.Styles()
	h := m.contentHeight()

	if m.mode == modeUserForm {
		title := "New user"
		if m.users.editing != nil {
			title = "Edit user " + m.users.editing.Username
		}
		return styles.FocusPanel.Render(m.users.form.View(styles, title))
	}

	var body string
	switch {
	case m.users.denied:
		body = styles.WarningText.Render(session.ErrNotAdmin.Error()) + "\n" +
			styles.MutedText.Render("Signed in as "+m.me.Username+" ("+placeholderOr(m.me.Role)+")")
	case m.users.loading && !m.users.loaded:
		body = styles.MutedText.Render("Loading users...")
	case m.users.err != nil:
		body = styles.DangerText.Render("Could not load users: "+describeError(m.users.err)) + "\n" +
			styles.MutedText.Render("Press r to retry")
	case len(m.users.list) == 0:
		body = styles.MutedText.Render("No users. Press n to create one.")
	default:
		return m.users.table.View()
	}
	return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, body)
}
