package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/logging"
	"github.com/fadea/fadeclient/internal/prefs"
	"github.com/fadea/fadeclient/internal/session"
	"github.com/fadea/fadeclient/internal/task"
	"github.com/fadea/fadeclient/internal/updater"
)

// View is a tab of the main screen.
type View int

const (
	ViewStatus View = iota
	ViewRecords
	ViewUsers
	ViewLogs
)

var viewNames = [...]string{"Status", "Records", "Users", "Logs"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "?"
	}
	return viewNames[v]
}

type screen int

const (
	screenLogin screen = iota
	screenMain
)

// mode is the modal state of the main screen. Anything but modeNormal
// captures the keyboard.
type mode int

const (
	modeNormal mode = iota
	modeFilter
	modeExport
	modeConfirmDelete
	modeUserForm
	modeConfirmInstall
)

const tickEvery = time.Second

// ConnectFunc builds a client and session for username.
type ConnectFunc func(username string) (*fadeapi.Client, *session.Session, error)

// Options configures the UI.
type Options struct {
	Context context.Context
	Connect ConnectFunc
	// AutoRefresh, when set, is called after login with a context that is
	// cancelled on logout.
	AutoRefresh func(ctx context.Context, s *session.Session)
	Pool        *task.Pool
	Updater     *updater.Updater // nil disables the update keys
	Prefs       prefs.Prefs
	PrefsPath   string
	Username    string // prefilled on the login form
	LogFile     string
	PageLimit   int
	Version     string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx         context.Context
	connect     ConnectFunc
	autoRefresh func(context.Context, *session.Session)
	pool        *task.Pool
	updater     *updater.Updater
	prefs       prefs.Prefs
	prefsPath   string
	logFile     string
	pageLimit   int
	version     string
	log         zerolog.Logger

	theme  Theme
	keys   keyMap
	help   help.Model
	width  int
	height int
	ready  bool

	screen   screen
	view     View
	mode     mode
	showHelp bool

	login loginState

	client   *fadeapi.Client
	sess     *session.Session
	me       fadeapi.User
	stopPoll context.CancelFunc

	records recordsState
	users   usersState
	status  statusState
	logs    logsState
	update  updateState

	flash   flash
	pending int
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pool := opts.Pool
	if pool == nil {
		pool = task.NewPool(0, logging.WithComponent("task"))
	}
	pageLimit := opts.PageLimit
	if pageLimit <= 0 {
		pageLimit = 50
	}
	username := opts.Username
	if username == "" && opts.Prefs.Remember {
		username = opts.Prefs.LastUsername
	}

	m := Model{
		ctx:         ctx,
		connect:     opts.Connect,
		autoRefresh: opts.AutoRefresh,
		pool:        pool,
		updater:     opts.Updater,
		prefs:       opts.Prefs,
		prefsPath:   opts.PrefsPath,
		logFile:     opts.LogFile,
		pageLimit:   pageLimit,
		version:     opts.Version,
		log:         logging.WithComponent("ui"),
		theme:       GetTheme(opts.Prefs.Theme),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		screen:      screenLogin,
		view:        ViewRecords,
		login:       newLoginState(username, opts.Prefs.Remember),
		records:     newRecordsState(pageLimit),
		users:       newUsersState(),
		logs:        newLogsState(),
	}
	m.records.applyStyles(m.theme)
	m.users.applyStyles(m.theme)
	if opts.Prefs.CanAutoLogin() && m.connect != nil {
		m.login.busy = true
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), textinput.Blink}
	if m.login.busy {
		cmds = append(cmds, m.resumeCmd(m.login.username()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.screen == screenLogin {
			return m.handleLoginKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case loginMsg:
		return m.handleLogin(msg)

	case syncMsg:
		return m.handleSync(msg)

	case exportMsg:
		return m.handleExport(msg)

	case deleteMsg:
		return m.handleDelete(msg)

	case usersMsg:
		return m.handleUsers(msg)

	case userSavedMsg:
		return m.handleUserSaved(msg)

	case statusMsg:
		return m.handleStatus(msg)

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case updateCheckMsg:
		return m.handleUpdateCheck(msg)

	case updateInstallMsg:
		return m.handleUpdateInstall(msg)
	}

	cmd := m.forwardToInputs(msg)

	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.screen == screenLogin {
		return m.renderLogin()
	}
	return m.renderMain()
}

// forwardToInputs hands non-key messages such as cursor blinks to the
// focused text inputs.
func (m *Model) forwardToInputs(msg tea.Msg) tea.Cmd {
	if m.screen == screenLogin {
		return m.login.form.Update(msg)
	}
	switch m.mode {
	case modeFilter:
		return m.records.filter.Update(msg)
	case modeExport:
		return m.records.export.Update(msg)
	case modeUserForm:
		return m.users.form.Update(msg)
	}
	return nil
}

// handleKey processes keyboard input on the main screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.mode != modeNormal {
		return m.handleModeKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m.quit()
	case "?":
		m.showHelp = true
		return m, nil
	case "T":
		m.cycleTheme()
		return m, nil
	case "tab":
		return m.switchView(View((int(m.view) + 1) % len(viewNames)))
	case "shift+tab":
		return m.switchView(View((int(m.view) + len(viewNames) - 1) % len(viewNames)))
	case "1":
		return m.switchView(ViewStatus)
	case "2":
		return m.switchView(ViewRecords)
	case "3":
		return m.switchView(ViewUsers)
	case "4":
		return m.switchView(ViewLogs)
	case "L":
		return m.logout()
	case "u":
		return m.startUpdateCheck()
	case "U":
		return m.askInstall()
	}

	switch m.view {
	case ViewStatus:
		return m.handleStatusKey(msg)
	case ViewRecords:
		return m.handleRecordsKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) handleModeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeExport:
		return m.handleExportKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case modeUserForm:
		return m.handleUserFormKey(msg)
	case modeConfirmInstall:
		return m.handleConfirmInstallKey(msg)
	}
	m.mode = modeNormal
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.view = v
	switch v {
	case ViewStatus:
		return m, m.statusCmd()
	case ViewUsers:
		if !m.users.loaded && !m.users.loading {
			m.users.loading = true
			return m, m.usersCmd()
		}
	case ViewLogs:
		return m, m.logsCmd()
	}
	return m, nil
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.prefs.Theme = m.theme.Name
	m.savePrefs()
	m.records.applyStyles(m.theme)
	m.users.applyStyles(m.theme)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn().Err(err).Msg("save prefs")
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.stopPoll != nil {
		m.stopPoll()
		m.stopPoll = nil
	}
	return m, tea.Quit
}

// handleTick redraws data that background work may have changed.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd()}
	if m.screen == screenMain && m.sess != nil {
		m.refreshRecordsTable(false)
		if m.view == ViewLogs && m.logs.follow {
			cmds = append(cmds, m.logsCmd())
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	h := m.contentHeight()
	m.records.resize(m.width, h)
	m.users.resize(m.width, h)
	m.logs.resize(m.width, h)
	m.help.Width = m.width
}

// contentHeight is the space between the tab bar and the status line.
func (m Model) contentHeight() int {
	return max(m.height-4, 3)
}

// begin marks a background task as started.
func (m *Model) begin() {
	m.pending++
}

// end marks a background task as finished.
func (m *Model) end() {
	if m.pending > 0 {
		m.pending--
	}
}

// isCurrent reports whether an async result belongs to the active session.
func (m Model) isCurrent(s *session.Session) bool {
	return s != nil && s == m.sess
}

// Messages

type tickMsg time.Time

// Commands

func tickCmd() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or
// opts.Context is cancelled.
func Run(opts Options) error {
	if opts.Connect == nil {
		return errors.New("ui requires a connect function")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
