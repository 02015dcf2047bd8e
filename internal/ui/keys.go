package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap defines the keyboard bindings of the main screen.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Logout     key.Binding

	// View switching
	ViewStatus  key.Binding
	ViewRecords key.Binding
	ViewUsers   key.Binding
	ViewLogs    key.Binding

	// Records
	Refresh    key.Binding
	Reload     key.Binding
	Filter     key.Binding
	Export     key.Binding
	DeleteAll  key.Binding
	PrevSensor key.Binding
	NextSensor key.Binding

	// Users
	NewUser  key.Binding
	EditUser key.Binding

	// Updates
	CheckUpdate   key.Binding
	InstallUpdate key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),

		ViewStatus: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Status"),
		),
		ViewRecords: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Records"),
		),
		ViewUsers: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Users"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Logs"),
		),

		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Full reload"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Limit / until filter"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Export CSV"),
		),
		DeleteAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Delete all records"),
		),
		PrevSensor: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Previous sensor"),
		),
		NextSensor: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Next sensor"),
		),

		NewUser: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New user"),
		),
		EditUser: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e/enter", "Edit user"),
		),

		CheckUpdate: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Check for updates"),
		),
		InstallUpdate: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "Download and install update"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay, one group per column.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.ViewStatus, k.ViewRecords, k.ViewUsers, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Refresh, k.Reload, k.Filter, k.Export, k.DeleteAll, k.PrevSensor, k.NextSensor},
		{k.NewUser, k.EditUser},
		{k.CheckUpdate, k.InstallUpdate, k.CycleTheme, k.Logout, k.Help, k.Quit},
	}
}

func keyIs(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}
