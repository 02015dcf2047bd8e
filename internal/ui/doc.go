// Package ui implements the FADEAPI client terminal interface with Bubble Tea.
//
// # Screens
//
// The login screen collects username and password and a remember toggle.
// With remember and a stored token pair, the next start resumes the session
// without asking (GetCurrentUser validates and, if needed, refreshes the
// tokens).
//
// The main screen has four tabs:
//
//   - Status: server status payload, session expiry, sync status, version
//   - Records: cached records as a ts + s1..sN table, newest first, with a
//     sparkline of one sensor; refresh, reload, filter, export, delete-all
//   - Users: admin-only list with create and edit forms
//   - Logs: tail of the client's own log file
//
// # Concurrency
//
// Every network call runs on the shared task.Pool through runTask and comes
// back as a message; Update never blocks. Results tagged with a session
// that is no longer current (after logout) are dropped. A one-second tick
// picks up cache changes made by the background poller via Cache.Version.
//
// # Modal input
//
// Forms and confirmations set Model.mode, which captures the keyboard until
// enter or esc. Delete-all and update installation require an explicit y.
//
// # Themes
//
// Nightfox (default), Kanagawa and Slate. T cycles them and the choice is
// saved to prefs.
package ui
