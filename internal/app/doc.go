// Package app is the composition root of the FADEAPI client.
//
// Setup loads config and prefs, initializes logging, and builds the shared
// Env (credential store, task pool, updater). Run hands the Env to the TUI;
// the headless commands (Export, PrintStatus, CheckUpdate) use it directly.
//
//	Setup()
//	  ├─> config.Load()         ~/.config/fadeapi/config.toml
//	  ├─> prefs.Load()          ~/.config/fadeapi/prefs.toml
//	  ├─> logging.Init()        log file (the TUI owns the terminal)
//	  ├─> credstore.NewKeyring()
//	  ├─> task.NewPool()
//	  └─> updater.New()
//
//	Env.Connect(username)
//	  ├─> fadeapi.NewClient()   loads stored tokens
//	  └─> session.New()         empty record cache
//
// # Polling
//
// When auto_refresh_seconds is set, the UI starts StartPoller after login.
// Each round runs an incremental Sync; consecutive failures double the wait
// up to 30 seconds and a success resets it. Logout cancels the poller.
//
// # Error Handling
//
// Setup failures (bad config, unwritable log file) are fatal and returned
// from Run. Poll failures are logged and retried. An updater that cannot be
// configured only disables the update keys.
package app
