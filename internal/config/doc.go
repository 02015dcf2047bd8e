// Package config loads the FADEAPI client configuration file.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. An explicitly provided path
//  2. Otherwise ~/.config/fadeapi/config.toml
//  3. A missing file yields Default()
//  4. Missing or empty fields keep their defaults
//
// # TOML Format
//
//	base_url = "https://fadeapi-498d1e85e7e4.herokuapp.com/"
//	request_timeout_seconds = 60
//	page_limit = 50
//	auto_refresh_seconds = 0
//	log_file = "~/.local/state/fadeapi/client.log"
//	log_level = "info"
//	release_repo = "marzzelo/FAdeAPI-client"
//
// Every field is optional. auto_refresh_seconds = 0 disables background
// polling. Tilde expansion is applied to the config path and log_file.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, and TOML parse errors ("parse config: ...").
//
// Config is a plain value passed to constructors; the package keeps no
// global state.
package config
