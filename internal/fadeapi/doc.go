// Package fadeapi provides the authenticated HTTP client for the FADEAPI
// sensor-log server.
//
// # Overview
//
// A Client performs calls against a single base URL on behalf of one user.
// It holds the user's access/refresh token pair, loaded from a
// credstore.Store at construction and written back whenever it changes.
//
//	client, err := fadeapi.NewClient(fadeapi.Options{
//		BaseURL:  cfg.BaseURL,
//		Username: "alice",
//		Store:    credstore.NewKeyring(),
//	})
//	if err != nil {
//		return err
//	}
//	if err := client.Login(ctx, password); err != nil {
//		return err
//	}
//	recs, err := client.GetRecords(ctx, fadeapi.RecordQuery{Limit: 50})
//
// # Token Refresh
//
// Every call goes through Request. When the server answers 401 and a refresh
// token is held, Request:
//
//  1. posts the refresh token to token/refresh
//  2. replaces both tokens and persists them under the username
//  3. repeats the original call once with the new access token
//
// There is no other retry. A failing refresh is returned to the caller, and
// a failing repeat returns the repeat's error rather than the original 401.
// Concurrent callers that hit 401 with the same refresh token share one
// refresh call (singleflight), so a rotating refresh token is never spent
// twice.
//
// # Endpoints
//
//   - POST token, POST token/refresh: login and refresh
//   - GET records/ (limit, since, until), GET records/csv, DELETE records/
//   - GET users/me, GET users/, POST users/, PUT users/{id}
//   - GET status
//
// Paths are resolved relative to the base URL, which always ends in a slash.
//
// # Error Handling
//
// Errors are never swallowed:
//
//   - Network errors: "execute request: dial tcp: connection refused"
//   - HTTP errors: *HTTPStatusError carrying method, path, status and body
//   - Deserialization errors: "decode response: ..."
//
// Role checks are not performed here. Callers inspect GetCurrentUser().Role
// before invoking admin-only operations.
package fadeapi
