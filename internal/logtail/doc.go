// Package logtail reads and formats the client's own log file for the in-app
// log view.
//
// Read extracts the last N lines with a ring buffer, so memory stays
// O(maxLines) regardless of file size and the file is scanned once. A
// missing file yields nil, nil.
//
// The client logs zerolog JSON. Format turns a line such as
//
//	{"level":"info","component":"session","count":12,"time":"2024-05-01T10:00:00Z","message":"sync"}
//
// into
//
//	10:00:00 INF [session] sync count=12
//
// Extra fields are printed in key order. Lines that are not JSON are passed
// through untouched.
package logtail
