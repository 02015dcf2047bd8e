package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/session"
)

var stderr io.Writer = os.Stderr

// connectStored connects as the configured user and requires stored tokens.
func (e *Env) connectStored() (*fadeapi.Client, *session.Session, error) {
	if e.Username == "" {
		return nil, nil, ErrNoUser
	}
	client, sess, err := e.Connect(e.Username)
	if err != nil {
		return nil, nil, err
	}
	if !client.HasSession() {
		return nil, nil, fmt.Errorf("no stored session for %q: log in with the TUI first", e.Username)
	}
	return client, sess, nil
}

// Export downloads the server CSV to path without starting the TUI.
func (e *Env) Export(ctx context.Context, path string, w io.Writer) error {
	_, sess, err := e.connectStored()
	if err != nil {
		return err
	}
	n, err := sess.ExportCSV(ctx, path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "wrote %d bytes to %s\n", n, path)
	return err
}

// PrintStatus writes the server status payload and, when a session is
// stored, the session expiry.
func (e *Env) PrintStatus(ctx context.Context, w io.Writer) error {
	user := e.Username
	client, _, err := e.Connect(user)
	if err != nil {
		return err
	}
	info, err := client.Status(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", out); err != nil {
		return err
	}
	if exp, ok := client.SessionExpiry(); ok {
		_, err = fmt.Fprintf(w, "session for %s expires %s (%s)\n", user, exp.Local().Format(time.RFC3339), humanUntil(exp))
	}
	return err
}

// CheckUpdate reports whether a newer release exists.
func (e *Env) CheckUpdate(ctx context.Context, w io.Writer) error {
	if e.Updater == nil {
		return fmt.Errorf("updates are not configured")
	}
	newer, rel, err := e.Updater.Check(ctx, e.versionOrDev())
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}
	if newer {
		_, err = fmt.Fprintf(w, "update available: %s (current %s)\n", rel.Version(), e.versionOrDev())
		return err
	}
	_, err = fmt.Fprintf(w, "up to date (%s)\n", e.versionOrDev())
	return err
}

func humanUntil(t time.Time) string {
	d := time.Until(t).Round(time.Second)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}
