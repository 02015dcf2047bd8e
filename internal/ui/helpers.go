package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/session"
)

type flashLevel int

const (
	flashInfo flashLevel = iota
	flashSuccess
	flashWarning
	flashError
)

// flash is the one-line message shown above the footer.
type flash struct {
	text  string
	level flashLevel
	at    time.Time
}

func (m *Model) setFlash(level flashLevel, format string, args ...any) {
	m.flash = flash{text: fmt.Sprintf(format, args...), level: level, at: time.Now()}
}

func (m *Model) setError(prefix string, err error) {
	m.setFlash(flashError, "%s: %s", prefix, describeError(err))
	m.log.Warn().Err(err).Msg(prefix)
}

// describeError turns client errors into short user-facing text.
func describeError(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *fadeapi.HTTPStatusError
	switch {
	case errors.Is(err, session.ErrNotAdmin):
		return session.ErrNotAdmin.Error()
	case errors.As(err, &statusErr) && statusErr.StatusCode == 401:
		return "not authorized (session expired or bad credentials)"
	case errors.As(err, &statusErr) && statusErr.StatusCode == 403:
		return "forbidden"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("server returned %d", statusErr.StatusCode)
	}
	return err.Error()
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// truncateMiddle keeps both ends of long paths.
func truncateMiddle(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width < 5 {
		return truncate(s, width)
	}
	head := (width - 1) / 2
	tail := width - 1 - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}

// fillLine pads content to width with the given background.
func fillLine(content, bg string, width int) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(bg)).Width(width).Render(content)
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// placeholderOr returns "-" for blank strings.
func placeholderOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
