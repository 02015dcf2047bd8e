// Package prefs handles client user preferences persistence.
// Preferences are stored in ~/.config/fadeapi/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for the client.
type Prefs struct {
	Theme        string `toml:"theme"`
	LastUsername string `toml:"last_username"`
	Remember     bool   `toml:"remember"`
	AutoLogin    bool   `toml:"auto_login"`
}

const (
	defaultPrefsPath = "~/.config/fadeapi/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// CanAutoLogin reports whether a stored session may be resumed without
// showing the login form.
func (p Prefs) CanAutoLogin() bool {
	return p.Remember && p.AutoLogin && strings.TrimSpace(p.LastUsername) != ""
}

// Load reads preferences from the given path. A missing or unreadable file
// yields defaults.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return prefs, nil // missing or unreadable
	}
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil
	}

	prefs.LastUsername = strings.TrimSpace(prefs.LastUsername)
	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	if !prefs.Remember {
		prefs.AutoLogin = false
	}
	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The username is only persisted when Remember is set.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	if !p.Remember {
		p.LastUsername = ""
		p.AutoLogin = false
	}
	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
