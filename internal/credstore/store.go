// Package credstore persists API token pairs keyed by username.
package credstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service the client stores tokens under.
const ServiceName = "FADEAPI-Client"

// Credentials is an access/refresh token pair. Empty strings mean absent.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// IsZero reports whether neither token is present.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Store loads and saves credentials by username.
type Store interface {
	Load(username string) (Credentials, error)
	Save(username string, creds Credentials) error
	Delete(username string) error
}

// Keyring stores credentials in the operating system's secret store.
type Keyring struct {
	Service string
}

var _ Store = Keyring{}

// NewKeyring returns a Keyring using ServiceName.
func NewKeyring() Keyring {
	return Keyring{Service: ServiceName}
}

// Load returns the stored pair. Missing entries are reported as empty tokens.
func (k Keyring) Load(username string) (Credentials, error) {
	access, err := k.get(accessKey(username))
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := k.get(refreshKey(username))
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// Save writes both tokens. An empty token removes its entry.
func (k Keyring) Save(username string, creds Credentials) error {
	if err := k.set(accessKey(username), creds.AccessToken); err != nil {
		return err
	}
	return k.set(refreshKey(username), creds.RefreshToken)
}

// Delete removes both tokens for username.
func (k Keyring) Delete(username string) error {
	if err := k.del(accessKey(username)); err != nil {
		return err
	}
	return k.del(refreshKey(username))
}

func (k Keyring) get(key string) (string, error) {
	value, err := keyring.Get(k.service(), key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return value, nil
}

func (k Keyring) set(key, value string) error {
	if value == "" {
		return k.del(key)
	}
	if err := keyring.Set(k.service(), key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

func (k Keyring) del(key string) error {
	if err := keyring.Delete(k.service(), key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s: %w", key, err)
	}
	return nil
}

func (k Keyring) service() string {
	if k.Service == "" {
		return ServiceName
	}
	return k.Service
}

func accessKey(username string) string  { return username + ":access" }
func refreshKey(username string) string { return username + ":refresh" }

// Memory is an in-process Store, used by tests and headless tooling.
type Memory struct {
	mu    sync.Mutex
	creds map[string]Credentials
	saves int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{creds: make(map[string]Credentials)}
}

// Load returns the pair for username, or an empty pair.
func (m *Memory) Load(username string) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds[username], nil
}

// Save replaces the pair for username.
func (m *Memory) Save(username string, creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		m.creds = make(map[string]Credentials)
	}
	m.creds[username] = creds
	m.saves++
	return nil
}

// Delete forgets username.
func (m *Memory) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, username)
	return nil
}

// Saves reports how many times Save has been called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
