// Package session composes the API client and the record cache into the
// operations the UI and CLI call.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/records"
)

// ErrNotAdmin is returned by RequireAdmin for non-admin users.
var ErrNotAdmin = errors.New("only an administrator can manage users")

const defaultLimit = 50

// SyncQuery configures one incremental fetch.
type SyncQuery struct {
	Limit int
	Until string
}

// SyncStatus describes the outcome of recent syncs.
type SyncStatus struct {
	LastSynced          time.Time
	LastError           error
	ConsecutiveFailures int
	LastMerge           records.MergeResult
	Cursor              string
}

// IsFailing reports whether the last sync failed.
func (s SyncStatus) IsFailing() bool {
	return s.LastError != nil
}

// Session binds a client to its record cache.
type Session struct {
	client fadeapi.API
	cache  *records.Cache
	log    zerolog.Logger

	mu     sync.RWMutex
	status SyncStatus

	// gen is bumped whenever the cache is emptied. A sync that started under
	// an older generation drops its batch.
	genMu sync.Mutex
	gen   uint64
}

// New returns a Session. A nil cache is replaced by an empty one.
func New(client fadeapi.API, cache *records.Cache, log zerolog.Logger) *Session {
	if cache == nil {
		cache = &records.Cache{}
	}
	return &Session{client: client, cache: cache, log: log}
}

// Cache returns the record cache.
func (s *Session) Cache() *records.Cache {
	return s.cache
}

// Client returns the underlying API client.
func (s *Session) Client() fadeapi.API {
	return s.client
}

// Sync fetches records newer than the cache cursor and merges them.
func (s *Session) Sync(ctx context.Context, q SyncQuery) (records.MergeResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	gen := s.generation()
	query := fadeapi.RecordQuery{Limit: limit, Until: q.Until}
	if cursor, ok := s.cache.NextCursor(); ok {
		query.Since = cursor
	}

	batch, err := s.client.GetRecords(ctx, query)
	if err != nil {
		s.recordFailure(err)
		return records.MergeResult{}, fmt.Errorf("fetch records: %w", err)
	}

	res, ok := s.mergeIfCurrent(gen, batch)
	if !ok {
		s.log.Debug().Int("fetched", len(batch)).Msg("cache cleared during sync, batch dropped")
		return records.MergeResult{}, nil
	}
	if res.Invalid > 0 {
		s.log.Warn().Int("invalid", res.Invalid).Msg("dropped records with unparseable timestamps")
	}
	s.log.Debug().
		Str("since", query.Since).
		Int("fetched", len(batch)).
		Int("added", res.Added).
		Int("cached", s.cache.Len()).
		Msg("records synced")
	s.recordSuccess(res)
	return res, nil
}

// Reload empties the cache and fetches from the beginning.
func (s *Session) Reload(ctx context.Context, q SyncQuery) (records.MergeResult, error) {
	s.resetCache()
	return s.Sync(ctx, q)
}

// ExportCSV downloads the server's CSV export and writes it to path,
// replacing any existing file only once the download has succeeded.
func (s *Session) ExportCSV(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("export path is empty")
	}
	data, err := s.client.DownloadCSV(ctx)
	if err != nil {
		return 0, fmt.Errorf("download csv: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return 0, err
	}
	s.log.Info().Str("path", path).Int("bytes", len(data)).Msg("csv exported")
	return len(data), nil
}

// DeleteAll removes every record on the server and clears the cache. The
// cache is left untouched when the server call fails.
func (s *Session) DeleteAll(ctx context.Context) (fadeapi.Info, error) {
	summary, err := s.client.DeleteAllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete records: %w", err)
	}
	s.resetCache()
	s.log.Warn().Interface("summary", summary).Msg("all records deleted")
	return summary, nil
}

// RequireAdmin returns the current user when it holds the admin role.
func (s *Session) RequireAdmin(ctx context.Context) (fadeapi.User, error) {
	me, err := s.client.GetCurrentUser(ctx)
	if err != nil {
		return fadeapi.User{}, fmt.Errorf("fetch current user: %w", err)
	}
	if !me.IsAdmin() {
		return me, ErrNotAdmin
	}
	return me, nil
}

// ListUsers checks the admin role, then lists accounts.
func (s *Session) ListUsers(ctx context.Context) ([]fadeapi.User, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.client.ListUsers(ctx)
}

// CreateUser checks the admin role, then creates an account.
func (s *Session) CreateUser(ctx context.Context, payload fadeapi.UserCreate) (fadeapi.User, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return fadeapi.User{}, err
	}
	return s.client.CreateUser(ctx, payload)
}

// UpdateUser checks the admin role, then applies a partial update.
func (s *Session) UpdateUser(ctx context.Context, id int64, payload fadeapi.UserUpdate) (fadeapi.User, error) {
	if payload.IsEmpty() {
		return fadeapi.User{}, fmt.Errorf("no fields to update")
	}
	if _, err := s.RequireAdmin(ctx); err != nil {
		return fadeapi.User{}, err
	}
	return s.client.UpdateUser(ctx, id, payload)
}

// SyncStatus returns a copy of the latest sync status.
func (s *Session) SyncStatus() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if s.status.LastError != nil {
		st.LastError = fmt.Errorf("%w", s.status.LastError)
	}
	st.Cursor, _ = s.cache.NextCursor()
	return st
}

func (s *Session) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

func (s *Session) mergeIfCurrent(gen uint64, batch []fadeapi.Record) (records.MergeResult, bool) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen != s.gen {
		return records.MergeResult{}, false
	}
	return s.cache.Merge(batch), true
}

func (s *Session) resetCache() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	s.cache.Clear()
}

func (s *Session) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = err
	s.status.ConsecutiveFailures++
}

func (s *Session) recordSuccess(res records.MergeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastSynced = time.Now()
	s.status.LastError = nil
	s.status.ConsecutiveFailures = 0
	s.status.LastMerge = res
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod csv: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace csv: %w", err)
	}
	return nil
}
