package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/fadeapi"
)

type fakeAPI struct {
	mu        sync.Mutex
	queries   []fadeapi.RecordQuery
	pages     [][]fadeapi.Record
	recordErr error
	csv       []byte
	csvErr    error
	deleteErr error
	deletes   int
	me        fadeapi.User
	users     []fadeapi.User
	created   []fadeapi.UserCreate
	updated   map[int64]fadeapi.UserUpdate

	// fetching, when set, is closed once GetRecords is entered; the call
	// then blocks until release is closed.
	fetching chan struct{}
	release  chan struct{}
}

func (f *fakeAPI) GetRecords(_ context.Context, q fadeapi.RecordQuery) ([]fadeapi.Record, error) {
	if f.fetching != nil {
		close(f.fetching)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeAPI) DownloadCSV(context.Context) ([]byte, error) { return f.csv, f.csvErr }

func (f *fakeAPI) DeleteAllRecords(context.Context) (fadeapi.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletes++
	return fadeapi.Info{"deleted": float64(2)}, nil
}

func (f *fakeAPI) GetCurrentUser(context.Context) (fadeapi.User, error) { return f.me, nil }
func (f *fakeAPI) ListUsers(context.Context) ([]fadeapi.User, error)    { return f.users, nil }

func (f *fakeAPI) CreateUser(_ context.Context, p fadeapi.UserCreate) (fadeapi.User, error) {
	f.created = append(f.created, p)
	return fadeapi.User{ID: 9, Username: p.Username}, nil
}

func (f *fakeAPI) UpdateUser(_ context.Context, id int64, p fadeapi.UserUpdate) (fadeapi.User, error) {
	if f.updated == nil {
		f.updated = make(map[int64]fadeapi.UserUpdate)
	}
	f.updated[id] = p
	return fadeapi.User{ID: id}, nil
}

func (f *fakeAPI) Status(context.Context) (fadeapi.Info, error) { return fadeapi.Info{"ok": true}, nil }

func r(ts string) fadeapi.Record { return fadeapi.Record{Timestamp: ts} }

func TestSync_UsesCursorAfterFirstPage(t *testing.T) {
	api := &fakeAPI{pages: [][]fadeapi.Record{
		{r("2024-01-01T00:00:01Z"), r("2024-01-01T00:00:00Z")},
		{r("2024-01-01T00:00:02Z"), r("2024-01-01T00:00:01Z")},
	}}
	s := New(api, nil, zerolog.Nop())
	ctx := context.Background()

	res, err := s.Sync(ctx, SyncQuery{Limit: 10, Until: "2024-12-31T00:00:00"})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if res.Added != 2 {
		t.Fatalf("first Sync added %d, want 2", res.Added)
	}
	res, err = s.Sync(ctx, SyncQuery{})
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if res.Added != 1 || res.Duplicates != 1 {
		t.Fatalf("second Sync = %#v, want 1 added 1 duplicate", res)
	}

	if len(api.queries) != 2 {
		t.Fatalf("queries = %#v, want 2", api.queries)
	}
	first, second := api.queries[0], api.queries[1]
	if first.Since != "" || first.Limit != 10 || first.Until != "2024-12-31T00:00:00" {
		t.Fatalf("first query = %#v, want no since, limit 10, until set", first)
	}
	if second.Since != "2024-01-01T00:00:01.000001+00:00" || second.Limit != defaultLimit {
		t.Fatalf("second query = %#v, want cursor since and default limit", second)
	}
	if s.Cache().Len() != 3 {
		t.Fatalf("cache len = %d, want 3", s.Cache().Len())
	}

	st := s.SyncStatus()
	if st.IsFailing() || st.LastSynced.IsZero() || st.LastMerge.Added != 1 {
		t.Fatalf("status = %#v, want successful sync", st)
	}
	if st.Cursor != "2024-01-01T00:00:02.000001+00:00" {
		t.Fatalf("status cursor = %q", st.Cursor)
	}
}

func TestSync_FailureTrackedAndCacheKept(t *testing.T) {
	api := &fakeAPI{pages: [][]fadeapi.Record{{r("2024-01-01T00:00:00Z")}}}
	s := New(api, nil, zerolog.Nop())
	if _, err := s.Sync(context.Background(), SyncQuery{}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	boom := errors.New("boom")
	api.recordErr = boom
	for i := 0; i < 2; i++ {
		if _, err := s.Sync(context.Background(), SyncQuery{}); !errors.Is(err, boom) {
			t.Fatalf("Sync error = %v, want boom", err)
		}
	}
	st := s.SyncStatus()
	if st.ConsecutiveFailures != 2 || !errors.Is(st.LastError, boom) {
		t.Fatalf("status = %#v, want 2 failures with boom", st)
	}
	if s.Cache().Len() != 1 {
		t.Fatalf("cache len = %d, want 1 after failures", s.Cache().Len())
	}

	api.recordErr = nil
	if _, err := s.Sync(context.Background(), SyncQuery{}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if st := s.SyncStatus(); st.ConsecutiveFailures != 0 || st.LastError != nil {
		t.Fatalf("status = %#v, want reset after success", st)
	}
}

func TestReload_ClearsBeforeFetching(t *testing.T) {
	api := &fakeAPI{pages: [][]fadeapi.Record{
		{r("2024-01-01T00:00:05Z")},
		{r("2024-01-01T00:00:00Z")},
	}}
	s := New(api, nil, zerolog.Nop())
	_, _ = s.Sync(context.Background(), SyncQuery{})
	if _, err := s.Reload(context.Background(), SyncQuery{}); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if api.queries[1].Since != "" {
		t.Fatalf("reload query since = %q, want none", api.queries[1].Since)
	}
	got := s.Cache().Records()
	if len(got) != 1 || got[0].Timestamp != "2024-01-01T00:00:00Z" {
		t.Fatalf("records after reload = %#v", got)
	}
}

func TestExportCSV_WritesFile(t *testing.T) {
	api := &fakeAPI{csv: []byte("ts,s1\n")}
	s := New(api, nil, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "out", "records.csv")

	n, err := s.ExportCSV(context.Background(), path)
	if err != nil {
		t.Fatalf("ExportCSV returned error: %v", err)
	}
	if n != 6 {
		t.Fatalf("bytes = %d, want 6", n)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "ts,s1\n" {
		t.Fatalf("file = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("dir entries = %d, want only the csv", len(entries))
	}
}

func TestExportCSV_FailureLeavesExistingFile(t *testing.T) {
	api := &fakeAPI{csvErr: errors.New("offline")}
	s := New(api, nil, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "records.csv")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := s.ExportCSV(context.Background(), path); err == nil {
		t.Fatalf("ExportCSV returned nil error")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Fatalf("file = %q, want old contents", data)
	}
	if _, err := s.ExportCSV(context.Background(), ""); err == nil {
		t.Fatalf("ExportCSV with empty path returned nil error")
	}
}

func TestDeleteAll_ClearsCacheOnlyOnSuccess(t *testing.T) {
	api := &fakeAPI{pages: [][]fadeapi.Record{{r("2024-01-01T00:00:00Z")}}, deleteErr: errors.New("forbidden")}
	s := New(api, nil, zerolog.Nop())
	_, _ = s.Sync(context.Background(), SyncQuery{})

	if _, err := s.DeleteAll(context.Background()); err == nil {
		t.Fatalf("DeleteAll returned nil error")
	}
	if s.Cache().Len() != 1 {
		t.Fatalf("cache cleared despite failed delete")
	}

	api.deleteErr = nil
	summary, err := s.DeleteAll(context.Background())
	if err != nil {
		t.Fatalf("DeleteAll returned error: %v", err)
	}
	if summary["deleted"] != float64(2) {
		t.Fatalf("summary = %#v", summary)
	}
	if s.Cache().Len() != 0 {
		t.Fatalf("cache len = %d, want 0", s.Cache().Len())
	}
	if _, ok := s.Cache().NextCursor(); ok {
		t.Fatalf("cursor present after delete")
	}
}

func TestUsers_RequireAdmin(t *testing.T) {
	api := &fakeAPI{me: fadeapi.User{Username: "bob", Role: "user"}, users: []fadeapi.User{{ID: 1}}}
	s := New(api, nil, zerolog.Nop())
	ctx := context.Background()

	if _, err := s.ListUsers(ctx); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("ListUsers error = %v, want ErrNotAdmin", err)
	}
	if _, err := s.CreateUser(ctx, fadeapi.UserCreate{Username: "x"}); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("CreateUser error = %v, want ErrNotAdmin", err)
	}
	if len(api.created) != 0 {
		t.Fatalf("CreateUser reached the API for a non-admin")
	}

	api.me.Role = "admin"
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("ListUsers = %#v, %v", users, err)
	}
	if _, err := s.CreateUser(ctx, fadeapi.UserCreate{Username: "x"}.WithRole("admin")); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if _, err := s.UpdateUser(ctx, 3, fadeapi.UserUpdate{}); err == nil {
		t.Fatalf("UpdateUser with empty payload returned nil error")
	}
	if _, err := s.UpdateUser(ctx, 3, fadeapi.UserUpdate{}.WithEmail("e@x")); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	if got := api.updated[3]; got.Email == nil || *got.Email != "e@x" || got.Role != nil {
		t.Fatalf("update payload = %#v, want only email", got)
	}
}

func TestDeleteAll_DropsBatchOfSyncInFlight(t *testing.T) {
	api := &fakeAPI{
		pages:    [][]fadeapi.Record{{r("2024-01-01T00:00:00Z")}},
		fetching: make(chan struct{}),
		release:  make(chan struct{}),
	}
	s := New(api, nil, zerolog.Nop())

	type outcome struct {
		added int
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Sync(context.Background(), SyncQuery{})
		done <- outcome{res.Added, err}
	}()

	<-api.fetching
	if _, err := s.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll returned error: %v", err)
	}
	close(api.release)

	got := <-done
	if got.err != nil {
		t.Fatalf("Sync returned error: %v", got.err)
	}
	if got.added != 0 {
		t.Fatalf("Sync added %d after delete, want 0", got.added)
	}
	if n := s.Cache().Len(); n != 0 {
		t.Fatalf("cache len = %d after DeleteAll, want 0", n)
	}

	api.fetching = nil
	api.pages = [][]fadeapi.Record{{r("2024-01-02T00:00:00Z")}}
	res, err := s.Sync(context.Background(), SyncQuery{})
	if err != nil || res.Added != 1 {
		t.Fatalf("Sync after delete = %#v, %v; want 1 added", res, err)
	}
}
