package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fadea/fadeclient/internal/credstore"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "base_url = \"" + baseURL + "\"\nlog_file = \"" + filepath.Join(dir, "client.log") + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func setupEnv(t *testing.T, baseURL, user string, store credstore.Store) *Env {
	t.Helper()
	env, err := Setup(Options{
		ConfigPath: writeConfig(t, baseURL),
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
		Username:   user,
		Version:    "1.0.0",
		Store:      store,
	})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestSetup_UsesOverridesAndDefaults(t *testing.T) {
	env := setupEnv(t, "http://example.test/api/", "ana", credstore.NewMemory())
	if env.Username != "ana" || env.Config.PageLimit != 50 {
		t.Fatalf("env = %+v", env)
	}
	if env.Updater == nil {
		t.Fatalf("Updater = nil, want default release repo")
	}
	if got := env.SyncQuery().Limit; got != 50 {
		t.Fatalf("SyncQuery().Limit = %d, want 50", got)
	}
}

func TestSetup_InvalidReleaseRepoDisablesUpdates(t *testing.T) {
	path := writeConfig(t, "http://example.test/")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString("release_repo = \"not-a-repo\"\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	_ = f.Close()

	env, err := Setup(Options{
		ConfigPath: path,
		PrefsPath:  filepath.Join(t.TempDir(), "prefs.toml"),
		Username:   "ana",
		Store:      credstore.NewMemory(),
	})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	if env.Updater != nil {
		t.Fatalf("Updater = %v, want nil for invalid repo", env.Updater)
	}
	if err := env.CheckUpdate(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatalf("CheckUpdate without updater returned nil error")
	}
}

func TestExport_RequiresStoredSession(t *testing.T) {
	env := setupEnv(t, "http://example.test/", "ana", credstore.NewMemory())
	err := env.Export(context.Background(), filepath.Join(t.TempDir(), "out.csv"), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no stored session") {
		t.Fatalf("Export error = %v, want no stored session", err)
	}
}

func TestExport_NoUser(t *testing.T) {
	env := setupEnv(t, "http://example.test/", "", credstore.NewMemory())
	if err := env.Export(context.Background(), "x.csv", &bytes.Buffer{}); !errors.Is(err, ErrNoUser) {
		t.Fatalf("Export error = %v, want ErrNoUser", err)
	}
}

func TestExport_WritesServerCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/records/csv" || r.Header.Get("Authorization") != "Bearer acc" {
			http.Error(w, "unexpected", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ts,s1\n2024-01-01T00:00:00Z,1\n"))
	}))
	defer server.Close()

	store := credstore.NewMemory()
	_ = store.Save("ana", credstore.Credentials{AccessToken: "acc", RefreshToken: "ref"})
	env := setupEnv(t, server.URL, "ana", store)

	out := filepath.Join(t.TempDir(), "out.csv")
	var buf bytes.Buffer
	if err := env.Export(context.Background(), out, &buf); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || !strings.HasPrefix(string(data), "ts,s1") {
		t.Fatalf("csv = %q, %v", data, err)
	}
	if !strings.Contains(buf.String(), "wrote") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","records":3}`))
	}))
	defer server.Close()

	env := setupEnv(t, server.URL, "", credstore.NewMemory())
	var buf bytes.Buffer
	if err := env.PrintStatus(context.Background(), &buf); err != nil {
		t.Fatalf("PrintStatus returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "ok"`) {
		t.Fatalf("output = %q", buf.String())
	}
}
