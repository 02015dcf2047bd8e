// Package updater checks GitHub releases for a newer client build and
// downloads and launches its installer.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
)

var (
	// ErrNoReleases is returned when the repository has no published release.
	ErrNoReleases = errors.New("no public releases")
	// ErrNoAsset is returned when a release carries no installer or archive.
	ErrNoAsset = errors.New("no .exe or .zip asset for this version")
)

const (
	defaultAPIBase = "https://api.github.com/"
	apiTimeout     = 30 * time.Second
	appDirName     = "FADEAPI-Client"
)

// Release mirrors the GitHub release payload fields the updater reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Draft   bool    `json:"draft"`
	Assets  []Asset `json:"assets"`
}

// Version returns the tag without its leading "v".
func (r Release) Version() string {
	return ParseVersion(r.TagName)
}

// Asset is a downloadable release file.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Options configure an Updater.
type Options struct {
	Repo       string // owner/name
	APIBase    string // empty uses https://api.github.com/
	Dir        string // empty uses <LOCALAPPDATA or home>/FADEAPI-Client/updates
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Updater talks to the GitHub releases API for one repository.
type Updater struct {
	repo    string
	apiBase *url.URL
	dir     string
	api     *http.Client
	dl      *http.Client
	log     zerolog.Logger
}

// New builds an Updater.
func New(opts Options) (*Updater, error) {
	repo := strings.Trim(strings.TrimSpace(opts.Repo), "/")
	if strings.Count(repo, "/") != 1 {
		return nil, fmt.Errorf("release repo %q must be owner/name", opts.Repo)
	}
	rawBase := opts.APIBase
	if strings.TrimSpace(rawBase) == "" {
		rawBase = defaultAPIBase
	}
	base, err := url.Parse(strings.TrimSpace(rawBase))
	if err != nil {
		return nil, fmt.Errorf("parse api base: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	api := opts.HTTPClient
	dl := opts.HTTPClient
	if api == nil {
		api = &http.Client{Timeout: apiTimeout}
		dl = &http.Client{}
	}
	return &Updater{
		repo:    repo,
		apiBase: base,
		dir:     opts.Dir,
		api:     api,
		dl:      dl,
		log:     opts.Logger,
	}, nil
}

// ParseVersion strips a leading "v" and surrounding spaces from a tag.
func ParseVersion(tag string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "v"))
}

// IsNewer reports whether latest is a higher semantic version than current.
// Unparseable versions are never newer.
func IsNewer(latest, current string) bool {
	l, c := "v"+ParseVersion(latest), "v"+ParseVersion(current)
	if !semver.IsValid(l) || !semver.IsValid(c) {
		return false
	}
	return semver.Compare(l, c) > 0
}

// Latest returns the most recent release. Repositories without a "latest"
// release fall back to the first non-draft entry of the release list.
func (u *Updater) Latest(ctx context.Context) (Release, error) {
	var rel Release
	status, err := u.getJSON(ctx, "repos/"+u.repo+"/releases/latest", &rel)
	if err != nil {
		return Release{}, err
	}
	if status != http.StatusNotFound {
		return rel, nil
	}

	var list []Release
	status, err = u.getJSON(ctx, "repos/"+u.repo+"/releases", &list)
	if err != nil {
		return Release{}, err
	}
	if status == http.StatusNotFound {
		return Release{}, fmt.Errorf("list releases: github returned status %d", status)
	}
	for _, r := range list {
		if !r.Draft {
			return r, nil
		}
	}
	return Release{}, ErrNoReleases
}

// Check reports whether the latest release is newer than current.
func (u *Updater) Check(ctx context.Context, current string) (bool, Release, error) {
	rel, err := u.Latest(ctx)
	if err != nil {
		return false, Release{}, err
	}
	newer := IsNewer(rel.TagName, current)
	u.log.Info().Str("current", current).Str("latest", rel.Version()).Bool("newer", newer).Msg("update check")
	return newer, rel, nil
}

// PickAsset selects the installer (setup*.exe) or, failing that, the zip
// archive for version. preferInstaller=false picks the archive first. When
// several assets match, the last one wins.
func PickAsset(assets []Asset, version string, preferInstaller bool) (Asset, bool) {
	ver := regexp.QuoteMeta(version)
	exeRe := regexp.MustCompile(`(?i)setup[_-]?` + ver + `.*\.exe$`)
	zipRe := regexp.MustCompile(`(?i)v?` + ver + `.*\.zip$`)

	var exe, zip *Asset
	for i := range assets {
		a := &assets[i]
		lower := strings.ToLower(a.Name)
		if exeRe.MatchString(a.Name) || (strings.Contains(lower, "setup") && strings.HasSuffix(lower, ".exe")) {
			exe = a
		}
		if zipRe.MatchString(a.Name) || (strings.HasSuffix(lower, ".zip") && strings.Contains(a.Name, version)) {
			zip = a
		}
	}
	switch {
	case !preferInstaller && zip != nil:
		return *zip, true
	case exe != nil:
		return *exe, true
	case zip != nil:
		return *zip, true
	default:
		return Asset{}, false
	}
}

// Download fetches the preferred asset of the latest release into the
// updates directory and returns its path.
func (u *Updater) Download(ctx context.Context, version string) (string, error) {
	rel, err := u.Latest(ctx)
	if err != nil {
		return "", err
	}
	asset, ok := PickAsset(rel.Assets, version, true)
	if !ok {
		return "", ErrNoAsset
	}
	name := filepath.Base(asset.Name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("%s_%s.bin", appDirName, version)
	}

	dir, err := u.updatesDir()
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, name)
	if err := u.fetch(ctx, asset.BrowserDownloadURL, out); err != nil {
		return "", err
	}
	u.log.Info().Str("asset", name).Str("path", out).Msg("update downloaded")
	return out, nil
}

func (u *Updater) fetch(ctx context.Context, rawURL, out string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := u.dl.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("download asset: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmpName, out); err != nil {
		return fmt.Errorf("move asset: %w", err)
	}
	return nil
}

func (u *Updater) getJSON(ctx context.Context, path string, dest any) (int, error) {
	reqURL := u.apiBase.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.api.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("github %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func (u *Updater) updatesDir() (string, error) {
	dir := u.dir
	if dir == "" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			base = home
		}
		dir = filepath.Join(base, appDirName, "updates")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create updates dir: %w", err)
	}
	return dir, nil
}

// Launch starts a downloaded installer silently, or opens the folder holding
// a downloaded archive. It does not wait for the process.
func Launch(path string) error {
	cmd := launchCommand(path, runtime.GOOS)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch installer: %w", err)
	}
	return cmd.Process.Release()
}

func launchCommand(path, goos string) *exec.Cmd {
	if strings.HasSuffix(strings.ToLower(path), ".exe") {
		return exec.Command(path, "/SILENT", "/NORESTART")
	}
	folder := filepath.Dir(path)
	switch goos {
	case "windows":
		return exec.Command("explorer", folder)
	case "darwin":
		return exec.Command("open", folder)
	default:
		return exec.Command("xdg-open", folder)
	}
}
