package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fadea/fadeclient/internal/config"
	"github.com/fadea/fadeclient/internal/credstore"
	"github.com/fadea/fadeclient/internal/fadeapi"
	"github.com/fadea/fadeclient/internal/logging"
	"github.com/fadea/fadeclient/internal/prefs"
	"github.com/fadea/fadeclient/internal/records"
	"github.com/fadea/fadeclient/internal/session"
	"github.com/fadea/fadeclient/internal/task"
	"github.com/fadea/fadeclient/internal/ui"
	"github.com/fadea/fadeclient/internal/updater"
)

const poolSize = 4

// ErrNoUser is returned by headless commands when no username is known.
var ErrNoUser = errors.New("no username: pass -user or log in once with remember enabled")

// Options configure the client application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/fadeapi/prefs.toml
	Username   string // overrides the remembered username
	Version    string

	// Store overrides the OS keyring.
	Store credstore.Store
	// LogConsole sends logs to stderr in console format instead of the log file.
	LogConsole bool
}

// Env holds the wired dependencies shared by the TUI and headless commands.
type Env struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Store     credstore.Store
	Pool      *task.Pool
	Updater   *updater.Updater
	Version   string
	Username  string

	closeLog func() error
}

// Setup loads configuration and preferences, initializes logging and builds
// the shared dependencies. Callers must Close the returned Env.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	logCfg := logging.Config{Level: cfg.LogLevel, File: cfg.LogFile}
	if opts.LogConsole {
		logCfg = logging.Config{Level: cfg.LogLevel, Format: "console", Output: stderr}
	}
	closeLog, err := logging.Init(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	store := opts.Store
	if store == nil {
		store = credstore.NewKeyring()
	}

	up, err := updater.New(updater.Options{
		Repo:   cfg.ReleaseRepo,
		Logger: logging.WithComponent("updater"),
	})
	if err != nil {
		log := logging.WithComponent("app")
		log.Warn().Err(err).Msg("updates disabled")
		up = nil
	}

	username := strings.TrimSpace(opts.Username)
	if username == "" && userPrefs.Remember {
		username = userPrefs.LastUsername
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return &Env{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
		Store:     store,
		Pool:      task.NewPool(poolSize, logging.WithComponent("task")),
		Updater:   up,
		Version:   opts.Version,
		Username:  username,
		closeLog:  closeLog,
	}, nil
}

// Close waits for background tasks and closes the log file.
func (e *Env) Close() error {
	e.Pool.Wait()
	if e.closeLog == nil {
		return nil
	}
	return e.closeLog()
}

// Connect builds a client for username, loading any stored tokens, and a
// session with an empty cache.
func (e *Env) Connect(username string) (*fadeapi.Client, *session.Session, error) {
	log := logging.WithComponent("fadeapi")
	client, err := fadeapi.NewClient(fadeapi.Options{
		BaseURL:   e.Config.BaseURL,
		Username:  username,
		Store:     e.Store,
		Timeout:   e.Config.RequestTimeout,
		Logger:    &log,
		UserAgent: "fadeclient/" + e.versionOrDev(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init fadeapi client: %w", err)
	}
	sess := session.New(client, &records.Cache{}, logging.WithComponent("session"))
	return client, sess, nil
}

// SyncQuery returns the default incremental query from the configuration.
func (e *Env) SyncQuery() session.SyncQuery {
	return session.SyncQuery{Limit: e.Config.PageLimit}
}

func (e *Env) versionOrDev() string {
	if strings.TrimSpace(e.Version) == "" {
		return "dev"
	}
	return e.Version
}

// Run boots the TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	log := logging.WithComponent("app")
	log.Info().Str("version", env.versionOrDev()).Str("base_url", env.Config.BaseURL).Msg("starting")

	return ui.Run(ui.Options{
		Context:     ctx,
		Connect:     env.Connect,
		AutoRefresh: env.autoRefresh(log),
		Pool:        env.Pool,
		Updater:     env.Updater,
		Prefs:       env.Prefs,
		PrefsPath:   env.PrefsPath,
		Username:    env.Username,
		LogFile:     env.Config.LogFile,
		PageLimit:   env.Config.PageLimit,
		Version:     env.versionOrDev(),
	})
}

func (e *Env) autoRefresh(log zerolog.Logger) func(context.Context, *session.Session) {
	if e.Config.AutoRefresh <= 0 {
		return nil
	}
	return func(ctx context.Context, s *session.Session) {
		StartPoller(ctx, s, e.Config.AutoRefresh, e.SyncQuery(), log.With().Str("loop", "poller").Logger())
	}
}
