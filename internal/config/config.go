package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SharedDirName is the per-project directory that holds everything the
// personas share: the session document, response archive, broker socket and
// configuration.
const SharedDirName = ".personamux"

type Config struct {
	RootPath     string
	SharedDir    string
	SessionFile  string
	ResponsesDir string
	SocketPath   string
	PidPath      string
	LogPath      string

	TmuxSession string
	Mouse       bool

	BackendCommand   string
	BackendConfigDir string
	SessionMarker    string

	DispatchTimeout time.Duration
	PollInterval    time.Duration
	LockTimeout     time.Duration
	StaleAfter      time.Duration
	HistoryLimit    int
}

// Load resolves configuration for the project rooted at rootPath, falling
// back to the working directory. Values come from
// <root>/.personamux/config.toml, overridable via PERSONAMUX_* environment
// variables.
func Load(rootPath string) (Config, error) {
	if rootPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("resolve working directory: %w", err)
		}
		rootPath = wd
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return Config{}, fmt.Errorf("resolve project root: %w", err)
	}

	sharedDir := filepath.Join(absRoot, SharedDirName)

	v := viper.New()
	v.SetConfigFile(filepath.Join(sharedDir, "config.toml"))
	v.SetConfigType("toml")
	v.SetEnvPrefix("PERSONAMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tmux.session", "personamux")
	v.SetDefault("tmux.mouse", true)
	v.SetDefault("backend.command", "copilot")
	v.SetDefault("backend.config_dir", filepath.Join(sharedDir, "backend"))
	v.SetDefault("backend.dispatch_timeout", "120s")
	v.SetDefault("wait.poll_interval", "500ms")
	v.SetDefault("store.lock_timeout", "5s")
	v.SetDefault("status.stale_after", "30m")
	v.SetDefault("tmux.history_limit", 50000)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		RootPath:     absRoot,
		SharedDir:    sharedDir,
		SessionFile:  filepath.Join(sharedDir, "session.json"),
		ResponsesDir: filepath.Join(sharedDir, "responses"),
		SocketPath:   filepath.Join(sharedDir, "broker.sock"),
		PidPath:      filepath.Join(sharedDir, "broker.pid"),
		LogPath:      filepath.Join(sharedDir, "broker.log"),

		TmuxSession: v.GetString("tmux.session"),
		Mouse:       v.GetBool("tmux.mouse"),

		BackendCommand:   v.GetString("backend.command"),
		BackendConfigDir: v.GetString("backend.config_dir"),
		SessionMarker:    filepath.Join(sharedDir, "backend.session"),

		DispatchTimeout: v.GetDuration("backend.dispatch_timeout"),
		PollInterval:    v.GetDuration("wait.poll_interval"),
		LockTimeout:     v.GetDuration("store.lock_timeout"),
		StaleAfter:      v.GetDuration("status.stale_after"),
		HistoryLimit:    v.GetInt("tmux.history_limit"),
	}

	if cfg.TmuxSession == "" {
		return Config{}, errors.New("tmux.session must not be empty")
	}
	if cfg.BackendCommand == "" {
		return Config{}, errors.New("backend.command must not be empty")
	}

	return cfg, nil
}
