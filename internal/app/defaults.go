package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pm-go/internal/config"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "PM_CONFIG_PATH"
	EnvHome       = "PM_HOME"
)

// ErrNoConfig is returned by LoadConfig when the config file does not exist.
var ErrNoConfig = errors.New("no config file, run `pm config init` first")

// Defaults are the locations pm uses when the config does not name one.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
	StoreDir   string // filesystem blob store root
	DataDir    string // directory of pm.db
}

// GetDefaults resolves the default locations:
//   - config file: $PM_CONFIG_PATH, else $XDG_CONFIG_HOME/pm.toml, else ~/.config/pm.toml
//   - data: $PM_HOME, else $XDG_DATA_HOME/pm, else ~/.local/share/pm
//
// Logs, the filesystem store and the database live under the data directory.
func GetDefaults() (*Defaults, error) {
	configPath, err := resolvePath(EnvConfigPath, "XDG_CONFIG_HOME", "pm.toml", ".config")
	if err != nil {
		return nil, err
	}
	baseDir, err := resolvePath(EnvHome, "XDG_DATA_HOME", "pm", ".local", "share")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		StoreDir:   filepath.Join(baseDir, "store"),
		DataDir:    filepath.Join(baseDir, "db"),
	}, nil
}

// resolvePath returns $override when set, else $xdg/name, else
// ~/<homeParts...>/name.
func resolvePath(override, xdg, name string, homeParts ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdg); dir != "" {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, homeParts...), name)...), nil
}

// NewConfig returns the configuration `pm config init` writes.
func (d *Defaults) NewConfig() *config.Config {
	cfg := config.NewConfig(d.BaseDir)
	cfg.LogDir = d.LogDir
	cfg.Store.FSRoot = d.StoreDir
	cfg.Database.DataDir = d.DataDir
	return cfg
}

// LoadConfig reads the config file and fills whatever it leaves out from d,
// so a file holding only a [store] section is enough.
func (d *Defaults) LoadConfig() (*config.Config, error) {
	cfg, err := config.ReadFromFile(d.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (looked for %s)", ErrNoConfig, d.ConfigPath)
	}
	if err != nil {
		return nil, err
	}

	def := d.NewConfig()
	if cfg.BaseDir == "" {
		cfg.BaseDir = def.BaseDir
	}
	if cfg.LogDir == "" {
		cfg.LogDir = def.LogDir
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Type == "filesystem" && cfg.Store.FSRoot == "" {
		cfg.Store.FSRoot = def.Store.FSRoot
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = def.Database.Type
	}
	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = def.Database.DataDir
	}
	if cfg.Session.IdleTimeoutMinutes <= 0 {
		cfg.Session.IdleTimeoutMinutes = def.Session.IdleTimeoutMinutes
	}
	if cfg.Session.LockoutThreshold <= 0 {
		cfg.Session.LockoutThreshold = def.Session.LockoutThreshold
	}
	if cfg.Session.LockoutWindowMinutes <= 0 {
		cfg.Session.LockoutWindowMinutes = def.Session.LockoutWindowMinutes
	}
	if cfg.Export.Type == "" {
		cfg.Export.Type = def.Export.Type
	}
	return cfg, nil
}
