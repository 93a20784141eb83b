package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pm-go/internal/config"
)

func TestGetDefaults(t *testing.T) {
	homeDir, _ := os.UserHomeDir()

	tests := []struct {
		name       string
		env        map[string]string
		wantConfig string
		wantBase   string
	}{
		{
			name: "pm env vars win",
			env: map[string]string{
				EnvConfigPath: "/custom/config.toml", EnvHome: "/custom/pm",
				"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data",
			},
			wantConfig: "/custom/config.toml",
			wantBase:   "/custom/pm",
		},
		{
			name:       "xdg dirs",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			wantConfig: "/xdg/config/pm.toml",
			wantBase:   "/xdg/data/pm",
		},
		{
			name:       "home dir fallback",
			wantConfig: filepath.Join(homeDir, ".config", "pm.toml"),
			wantBase:   filepath.Join(homeDir, ".local", "share", "pm"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{EnvConfigPath, EnvHome, "XDG_CONFIG_HOME", "XDG_DATA_HOME"} {
				t.Setenv(k, tt.env[k])
			}

			d, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}

			want := Defaults{
				ConfigPath: tt.wantConfig,
				BaseDir:    tt.wantBase,
				LogDir:     filepath.Join(tt.wantBase, "log"),
				StoreDir:   filepath.Join(tt.wantBase, "store"),
				DataDir:    filepath.Join(tt.wantBase, "db"),
			}
			if *d != want {
				t.Errorf("GetDefaults() = %+v, want %+v", *d, want)
			}
		})
	}
}

func newTestDefaults(t *testing.T) *Defaults {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "pm.toml"))
	t.Setenv(EnvHome, filepath.Join(dir, "data"))

	d, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults() error = %v", err)
	}
	return d
}

func TestDefaults_NewConfig(t *testing.T) {
	d := newTestDefaults(t)
	cfg := d.NewConfig()

	if cfg.BaseDir != d.BaseDir || cfg.LogDir != d.LogDir {
		t.Errorf("dirs = %q, %q, want %q, %q", cfg.BaseDir, cfg.LogDir, d.BaseDir, d.LogDir)
	}
	if cfg.Store.Type != "filesystem" || cfg.Store.FSRoot != d.StoreDir {
		t.Errorf("store = %+v, want filesystem at %q", cfg.Store, d.StoreDir)
	}
	if cfg.Database.Type != "sqlite" || cfg.Database.DataDir != d.DataDir {
		t.Errorf("database = %+v, want sqlite in %q", cfg.Database, d.DataDir)
	}
	if cfg.Export.Type != "age" {
		t.Errorf("export type = %q, want age", cfg.Export.Type)
	}
}

func TestDefaults_LoadConfig(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		d := newTestDefaults(t)
		if _, err := d.LoadConfig(); !errors.Is(err, ErrNoConfig) {
			t.Errorf("LoadConfig() error = %v, want ErrNoConfig", err)
		}
	})

	t.Run("written by init", func(t *testing.T) {
		d := newTestDefaults(t)
		want := d.NewConfig()
		want.Session.IdleTimeoutMinutes = 5
		if err := config.Init(d.ConfigPath, want); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := d.LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if *got != *want {
			t.Errorf("LoadConfig() = %+v, want %+v", *got, *want)
		}
	})

	t.Run("partial file", func(t *testing.T) {
		d := newTestDefaults(t)
		content := "[store]\ntype = \"sqlite\"\n\n[session]\nlockout_threshold = 3\n"
		if err := os.WriteFile(d.ConfigPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		got, err := d.LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		want := d.NewConfig()
		want.Store = config.StoreConfig{Type: "sqlite"}
		want.Session.LockoutThreshold = 3
		if *got != *want {
			t.Errorf("LoadConfig() = %+v, want %+v", *got, *want)
		}
	})
}
