package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"APIAddr", cfg.APIAddr, ":8080"},
		{"Backend", cfg.Storage.Backend, StorageBackendMemory},
		{"KeyDBAddr", cfg.Storage.KeyDB.Addr, "localhost:6379"},
		{"BoltPath", cfg.Storage.Bolt.Path, "data/objects.db"},
		{"GitPath", cfg.Storage.Git.Path, "."},
		{"MaxEntries", cfg.Walk.MaxEntries, 0},
		{"RenameThreshold", cfg.Walk.RenameThreshold, 60},
		{"FindCopiesHarder", cfg.Walk.FindCopiesHarder, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "backend",
			envKey: "REVWALK_STORAGE_BACKEND",
			envVal: "Bolt",
			field:  func(c Config) any { return c.Storage.Backend },
			want:   StorageBackendBolt,
		},
		{
			name:   "keydb database",
			envKey: "REVWALK_STORAGE_KEYDB_DATABASE",
			envVal: "3",
			field:  func(c Config) any { return c.Storage.KeyDB.Database },
			want:   3,
		},
		{
			name:   "max entries",
			envKey: "REVWALK_WALK_MAX_ENTRIES",
			envVal: "25",
			field:  func(c Config) any { return c.Walk.MaxEntries },
			want:   25,
		},
		{
			name:   "find copies harder",
			envKey: "REVWALK_WALK_FIND_COPIES_HARDER",
			envVal: "true",
			field:  func(c Config) any { return c.Walk.FindCopiesHarder },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			BindEnv()
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			if got := tt.field(cfg); got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	viper.Reset()

	path := filepath.Join(t.TempDir(), "revwalk.toml")
	data := []byte(`
api_addr = ":9090"

[storage]
backend = "git"

[storage.git]
path = "/srv/repo"

[walk]
rename_threshold = 80
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.APIAddr != ":9090" || cfg.Storage.Backend != StorageBackendGit || cfg.Storage.Git.Path != "/srv/repo" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Walk.RenameThreshold != 80 {
		t.Fatalf("expected rename threshold 80, got %d", cfg.Walk.RenameThreshold)
	}
	if cfg.Storage.Bolt.Path != "data/objects.db" {
		t.Fatalf("expected default bolt path to survive, got %q", cfg.Storage.Bolt.Path)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"storage.backend", "postgres"},
		{"walk.rename_threshold", 101},
		{"walk.max_entries", -1},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			viper.Reset()
			viper.Set(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%v", tt.key, tt.value)
			}
		})
	}
}
