package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/onexay/revwalk/internal/storage"
)

// StorageBackend enumerates supported object stores.
type StorageBackend string

const (
	// StorageBackendMemory keeps objects in-process.
	StorageBackendMemory StorageBackend = "memory"
	// StorageBackendKeyDB persists objects to KeyDB/Redis.
	StorageBackendKeyDB StorageBackend = "keydb"
	// StorageBackendBolt persists objects to a local BoltDB file.
	StorageBackendBolt StorageBackend = "bolt"
	// StorageBackendGit reads an existing git repository.
	StorageBackendGit StorageBackend = "git"
)

// EnvPrefix prefixes environment overrides, e.g. REVWALK_STORAGE_BACKEND.
const EnvPrefix = "REVWALK"

// Config aggregates runtime configuration.
type Config struct {
	APIAddr string        `mapstructure:"api_addr"`
	Storage StorageConfig `mapstructure:"storage"`
	Walk    WalkConfig    `mapstructure:"walk"`
}

// StorageConfig contains backend selection and nested settings.
type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend"`
	KeyDB   storage.Config `mapstructure:"keydb"`
	Bolt    BoltConfig     `mapstructure:"bolt"`
	Git     GitConfig      `mapstructure:"git"`
}

// BoltConfig locates the Bolt object database.
type BoltConfig struct {
	Path string `mapstructure:"path"`
}

// GitConfig locates the git repository to read.
type GitConfig struct {
	Path string `mapstructure:"path"`
}

// WalkConfig holds defaults applied to every walk.
type WalkConfig struct {
	MaxEntries       int  `mapstructure:"max_entries"`
	RenameThreshold  int  `mapstructure:"rename_threshold"`
	FindCopiesHarder bool `mapstructure:"find_copies_harder"`
}

// SetDefaults registers the built-in defaults with viper.
func SetDefaults() {
	viper.SetDefault("api_addr", ":8080")
	viper.SetDefault("storage.backend", string(StorageBackendMemory))
	viper.SetDefault("storage.keydb.addr", "localhost:6379")
	viper.SetDefault("storage.keydb.username", "")
	viper.SetDefault("storage.keydb.password", "")
	viper.SetDefault("storage.keydb.database", 0)
	viper.SetDefault("storage.bolt.path", "data/objects.db")
	viper.SetDefault("storage.git.path", ".")
	viper.SetDefault("walk.max_entries", 0)
	viper.SetDefault("walk.rename_threshold", 60)
	viper.SetDefault("walk.find_copies_harder", false)
}

// BindEnv maps REVWALK_* environment variables onto config keys.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	SetDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Backend = StorageBackend(strings.ToLower(string(cfg.Storage.Backend)))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the config file at path, then behaves like Load.
func LoadFile(path string) (Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load()
}

// Validate checks values viper cannot type-check.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendMemory, StorageBackendKeyDB, StorageBackendBolt, StorageBackendGit:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Walk.RenameThreshold < 0 || c.Walk.RenameThreshold > 100 {
		return fmt.Errorf("walk.rename_threshold must be between 0 and 100, got %d", c.Walk.RenameThreshold)
	}
	if c.Walk.MaxEntries < 0 {
		return fmt.Errorf("walk.max_entries must not be negative, got %d", c.Walk.MaxEntries)
	}
	return nil
}
