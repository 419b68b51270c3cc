// Package config layers sterling's runtime configuration the way the
// teacher's internal/config package layers bd's: a viper singleton reads
// sterling.yaml (and STERLING_-prefixed environment variables) for
// everything except the handful of bootstrap-only keys that must be
// readable before the singleton exists (see bootstrap.go).
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration surface: storage backend
// selection, daemon socket path, default governance mode, and default
// packet budgets (spec.md §5's "Defaults set by config, overridable per
// call").
type Config struct {
	StorageBackend string `mapstructure:"storage_backend"` // "memory" or "sql"
	SQLDSN         string `mapstructure:"sql_dsn"`
	Socket         string `mapstructure:"socket"`
	DataDir        string `mapstructure:"data_dir"`
	StrictDefault  bool   `mapstructure:"strict_default"`

	DefaultMaxClaims         int `mapstructure:"default_max_claims"`
	DefaultMaxOpsFetched     int `mapstructure:"default_max_ops_fetched"`
	DefaultMaxAssemblyTimeMs int `mapstructure:"default_max_assembly_time_ms"`
}

var (
	mu sync.Mutex
	v  *viper.Viper
)

// Defaults mirror the teacher's pattern of setting sane defaults on the
// viper instance before any config file is read.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("socket", "/tmp/sterlingd.sock")
	v.SetDefault("data_dir", ".sterling")
	v.SetDefault("strict_default", true)
	v.SetDefault("default_max_claims", 200)
	v.SetDefault("default_max_ops_fetched", 2000)
	v.SetDefault("default_max_assembly_time_ms", 5000)
}

// Load initializes the viper singleton from dir/sterling.yaml (or
// dir/sterling.toml, tried as a fallback the way the teacher's doctor
// tooling tries alternate config locations), applies
// STERLING_-prefixed environment overrides, and returns the decoded
// Config. Safe to call more than once; each call rebuilds the singleton
// from scratch so tests can Load a fresh temp dir.
func Load(dir string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	nv := viper.New()
	setDefaults(nv)
	nv.SetConfigName("sterling")
	nv.SetConfigType("yaml")
	nv.AddConfigPath(dir)
	nv.SetEnvPrefix("sterling")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config.Load: read sterling.yaml: %w", err)
		}
		if tcfg, tErr := loadTOMLFallback(dir); tErr == nil && tcfg != nil {
			for key, val := range tcfg {
				nv.SetDefault(key, val)
			}
		}
	}

	var cfg Config
	if err := nv.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}

	v = nv
	return &cfg, nil
}

// loadTOMLFallback reads dir/sterling.toml via BurntSushi/toml when no
// sterling.yaml is present, for operators who prefer TOML.
func loadTOMLFallback(dir string) (map[string]any, error) {
	path := dir + "/sterling.toml"
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Get returns a value from the initialized viper singleton, mirroring
// the teacher's package-level GetYamlConfig. Returns "" if Load has not
// been called yet.
func Get(key string) string {
	mu.Lock()
	defer mu.Unlock()
	if v == nil {
		return ""
	}
	return v.GetString(key)
}
