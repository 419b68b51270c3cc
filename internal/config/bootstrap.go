package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapOnlyKeys mirrors the teacher's YamlOnlyKeys: settings that must
// be known before the viper singleton (and the thing it gates, here the
// daemon socket) can even be opened, so they are read straight off disk
// instead of through Load.
var BootstrapOnlyKeys = map[string]bool{
	"run_intent": true,
	"socket":     true,
	"data_dir":   true,
}

// IsBootstrapOnlyKey reports whether key must come from the bootstrap
// config file rather than the full viper-backed config.
func IsBootstrapOnlyKey(key string) bool {
	return BootstrapOnlyKeys[key]
}

// Bootstrap is the subset of sterling.yaml read directly, before the
// viper singleton exists. Grounded in the teacher's LocalConfig /
// LoadLocalConfig (internal/config/local_config.go): a small yaml.v3
// struct read off disk so the run intent and socket path are available
// even when nothing else in the process has initialized config yet.
type Bootstrap struct {
	RunIntent string `yaml:"run_intent"`
	Socket    string `yaml:"socket"`
	DataDir   string `yaml:"data_dir"`
}

// LoadBootstrap reads sterling.yaml from dir directly via yaml.v3,
// bypassing viper. Returns a zero-value Bootstrap (never nil) if the
// file is absent or unparsable, matching LoadLocalConfig's "never fail
// the caller over a missing bootstrap file" behavior.
func LoadBootstrap(dir string) *Bootstrap {
	path := filepath.Join(dir, "sterling.yaml")
	data, err := os.ReadFile(path) // #nosec G304 - dir is caller-controlled
	if err != nil {
		return &Bootstrap{}
	}
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return &Bootstrap{}
	}
	return &b
}

// LoadBootstrapWithEnv applies STERLING_RUN_INTENT / STERLING_SOCKET /
// STERLING_DATA_DIR overrides on top of the on-disk bootstrap file, the
// same override-precedence idiom as the teacher's
// LoadLocalConfigWithEnv/BEADS_SYNC_BRANCH.
func LoadBootstrapWithEnv(dir string) *Bootstrap {
	b := LoadBootstrap(dir)
	if v := os.Getenv("STERLING_RUN_INTENT"); v != "" {
		b.RunIntent = v
	}
	if v := os.Getenv("STERLING_SOCKET"); v != "" {
		b.Socket = v
	}
	if v := os.Getenv("STERLING_DATA_DIR"); v != "" {
		b.DataDir = v
	}
	return b
}
