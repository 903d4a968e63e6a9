package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and
// EXECGATE_-prefixed environment variable overrides. If configFile is
// empty, it searches standard locations for execgate.yaml/.yml.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("execgate")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EXECGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{".", filepath.Join(home, ".execgate"), "/etc/execgate"}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "execgate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func bindEnvKeys() {
	_ = viper.BindEnv("gate_mode")
	_ = viper.BindEnv("token_ttl")
	_ = viper.BindEnv("fingerprint_profile")
	_ = viper.BindEnv("strict_replay")
	_ = viper.BindEnv("policy_path")
	_ = viper.BindEnv("audit_dir")
	_ = viper.BindEnv("registry_backend")
	_ = viper.BindEnv("approval_backend")
	_ = viper.BindEnv("approval_db_path")
	_ = viper.BindEnv("approval_passphrase_hash")
	_ = viper.BindEnv("log_format")
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("metrics_enabled")
	_ = viper.BindEnv("workflow_id")
	_ = viper.BindEnv("run_id")
	_ = viper.BindEnv("repo_commit")
}

// Load reads the configuration file (if any), applies environment
// overrides and defaults, validates, and returns the GateConfig. A
// missing config file is not an error: the gate can run purely from
// environment variables and defaults, but never from an implicit allow
// policy — PolicyPath must resolve to an actual file for the gate to do
// anything but fail closed.
func Load() (*GateConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg GateConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file actually
// loaded, or empty string if none was found.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
