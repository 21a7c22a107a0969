package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anchor-mcp/anchor/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys for the tunables this tool reads from config or environment.
const (
	KeyNPMRegistryURL   = "registry.npm_url"
	KeyPulseRegistryURL = "registry.pulse_url"
	KeySearchCacheTTL   = "search.cache_ttl"
	KeyHealMaxAttempts  = "heal.max_attempts"
	KeyProbeTimeout     = "probe.timeout"
	KeyHostConfigPath   = "hostconfig.path"
)

// Defaults applied when a key is absent from both config file and environment.
const (
	DefaultNPMRegistryURL   = "https://registry.npmjs.org"
	DefaultPulseRegistryURL = "https://api.pulsemcp.com"
	DefaultSearchCacheTTL   = 5 * time.Minute
	DefaultHealMaxAttempts  = 3
	DefaultProbeTimeout     = 15 * time.Second
	DefaultHostConfigPath   = ".mcp.json"
)

// Dir returns the path to the config directory (~/.anchor/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.anchor/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyNPMRegistryURL, DefaultNPMRegistryURL)
	viper.SetDefault(KeyPulseRegistryURL, DefaultPulseRegistryURL)
	viper.SetDefault(KeySearchCacheTTL, DefaultSearchCacheTTL)
	viper.SetDefault(KeyHealMaxAttempts, DefaultHealMaxAttempts)
	viper.SetDefault(KeyProbeTimeout, DefaultProbeTimeout)
	viper.SetDefault(KeyHostConfigPath, DefaultHostConfigPath)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// GetDuration returns a duration-valued config key.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetInt returns an integer-valued config key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
