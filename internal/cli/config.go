package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the CLI configuration. Precedence: flags > DATALENS_* env >
// config file > defaults.
type Config struct {
	Server           string `mapstructure:"server"`
	APIKey           string `mapstructure:"api_key"`
	TimeoutSec       int    `mapstructure:"timeout_sec"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts"`
	RetryBaseDelayMs int    `mapstructure:"retry_base_delay_ms"`
	StateFile        string `mapstructure:"state_file"`
}

func (c Config) Timeout() time.Duration   { return time.Duration(c.TimeoutSec) * time.Second }
func (c Config) BaseDelay() time.Duration { return time.Duration(c.RetryBaseDelayMs) * time.Millisecond }

// homeDir is ~/.datalens.
func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datalens"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DATALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server", "http://127.0.0.1:8000")
	v.SetDefault("api_key", "")
	v.SetDefault("timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 300)
	v.SetDefault("state_file", "")
	return v
}

// loadConfig reads cfgFile, or ~/.datalens/config.yaml when it exists.
func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else if dir, err := homeDir(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// opsional
		_ = v.ReadInConfig()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.StateFile == "" {
		dir, err := homeDir()
		if err != nil {
			return Config{}, err
		}
		c.StateFile = filepath.Join(dir, "state.yaml")
	}
	return c, nil
}
