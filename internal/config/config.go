package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		PublicURL      string   `yaml:"publicURL"`
		MaxUploadMB    int64    `yaml:"maxUploadMB"`
		CORSOrigins    []string `yaml:"corsOrigins"`
		ShutdownTimeoutStr string   `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Storage struct {
		Driver string `yaml:"driver"` // local | minio
		Root   string `yaml:"root"`
	} `yaml:"storage"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Prefix     string `yaml:"prefix"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Redis struct {
		URL        string `yaml:"url"`
		PreviewTTL string `yaml:"previewTTL"`
	} `yaml:"redis"`

	AI struct {
		Provider string `yaml:"provider"` // openai | local | "" (disabled)
		APIKey   string `yaml:"apiKey"`
		BaseURL  string `yaml:"baseURL"`
		Model    string `yaml:"model"`
	} `yaml:"ai"`

	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the settings used when config.yaml leaves a field empty.
func Default() *Config {
	var c Config
	c.Server.Port = 8000
	c.Server.MaxUploadMB = 32
	c.Server.ShutdownTimeoutStr = "10s"
	c.Database.Driver = "memory"
	c.Storage.Driver = "local"
	c.Storage.Root = "media"
	c.Redis.PreviewTTL = "5m"
	c.Log.Level = "info"
	c.Log.Format = "json"
	return &c
}

// Load baca file config.yaml. A missing file is not an error; defaults and
// environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and deployment knobs from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("REDIS_URL", &c.Redis.URL)
	str("AI_PROVIDER", &c.AI.Provider)
	str("OPENAI_API_KEY", &c.AI.APIKey)
	str("OPENAI_BASE_URL", &c.AI.BaseURL)
	str("OPENAI_MODEL", &c.AI.Model)
	str("PUBLIC_URL", &c.Server.PublicURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	// API_KEYS="cli:abc,web:def"
	if v := getenv("API_KEYS"); v != "" {
		c.Auth.APIKeys = map[string]string{}
		for _, pair := range strings.Split(v, ",") {
			name, key, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if ok && name != "" && key != "" {
				c.Auth.APIKeys[name] = key
			}
		}
	}
}

// Validate checks driver names and durations.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q (mysql, postgres or memory)", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "local", "minio":
	default:
		return fmt.Errorf("unknown storage driver %q (local or minio)", c.Storage.Driver)
	}
	switch c.AI.Provider {
	case "", "openai", "local":
	default:
		return fmt.Errorf("unknown ai provider %q (openai, local or empty)", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.APIKey == "" {
		return fmt.Errorf("ai provider openai needs ai.apiKey or OPENAI_API_KEY")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.PreviewTTL(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) PreviewTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Redis.PreviewTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid redis.previewTTL: %w", err)
	}
	return d, nil
}

func (c *Config) ShutdownTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ShutdownTimeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid server.shutdownTimeout: %w", err)
	}
	return d, nil
}

// BaseURL is the public address used in file_url answers.
func (c *Config) BaseURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

// DSN returns database.dsn, or builds one for the driver from the parts.
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Driver == "postgres" {
		return c.PostgresDSN()
	}
	return c.MySQLDSN()
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
