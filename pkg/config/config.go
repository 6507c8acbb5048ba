// Package config loads and saves the scanhub configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/user/scanhub/pkg/engine"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "SCANHUB_CONFIG"

type ProviderConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`
}

type AIConfig struct {
	SelectedProvider string                    `yaml:"selected_provider"`
	SelectedModel    string                    `yaml:"selected_model"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or memory
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type ToolConfig struct {
	Binary string `yaml:"binary"`
	Rules  string `yaml:"rules,omitempty"`
}

type ScannersConfig struct {
	Semgrep      ToolConfig    `yaml:"semgrep"`
	Trivy        ToolConfig    `yaml:"trivy"`
	Gitleaks     ToolConfig    `yaml:"gitleaks"`
	Timeout      time.Duration `yaml:"timeout"`
	ImageTimeout time.Duration `yaml:"image_timeout"`
}

type AlertsConfig struct {
	DiscordWebhook string        `yaml:"discord_webhook"`
	SlackWebhook   string        `yaml:"slack_webhook"`
	Console        bool          `yaml:"console"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type Config struct {
	Workers  int            `yaml:"workers"`
	Database DatabaseConfig `yaml:"database"`
	Scanners ScannersConfig `yaml:"scanners"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Workers: 2,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(configDir(), "scanhub.db"),
		},
		Scanners: ScannersConfig{
			Semgrep:      ToolConfig{Binary: "semgrep", Rules: "auto"},
			Trivy:        ToolConfig{Binary: "trivy"},
			Gitleaks:     ToolConfig{Binary: "gitleaks"},
			Timeout:      300 * time.Second,
			ImageTimeout: 600 * time.Second,
		},
		Alerts: AlertsConfig{
			Console: true,
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{Port: 8001},
		Log:    LogConfig{Level: "info", Format: "text"},
		AI: AIConfig{
			SelectedProvider: "gemini",
			SelectedModel:    "gemini-pro",
			Providers:        make(map[string]ProviderConfig),
		},
	}
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scanhub"
	}
	return filepath.Join(home, ".scanhub")
}

// GetConfigPath returns the config file path, creating its directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfig reads the config file, returning defaults when it does not exist.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a YAML file, or a JSON/JSONC file when the extension says so.
// Keys missing from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Use hujson to standardize the JSON (remove comments, trailing commas)
		data, err = hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// Standard JSON is valid YAML, so one decoder serves both formats.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.AI.Providers == nil {
		cfg.AI.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

// SaveConfig writes the config to the default location.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg as YAML.
func SaveFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys, webhook tokens)
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overlays environment variables on top of the file values.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SCANHUB_DISCORD_WEBHOOK"); v != "" {
		c.Alerts.DiscordWebhook = v
	}
	if v := getenv("SCANHUB_SLACK_WEBHOOK"); v != "" {
		c.Alerts.SlackWebhook = v
	}
	if v := getenv("SCANHUB_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("SCANHUB_DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	// Fallback to env var for Gemini if not in config
	if c.GetAPIKey("gemini") == "" {
		if v := getenv("GOOGLE_API_KEY"); v != "" {
			c.SetAPIKey("gemini", v)
		}
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", engine.ErrConfiguration, c.Workers)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", engine.ErrConfiguration, c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("%w: postgres requires a dsn", engine.ErrConfiguration)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unsupported log format %q", engine.ErrConfiguration, c.Log.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", engine.ErrConfiguration, c.Server.Port)
	}
	return nil
}

func (c *Config) SetAPIKey(provider, key string) {
	if c.AI.Providers == nil {
		c.AI.Providers = make(map[string]ProviderConfig)
	}
	p := c.AI.Providers[provider]
	p.APIKey = key
	c.AI.Providers[provider] = p
}

func (c *Config) GetAPIKey(provider string) string {
	return c.AI.Providers[provider].APIKey
}

// Redacted returns a copy safe to print: keys and webhook URLs are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.AI.Providers = make(map[string]ProviderConfig, len(c.AI.Providers))
	for name, p := range c.AI.Providers {
		out.AI.Providers[name] = ProviderConfig{APIKey: mask(p.APIKey)}
	}
	out.Alerts.DiscordWebhook = mask(c.Alerts.DiscordWebhook)
	out.Alerts.SlackWebhook = mask(c.Alerts.SlackWebhook)
	if c.Database.Driver == "postgres" {
		out.Database.DSN = mask(c.Database.DSN)
	}
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:8] + "****"
}
