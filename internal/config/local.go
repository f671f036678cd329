package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig holds settings for the solvehelper CLI
type LocalConfig struct {
	Server   ServerEndpoint `yaml:"server"`
	Handle   string         `yaml:"handle,omitempty"`
	Practice PracticeConfig `yaml:"practice"`
	MCP      MCPConfig      `yaml:"mcp"`
	Token    string         `yaml:"-"` // loaded from secrets.yaml
}

// ServerEndpoint points the CLI at a running API daemon
type ServerEndpoint struct {
	URL string `yaml:"url"`
}

// PracticeConfig holds local practice timer defaults
type PracticeConfig struct {
	DefaultMinutes int       `yaml:"default_minutes"`
	Thresholds     []float64 `yaml:"hint_thresholds"`
	DBPath         string    `yaml:"db_path,omitempty"`
}

// MCPConfig holds settings for the stdio MCP server
type MCPConfig struct {
	UserEmail string `yaml:"user_email,omitempty"`
}

// SecretsConfig holds credentials kept out of config.yaml
type SecretsConfig struct {
	Token string `yaml:"token,omitempty"`
}

// HomeDir returns the path to ~/.solvehelper
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".solvehelper"), nil
}

// EnsureHomeDir creates ~/.solvehelper and its subdirectories
func EnsureHomeDir() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}

	for _, sub := range []string{"", "logs", "cache"} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}
	return dir, nil
}

// DefaultLocalConfig returns CLI defaults
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Server: ServerEndpoint{URL: "http://127.0.0.1:8080"},
		Practice: PracticeConfig{
			DefaultMinutes: 40,
			Thresholds:     []float64{0.25, 0.5, 0.75},
		},
	}
}

// PracticeDBPath resolves the local SQLite path for practice timers.
func (c *LocalConfig) PracticeDBPath(dir string) string {
	if c.Practice.DBPath != "" {
		return c.Practice.DBPath
	}
	return filepath.Join(dir, "practice.db")
}

// LoadLocalConfig loads ~/.solvehelper/config.yaml and secrets.yaml,
// returning defaults when they are missing.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return loadLocalConfigFrom(dir)
}

func loadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	return cfg, nil
}

func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	cfg.Token = secrets.Token
	return nil
}

// SaveLocalConfig writes config.yaml and, when a token is set, secrets.yaml.
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureHomeDir()
	if err != nil {
		return err
	}
	return saveLocalConfigTo(dir, cfg)
}

func saveLocalConfigTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if cfg.Token == "" {
		return nil
	}

	secrets, err := yaml.Marshal(SecretsConfig{Token: cfg.Token})
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	// owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), secrets, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
