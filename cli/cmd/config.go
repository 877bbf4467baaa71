package cmd

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's saved state: where the server is and the session
// token from the last login. Host and User are remembered so run commands
// need not repeat them.
type Config struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	Host   string `yaml:"host,omitempty"`
	User   string `yaml:"user,omitempty"`
}

func configPath() string {
	if p := os.Getenv("BIFROST_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bifrost.yaml"
	}
	return filepath.Join(home, ".bifrost.yaml")
}

// LoadConfig never fails: a missing or unreadable file yields defaults.
func LoadConfig() *Config {
	cfg := &Config{Server: "http://localhost:8900"}
	data, err := os.ReadFile(configPath())
	if err != nil {
		return cfg
	}
	yaml.Unmarshal(data, cfg)
	if cfg.Server == "" {
		cfg.Server = "http://localhost:8900"
	}
	return cfg
}

func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0600)
}
