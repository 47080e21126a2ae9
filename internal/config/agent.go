// internal/config/agent.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AgentEndpointSync        = "sync"
	AgentEndpointUpdateStock = "update_stock"
)

// AgentConfig is the pharmacy-side agent configuration. It is read from a YAML
// file and then overridden by AGENT_* environment variables.
type AgentConfig struct {
	APIURL       string        `yaml:"api_url"`
	APIKey       string        `yaml:"api_key"`
	PharmacyID   uint          `yaml:"pharmacy_id"`
	Endpoint     string        `yaml:"endpoint"`
	SourcePath   string        `yaml:"source_path"`
	ScratchDir   string        `yaml:"scratch_dir"`
	Delimiter    string        `yaml:"delimiter"`
	PollInterval time.Duration `yaml:"poll_interval"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	LogLevel     string        `yaml:"log_level"`
}

func defaultAgentConfig() AgentConfig {
	return AgentConfig{
		APIURL:       "http://localhost:5000",
		Endpoint:     AgentEndpointSync,
		SourcePath:   "estoque.csv",
		ScratchDir:   os.TempDir(),
		PollInterval: 5 * time.Second,
		SettleDelay:  2 * time.Second,
		Timeout:      10 * time.Second,
		LogLevel:     "info",
	}
}

// LoadAgent reads the agent configuration. An empty path or a missing file
// leaves the defaults in place.
func LoadAgent(path string) (*AgentConfig, error) {
	godotenv.Load()

	cfg := defaultAgentConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse agent config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read agent config %s: %w", path, err)
		}
	}

	cfg.APIURL = getEnv("AGENT_API_URL", cfg.APIURL)
	cfg.APIKey = getEnv("AGENT_API_KEY", cfg.APIKey)
	cfg.PharmacyID = uint(getEnvAsInt("AGENT_PHARMACY_ID", int(cfg.PharmacyID)))
	cfg.Endpoint = getEnv("AGENT_ENDPOINT", cfg.Endpoint)
	cfg.SourcePath = getEnv("AGENT_SOURCE_PATH", cfg.SourcePath)
	cfg.ScratchDir = getEnv("AGENT_SCRATCH_DIR", cfg.ScratchDir)
	cfg.Delimiter = getEnv("AGENT_DELIMITER", cfg.Delimiter)
	cfg.PollInterval = getEnvAsDuration("AGENT_POLL_INTERVAL", cfg.PollInterval)
	cfg.SettleDelay = getEnvAsDuration("AGENT_SETTLE_DELAY", cfg.SettleDelay)
	cfg.Timeout = getEnvAsDuration("AGENT_TIMEOUT", cfg.Timeout)
	cfg.LogLevel = getEnv("AGENT_LOG_LEVEL", cfg.LogLevel)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &cfg, cfg.Validate()
}

func (c *AgentConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.SourcePath == "" {
		return errors.New("source_path is required")
	}

	switch c.Endpoint {
	case AgentEndpointSync:
		if c.APIKey == "" {
			return errors.New("api_key is required for the sync endpoint")
		}
	case AgentEndpointUpdateStock:
		if c.PharmacyID == 0 {
			return errors.New("pharmacy_id is required for the update_stock endpoint")
		}
	default:
		return fmt.Errorf("endpoint must be %q or %q, got %q", AgentEndpointSync, AgentEndpointUpdateStock, c.Endpoint)
	}

	if c.Delimiter != "" && len([]rune(c.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	return nil
}
