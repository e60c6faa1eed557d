package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".sonnylabs"
	DefaultConfigFile = "config.yaml"
	DefaultPolicyFile = "policy.yaml"
	DefaultLogFile    = "audit.jsonl"

	DefaultBaseURL  = "https://sonnylabs-service.onrender.com/api"
	DefaultTimeout  = 5 * time.Second
	DefaultLogLevel = "INFO"
)

// Environment variables. They override values from the config file.
const (
	EnvAPIToken   = "SONNYLABS_API_TOKEN"
	EnvBaseURL    = "SONNYLABS_BASE_URL"
	EnvAnalysisID = "SONNYLABS_ANALYSIS_ID"
	EnvTimeout    = "SONNYLABS_TIMEOUT"
	EnvLogLevel   = "SONNYLABS_LOG_LEVEL"
	EnvPolicy     = "SONNYLABS_POLICY"
	EnvAuditLog   = "SONNYLABS_AUDIT_LOG"
)

var (
	ErrMissingToken      = errors.New("config: API token is not set (" + EnvAPIToken + ")")
	ErrMissingAnalysisID = errors.New("config: analysis ID is not set (" + EnvAnalysisID + ")")
)

type Config struct {
	APIToken   string        `yaml:"api_token"`
	BaseURL    string        `yaml:"base_url"`
	AnalysisID string        `yaml:"analysis_id"`
	Timeout    time.Duration `yaml:"timeout"`
	LogLevel   string        `yaml:"log_level"`
	PolicyPath string        `yaml:"policy"`
	AuditLog   string        `yaml:"audit_log"`

	ConfigDir string `yaml:"-"`
}

// Default returns a Config rooted at ~/.sonnylabs with every default set.
func Default() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	configDir := filepath.Join(homeDir, DefaultConfigDir)

	return &Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		LogLevel:   DefaultLogLevel,
		PolicyPath: filepath.Join(configDir, DefaultPolicyFile),
		ConfigDir:  configDir,
	}, nil
}

// Load builds the configuration from defaults, the YAML file at path (or
// ~/.sonnylabs/config.yaml when path is empty), and environment variables,
// in that order of increasing priority. A missing default file is not an
// error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.ConfigDir, DefaultConfigFile)
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.APIToken, EnvAPIToken)
	setString(&c.BaseURL, EnvBaseURL)
	setString(&c.AnalysisID, EnvAnalysisID)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.PolicyPath, EnvPolicy)
	setString(&c.AuditLog, EnvAuditLog)

	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// parseTimeout accepts a Go duration ("750ms") or a number of seconds ("5").
func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	var secs float64
	if _, err := fmt.Sscanf(v, "%g", &secs); err != nil {
		return 0, fmt.Errorf("invalid timeout %q", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Validate reports the first missing credential.
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return ErrMissingToken
	}
	if c.AnalysisID == "" {
		return ErrMissingAnalysisID
	}
	return nil
}

// EnsureDir creates the config directory, used before opening the default
// audit log.
func (c *Config) EnsureDir() error {
	return ensureDir(c.ConfigDir)
}

// AuditLogPath returns the configured audit log, falling back to
// ~/.sonnylabs/audit.jsonl.
func (c *Config) AuditLogPath() string {
	if c.AuditLog != "" {
		return c.AuditLog
	}
	return filepath.Join(c.ConfigDir, DefaultLogFile)
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
