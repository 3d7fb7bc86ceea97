package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v2"
)

const (
	EnvLicenseKey = "MELISSA_LICENSE_KEY"
	EnvUserID     = "MELISSA_USER_ID"
	EnvTimeout    = "MELISSA_TIMEOUT"
	EnvBaseURL    = "MELISSA_BASE_URL"
	EnvLogLevel   = "MELISSA_LOG_LEVEL"
)

type Config struct {
	LicenseKey       string        `yaml:"licenseKey"`
	UserID           string        `yaml:"userId"`
	Timeout          string        `yaml:"timeout"`
	BaseURL          string        `yaml:"baseURL"`
	MaxResponseBytes int64         `yaml:"maxResponseBytes"`
	Logging          LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	Query        bool   `yaml:"query"`
	RequestBody  bool   `yaml:"requestBody"`
	ResponseBody bool   `yaml:"responseBody"`
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true, "none": true}

func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.UnmarshalStrict(data, &config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadEnvFile adds the variables of a dotenv file to the process
// environment. Variables that are already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields with the MELISSA_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLicenseKey); ok {
		c.LicenseKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvUserID); ok {
		c.UserID = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok {
		c.Timeout = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBaseURL); ok {
		c.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("maxResponseBytes must be >= 0 (got %d)", c.MaxResponseBytes)
	}
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if !logLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid logging level %q (expected debug, info, warn, error or none)", c.Logging.Level)
	}
	return nil
}

// TimeoutDuration parses Timeout. Plain integers are seconds; an empty value
// is 0 and lets the client pick its default.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	s := strings.TrimSpace(c.Timeout)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		s = strconv.Itoa(n) + "s"
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %v", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout)
	}
	return d, nil
}

func validateBaseURL(base string) error {
	if base == "" {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid baseURL %q: %v", base, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("invalid baseURL %q: scheme must be http or https", base)
	}
	if u.User != nil {
		return fmt.Errorf("invalid baseURL %q: userinfo not allowed", base)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("invalid baseURL %q: missing host", base)
	}
	return nil
}
