package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	AppName         = "mailfetch"
	PasswordEnv     = "MAILFETCH_PASSWORD"
	DefaultIMAPPort = 993
	DefaultSecurity = "tls"
	DefaultMailbox  = "inbox"
	DefaultFilter   = "UnSeen"
	DefaultTimeout  = 30 * time.Second
)

var validSecurity = []string{"tls", "starttls", "insecure"}

type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Security           string        `yaml:"security"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	Username           string        `yaml:"username"`
	Timeout            time.Duration `yaml:"timeout"`
}

type DefaultsConfig struct {
	Mailbox     string `yaml:"mailbox"`
	Filter      string `yaml:"filter"`
	ReadOnly    bool   `yaml:"read_only"`
	DownloadDir string `yaml:"download_dir"`
	Timezone    string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     DefaultIMAPPort,
			Security: DefaultSecurity,
			Timeout:  DefaultTimeout,
		},
		Defaults: DefaultsConfig{
			Mailbox:  DefaultMailbox,
			Filter:   DefaultFilter,
			ReadOnly: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s - run 'mailfetch config init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks values that the YAML decoder cannot.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !isValidSecurity(c.Server.Security) {
		return fmt.Errorf("invalid server.security %q - use one of %s", c.Server.Security, strings.Join(validSecurity, ", "))
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func isValidSecurity(s string) bool {
	for _, v := range validSecurity {
		if s == v {
			return true
		}
	}
	return false
}

// DownloadDir is where attachments are saved: defaults.download_dir, or the
// OS temp directory when unset.
func (c *Config) DownloadDir() string {
	if c.Defaults.DownloadDir != "" {
		return c.Defaults.DownloadDir
	}
	return os.TempDir()
}

// Location is the zone message dates are shown in: defaults.timezone, or
// the local zone when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Defaults.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Defaults.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid defaults.timezone %q: %w", c.Defaults.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SetPassword(password string) error {
	if c.Server.Username == "" {
		return errors.New("username must be set before storing password")
	}
	return keyring.Set(AppName, c.Server.Username, password)
}

// GetPassword returns $MAILFETCH_PASSWORD when set, otherwise the password
// stored in the system keyring for the configured username.
func (c *Config) GetPassword() (string, error) {
	if password := os.Getenv(PasswordEnv); password != "" {
		return password, nil
	}
	if c.Server.Username == "" {
		return "", errors.New("username not configured")
	}
	password, err := keyring.Get(AppName, c.Server.Username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("password not found in keyring - run 'mailfetch config init' to set it")
		}
		return "", fmt.Errorf("failed to get password from keyring: %w", err)
	}
	return password, nil
}

// DeletePassword removes the keyring entry for username.
func DeletePassword(username string) error {
	if err := keyring.Delete(AppName, username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no password stored for %s: %w", username, err)
		}
		return fmt.Errorf("failed to remove password from keyring: %w", err)
	}
	return nil
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
