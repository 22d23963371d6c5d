package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/faize-ai/guestdir/internal/guestpath"
)

// Configuration keys. These are also the names accepted in the config file.
const (
	KeyHostname      = "vcenter_hostname"
	KeyUsername      = "vcenter_username"
	KeyPassword      = "vcenter_password"
	KeyValidateCerts = "vcenter_validate_certs"
	KeyRestLogFile   = "vcenter_rest_log_file"
	KeySessionCache  = "session_cache"
	KeyTimeout       = "timeout"
	KeyProtected     = "protected_paths"

	KeyGuestType        = "guest.type"
	KeyGuestUserName    = "guest.user_name"
	KeyGuestPassword    = "guest.password"
	KeyGuestSAMLToken   = "guest.saml_token"
	KeyGuestInteractive = "guest.interactive_session"
)

// EnvFallbacks maps each connection key to the environment variable consulted
// when the key is not given explicitly.
var EnvFallbacks = map[string]string{
	KeyHostname:      "VMWARE_HOST",
	KeyUsername:      "VMWARE_USER",
	KeyPassword:      "VMWARE_PASSWORD",
	KeyValidateCerts: "VMWARE_VALIDATE_CERTS",
	KeyRestLogFile:   "VMWARE_REST_LOG_FILE",
}

// ConfigurationError reports a mandatory connection parameter that resolved
// to an empty value.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s cannot be empty", e.Field)
}

// Config represents the guestdir CLI configuration
type Config struct {
	Hostname      string `mapstructure:"vcenter_hostname"`
	Username      string `mapstructure:"vcenter_username"`
	Password      string `mapstructure:"vcenter_password"`
	ValidateCerts bool   `mapstructure:"vcenter_validate_certs"`
	RestLogFile   string `mapstructure:"vcenter_rest_log_file"`
	SessionCache  *bool  `mapstructure:"session_cache"`
	Timeout       string `mapstructure:"timeout"`
	Guest         Guest  `mapstructure:"guest"`
	// Guest paths rmdir and mv refuse to touch unless forced
	ProtectedPaths []string `mapstructure:"protected_paths"`
}

// Guest holds default guest OS credentials
type Guest struct {
	Type               string `mapstructure:"type"`
	UserName           string `mapstructure:"user_name"`
	Password           string `mapstructure:"password"`
	SAMLToken          string `mapstructure:"saml_token"`
	InteractiveSession bool   `mapstructure:"interactive_session"`
}

// Connection is the management-plane connection resolved from Config
type Connection struct {
	Hostname      string
	Username      string
	Password      string
	ValidateCerts bool
	RestLogFile   string
	Timeout       time.Duration
}

// ShouldCacheSession returns whether API session tokens are cached on disk.
// Defaults to true when not explicitly set.
func (c *Config) ShouldCacheSession() bool {
	if c.SessionCache == nil {
		return true
	}
	return *c.SessionCache
}

// Connection validates the mandatory parameters and returns the connection
// settings. No network activity happens here.
func (c *Config) Connection() (*Connection, error) {
	if c.Hostname == "" {
		return nil, &ConfigurationError{Field: KeyHostname}
	}
	if c.Username == "" {
		return nil, &ConfigurationError{Field: KeyUsername}
	}
	if c.Password == "" {
		return nil, &ConfigurationError{Field: KeyPassword}
	}

	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", KeyTimeout, c.Timeout, err)
	}

	return &Connection{
		Hostname:      c.Hostname,
		Username:      c.Username,
		Password:      c.Password,
		ValidateCerts: c.ValidateCerts,
		RestLogFile:   c.RestLogFile,
		Timeout:       timeout,
	}, nil
}

// New returns a viper instance with defaults and environment fallbacks
// registered. Explicit flags bound later take precedence over both.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, env := range EnvFallbacks {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads the optional config file and resolves the configuration.
// cfgFile overrides the default ~/.guestdir/config.yaml.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	// Try to read config file, but don't fail if it doesn't exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.RestLogFile != "" {
		expanded, err := homedir.Expand(cfg.RestLogFile)
		if err == nil {
			cfg.RestLogFile = expanded
		}
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHostname, "")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyValidateCerts, true)
	v.SetDefault(KeyRestLogFile, "")
	v.SetDefault(KeySessionCache, true)
	v.SetDefault(KeyTimeout, "60s")
	v.SetDefault(KeyProtected, guestpath.DefaultProtected)

	v.SetDefault(KeyGuestType, "USERNAME_PASSWORD")
	v.SetDefault(KeyGuestUserName, "")
	v.SetDefault(KeyGuestPassword, "")
	v.SetDefault(KeyGuestSAMLToken, "")
	v.SetDefault(KeyGuestInteractive, false)
}

// ConfigDir returns the guestdir configuration directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".guestdir"), nil
}
