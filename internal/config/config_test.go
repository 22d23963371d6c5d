package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faize-ai/guestdir/internal/guestpath"
)

// writeConfig writes a config file into a temp dir and returns its path
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range EnvFallbacks {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(New(), writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Hostname)
	assert.True(t, cfg.ValidateCerts)
	assert.Equal(t, "60s", cfg.Timeout)
	assert.True(t, cfg.ShouldCacheSession())
	assert.Equal(t, "USERNAME_PASSWORD", cfg.Guest.Type)
	assert.Equal(t, guestpath.DefaultProtected, cfg.ProtectedPaths)
}

func TestLoadProtectedPaths(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(New(), writeConfig(t, `
protected_paths:
  - /data
  - /opt/app
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/data", "/opt/app"}, cfg.ProtectedPaths)
}

func TestLoadPrecedence(t *testing.T) {
	file := writeConfig(t, `
vcenter_hostname: file.example.com
vcenter_username: file-user
vcenter_password: file-pass
vcenter_validate_certs: true
session_cache: false
guest:
  user_name: root
  password: guestpass
`)

	t.Run("config file only", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(New(), file)
		require.NoError(t, err)
		assert.Equal(t, "file.example.com", cfg.Hostname)
		assert.Equal(t, "file-user", cfg.Username)
		assert.False(t, cfg.ShouldCacheSession())
		assert.Equal(t, "root", cfg.Guest.UserName)
		assert.Equal(t, "guestpass", cfg.Guest.Password)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VMWARE_HOST", "env.example.com")
		t.Setenv("VMWARE_VALIDATE_CERTS", "false")

		cfg, err := Load(New(), file)
		require.NoError(t, err)
		assert.Equal(t, "env.example.com", cfg.Hostname)
		assert.Equal(t, "file-user", cfg.Username)
		assert.False(t, cfg.ValidateCerts)
	})

	t.Run("flag overrides environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VMWARE_HOST", "env.example.com")

		v := New()
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("vcenter-hostname", "", "")
		require.NoError(t, v.BindPFlag(KeyHostname, flags.Lookup("vcenter-hostname")))
		require.NoError(t, flags.Parse([]string{"--vcenter-hostname", "flag.example.com"}))

		cfg, err := Load(v, file)
		require.NoError(t, err)
		assert.Equal(t, "flag.example.com", cfg.Hostname)
	})
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadExpandsRestLogFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VMWARE_REST_LOG_FILE", "~/rest.log")

	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg, err := Load(New(), writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "rest.log"), cfg.RestLogFile)
}

func TestConnection(t *testing.T) {
	valid := Config{
		Hostname:      "vcenter.example.com",
		Username:      "administrator@vsphere.local",
		Password:      "secret",
		ValidateCerts: false,
		Timeout:       "30s",
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid
		conn, err := cfg.Connection()
		require.NoError(t, err)
		assert.Equal(t, "vcenter.example.com", conn.Hostname)
		assert.False(t, conn.ValidateCerts)
		assert.Equal(t, 30*time.Second, conn.Timeout)
	})

	tests := []struct {
		name  string
		edit  func(c *Config)
		field string
	}{
		{name: "missing hostname", edit: func(c *Config) { c.Hostname = "" }, field: KeyHostname},
		{name: "missing username", edit: func(c *Config) { c.Username = "" }, field: KeyUsername},
		{name: "missing password", edit: func(c *Config) { c.Password = "" }, field: KeyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.edit(&cfg)

			_, err := cfg.Connection()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, tt.field+" cannot be empty", err.Error())
		})
	}

	t.Run("invalid timeout", func(t *testing.T) {
		cfg := valid
		cfg.Timeout = "soon"
		_, err := cfg.Connection()
		assert.Error(t, err)
	})
}

func TestShouldCacheSession(t *testing.T) {
	// Default (nil) should return true
	c := &Config{}
	assert.True(t, c.ShouldCacheSession())

	falseVal := false
	c = &Config{SessionCache: &falseVal}
	assert.False(t, c.ShouldCacheSession())
}

func TestConfigDir(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	configDir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".guestdir"), configDir)
}
