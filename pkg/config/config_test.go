package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(&DefaultSource{}))

	cfg := m.Get()
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, "json", cfg.Scan.OutputFormat)
	require.Equal(t, 3, cfg.Scan.ProbeCount)
	require.Equal(t, 10*time.Second, cfg.Remote.ConnectTimeout)
	require.Equal(t, 3*time.Minute, cfg.Remote.RunDeadline)
	require.Empty(t, cfg.Remote.ServerPaths)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: warn
remote:
  server_paths:
    - /opt/plugins/server
  server_ports:
    - "34567"
  trust_all_ssl_cert: true
`), 0o644))

	m := NewManager()
	require.NoError(t, m.Load(&DefaultSource{}, &FileSource{Path: path}))

	cfg := m.Get()
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format, "untouched keys keep defaults")
	require.Equal(t, []string{"/opt/plugins/server"}, cfg.Remote.ServerPaths)
	require.Equal(t, []string{"34567"}, cfg.Remote.ServerPorts)
	require.True(t, cfg.Remote.TrustAllCert)
}

func TestLoadMissingFileSkipped(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(&DefaultSource{}, &FileSource{Path: "/nonexistent/config.yaml"}))
	require.Equal(t, "info", m.Get().Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	t.Setenv("RIPTIDE_LOG_LEVEL", "debug")

	m := NewManager()
	require.NoError(t, m.Load(&DefaultSource{}, &FileSource{Path: path}, &EnvSource{}))
	require.Equal(t, "debug", m.Get().Log.Level)
}

func TestLoadEnvUnderscoreKeys(t *testing.T) {
	// Only the first underscore separates the section; the rest stay part
	// of the key.
	t.Setenv("RIPTIDE_REMOTE_SERVER_ADDRESS", "plugins.internal")
	t.Setenv("RIPTIDE_REMOTE_SERVER_PORT", "8000")
	t.Setenv("RIPTIDE_REMOTE_TRUST_ALL_SSL_CERT", "true")
	t.Setenv("RIPTIDE_SCAN_OUTPUT_FILENAME", "/tmp/results/scan.json")

	m := NewManager()
	require.NoError(t, m.Load(&DefaultSource{}, &EnvSource{}))

	cfg := m.Get()
	require.Equal(t, "plugins.internal", cfg.Remote.ServerAddress)
	require.Equal(t, "8000", cfg.Remote.ServerPort)
	require.True(t, cfg.Remote.TrustAllCert)
	require.Equal(t, "/tmp/results/scan.json", cfg.Scan.OutputFilename)
}

func TestLoadFlagsHighestPriority(t *testing.T) {
	t.Setenv("RIPTIDE_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--log.level=error", "--scan.ip=10.0.0.5"}))

	m := NewManager()
	require.NoError(t, m.Load(DefaultSources("", flags, false)...))

	cfg := m.Get()
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, "10.0.0.5", cfg.Scan.IP)
}

func TestLoadDebugFlagForcesDebugLevel(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	require.NoError(t, flags.Parse([]string{"--log.level=error"}))

	m := NewManager()
	require.NoError(t, m.Load(DefaultSources("", flags, true)...))
	require.Equal(t, "debug", m.Get().Log.Level)
}

func TestLoadSourcesOrderedByPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	// Pass the sources out of order; priorities decide precedence.
	m := NewManager()
	require.NoError(t, m.Load(&FileSource{Path: path}, &DefaultSource{}))
	require.Equal(t, "warn", m.Get().Log.Level)
}
