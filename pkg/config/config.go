// Package config loads the riptide configuration from layered sources:
// hardcoded defaults, an optional YAML file, RIPTIDE_* environment
// variables and command-line flags, in that precedence order.
package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a Manager with a fresh koanf instance.
func NewManager() *Manager {
	return &Manager{koanfInstance: koanf.New(".")}
}

// DefaultConfig returns a Config populated with hardcoded default values.
// These serve as the baseline if no other source overrides them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scan: ScanConfig{
			OutputFormat: "json",
			ProbeCount:   3,
		},
		Remote: RemoteConfig{
			ConnectTimeout: 10 * time.Second,
			RunDeadline:    3 * time.Minute,
		},
	}
}

// Load merges configuration from the given sources in priority order and
// unmarshals the result into the manager.
func (m *Manager) Load(sources ...Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})
	for _, s := range sources {
		if err := s.Load(m.koanfInstance); err != nil {
			return fmt.Errorf("config source %s: %w", s.Name(), err)
		}
	}

	var newCfg Config
	if err := m.koanfInstance.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// DefaultConfigAsMap flattens DefaultConfig into the map shape koanf's
// confmap provider expects, so every key is known before other sources
// merge on top.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,

		"scan.ip":              def.Scan.IP,
		"scan.hostname":        def.Scan.Hostname,
		"scan.uri":             def.Scan.URI,
		"scan.output_filename": def.Scan.OutputFilename,
		"scan.output_format":   def.Scan.OutputFormat,
		"scan.probe_enabled":   def.Scan.ProbeEnabled,
		"scan.probe_count":     def.Scan.ProbeCount,

		"remote.server_paths":       def.Remote.ServerPaths,
		"remote.server_ports":       def.Remote.ServerPorts,
		"remote.server_address":     def.Remote.ServerAddress,
		"remote.server_port":        def.Remote.ServerPort,
		"remote.trust_all_ssl_cert": def.Remote.TrustAllCert,
		"remote.connect_timeout":    def.Remote.ConnectTimeout,
		"remote.run_deadline":       def.Remote.RunDeadline,
		"remote.callback_address":   def.Remote.CallbackAddress,
		"remote.callback_port":      def.Remote.CallbackPort,
		"remote.polling_uri":        def.Remote.PollingURI,
	}
}

// BindFlags defines command-line flags corresponding to configuration
// settings. Flag names double as koanf keys through the posflag source.
func BindFlags(flags *pflag.FlagSet) {
	def := DefaultConfig()

	flags.String("log.level", def.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log.format", def.Log.Format, "Log format (text, json)")

	flags.String("scan.ip", "", "Target IP address")
	flags.String("scan.hostname", "", "Target hostname")
	flags.String("scan.uri", "", "Target URI")

	flags.StringSlice("remote.server_paths", nil, "Plugin server binaries to spawn")
	flags.StringSlice("remote.server_ports", nil, "Ports for the spawned plugin servers")
	flags.String("remote.server_address", "", "Address of an already-running plugin server")
	flags.String("remote.server_port", "", "Port of the already-running plugin server")
	flags.Bool("remote.trust_all_ssl_cert", false, "Plugin servers accept any TLS certificate")

	flags.Bool("debug", false, "Enable debug logging")
}
