package config

import "time"

// Config is the root configuration structure for the riptide CLI.
// It aggregates all other specific configuration structs.
type Config struct {
	Log    LogConfig    `description:"Logging configuration" koanf:"log"`
	Scan   ScanConfig   `description:"Scan configuration" koanf:"scan"`
	Remote RemoteConfig `description:"Remote plugin server configuration" koanf:"remote"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: debug | info | warn | error" koanf:"level"`
	Format string `description:"Log format: json | text" koanf:"format"`
}

// ScanConfig holds per-run scan settings: the target and how results are
// persisted.
type ScanConfig struct {
	IP       string `description:"Target IP address" koanf:"ip"`
	Hostname string `description:"Target hostname" koanf:"hostname"`
	URI      string `description:"Target URI (scheme and host required)" koanf:"uri"`

	OutputFilename string `description:"Local file the scan result is written to" koanf:"output_filename"`
	OutputFormat   string `description:"Result serialization format: json | yaml" koanf:"output_format"`

	ProbeEnabled bool `description:"Ping the target before scanning (informational only)" koanf:"probe_enabled"`
	ProbeCount   int  `description:"Number of ICMP echo requests for the reachability probe" koanf:"probe_count"`
}

// RemoteConfig holds the plugin server backends the scan talks to, either
// spawned locally from server binaries or dialed at a fixed address.
type RemoteConfig struct {
	ServerPaths []string `description:"Plugin server binaries to spawn, one per backend" koanf:"server_paths"`
	ServerPorts []string `description:"Loopback ports the spawned servers listen on, parallel to server_paths" koanf:"server_ports"`

	ServerAddress string `description:"Address of an already-running plugin server" koanf:"server_address"`
	ServerPort    string `description:"Port of the already-running plugin server" koanf:"server_port"`

	TrustAllCert   bool          `description:"Ask plugin servers to accept any TLS certificate when probing targets" koanf:"trust_all_ssl_cert"`
	ConnectTimeout time.Duration `description:"Minimum connection timeout for the backend channel" koanf:"connect_timeout"`
	RunDeadline    time.Duration `description:"Deadline covering all attempts of one backend invocation" koanf:"run_deadline"`

	CallbackAddress string `description:"Out-of-band callback server address forwarded to spawned servers" koanf:"callback_address"`
	CallbackPort    int    `description:"Out-of-band callback server port forwarded to spawned servers" koanf:"callback_port"`
	PollingURI      string `description:"Out-of-band callback polling URI forwarded to spawned servers" koanf:"polling_uri"`
}
