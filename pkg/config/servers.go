package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/riptide-sec/riptide/pkg/remote"
)

// ErrServerConfig indicates the remote plugin server settings cannot be
// resolved into runnable backend commands.
var ErrServerConfig = errors.New("invalid plugin server configuration")

// ServerCommands resolves the remote section into the backend commands a
// scan run starts: one spawned backend per server_paths entry, paired
// positionally with server_ports, plus an optional direct backend when
// server_address is set. logID tags the spawned servers' log output with
// the current run.
func ServerCommands(cfg Config, logID string) ([]remote.ServerCommand, error) {
	rc := cfg.Remote
	if len(rc.ServerPaths) != len(rc.ServerPorts) {
		return nil, fmt.Errorf("%w: %d server paths but %d server ports",
			ErrServerConfig, len(rc.ServerPaths), len(rc.ServerPorts))
	}

	// Spawned servers write their own result files next to ours.
	var outputDir string
	if cfg.Scan.OutputFilename != "" {
		outputDir = filepath.Dir(cfg.Scan.OutputFilename)
	}

	var commands []remote.ServerCommand
	for i, path := range rc.ServerPaths {
		commands = append(commands, remote.ServerCommand{
			Command:         path,
			Port:            rc.ServerPorts[i],
			LogID:           logID,
			OutputDir:       outputDir,
			TrustAllCert:    rc.TrustAllCert,
			ConnectTimeout:  rc.ConnectTimeout,
			RunDeadline:     rc.RunDeadline,
			CallbackAddress: rc.CallbackAddress,
			CallbackPort:    rc.CallbackPort,
			PollingURI:      rc.PollingURI,
		})
	}
	if rc.ServerAddress != "" {
		commands = append(commands, remote.ServerCommand{
			Address:        rc.ServerAddress,
			Port:           rc.ServerPort,
			TrustAllCert:   rc.TrustAllCert,
			ConnectTimeout: rc.ConnectTimeout,
			RunDeadline:    rc.RunDeadline,
		})
	}

	// Dial targets double as plugin identities, so duplicates are rejected
	// before any backend starts.
	seen := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrServerConfig, err)
		}
		target := c.DialTarget()
		if _, dup := seen[target]; dup {
			return nil, fmt.Errorf("%w: duplicate plugin server %s", ErrServerConfig, target)
		}
		seen[target] = struct{}{}
	}
	return commands, nil
}
