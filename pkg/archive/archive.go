// Package archive persists finished scan results to local files.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/riptide-sec/riptide/pkg/scan"
)

// Supported serialization formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat indicates an output format other than json or yaml.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// LocalArchiver writes scan results to a single local file. Writes are
// guarded by a file lock so concurrent riptide invocations pointed at the
// same output file do not interleave.
type LocalArchiver struct {
	path   string
	format string
}

// NewLocalArchiver builds an archiver writing to path in the given
// format.
func NewLocalArchiver(path, format string) (*LocalArchiver, error) {
	if path == "" {
		return nil, errors.New("archive path is required")
	}
	switch format {
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &LocalArchiver{path: path, format: format}, nil
}

// Archive serializes the result and writes it to the configured file,
// creating parent directories as needed.
func (a *LocalArchiver) Archive(result scan.Result) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := a.marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize scan result: %w", err)
	}

	lock := flock.New(a.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.WriteFile(a.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scan result: %w", err)
	}
	return nil
}

func (a *LocalArchiver) marshal(result scan.Result) ([]byte, error) {
	if a.format == FormatYAML {
		return yaml.Marshal(result)
	}
	return json.MarshalIndent(result, "", "  ")
}
