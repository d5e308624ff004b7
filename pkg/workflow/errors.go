package workflow

import (
	"errors"

	"github.com/riptide-sec/riptide/pkg/config"
	"github.com/riptide-sec/riptide/pkg/plugin"
	"github.com/riptide-sec/riptide/pkg/remote"
	"github.com/riptide-sec/riptide/pkg/scan"
)

// Error codes used by the CLI layer when reporting run failures.
const (
	errorCodeConfiguration = "CONFIGURATION_ERROR"
	errorCodeArchive       = "ARCHIVE_FAILED"
	errorCodeRunFailure    = "RUN_FAILURE"
)

var (
	// ErrArchive indicates the archiver collaborator failed to persist
	// the scan result. Surfaced after the run completes; it never
	// changes the computed scan status.
	ErrArchive = errors.New("archiving scan results failed")

	// ErrNoPlugins is carried in the status message of a run that had no
	// plugins to invoke.
	ErrNoPlugins = errors.New("no plugins were available for scanning")
)

// ErrorCode resolves a run error into a stable error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, scan.ErrInvalidTarget),
		errors.Is(err, remote.ErrInvalidCommand),
		errors.Is(err, config.ErrServerConfig),
		errors.Is(err, plugin.ErrDuplicateIdentity):
		return errorCodeConfiguration
	case errors.Is(err, ErrArchive):
		return errorCodeArchive
	}
	return errorCodeRunFailure
}

// ExitCode maps a finished run to the process exit contract: 0 for a run
// that produced usable results (SUCCEEDED or PARTIALLY_SUCCEEDED), 1 for
// FAILED status or any run-level error.
func ExitCode(result scan.Result, err error) int {
	if err != nil {
		return 1
	}
	if !result.Succeeded() {
		return 1
	}
	return 0
}
