// Package plugin defines the plugin capability interface and the registry
// that unifies local and remote detection plugins under one addressable
// identity.
package plugin

import (
	"context"
	"fmt"

	"github.com/riptide-sec/riptide/pkg/scan"
)

// Kind defines the category of a plugin.
type Kind string

const (
	// DetectionKind plugins are compiled into the scanner binary.
	DetectionKind Kind = "detection"

	// RemoteDetectionKind plugins run out of process and are reached over
	// an RPC channel.
	RemoteDetectionKind Kind = "remote-detection"
)

// Identity is the unique key a plugin is registered and looked up under.
type Identity struct {
	Kind Kind
	Name string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s", id.Kind, id.Name)
}

// Plugin is a self-contained detection capability invoked with a scan
// target, producing findings.
type Plugin interface {
	// Identity returns the key this plugin registers under.
	Identity() Identity

	// Describe returns a human-readable description for logs and reports.
	Describe() string

	// Detect runs the detection against the target. A nil error with an
	// empty finding slice is a clean "nothing found" result.
	Detect(ctx context.Context, target scan.Target) ([]scan.Finding, error)
}
