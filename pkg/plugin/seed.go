package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// pluginNamePattern matches valid plugin names: lowercase alphanumeric,
// hyphens and underscores, starting with a letter, 3-63 characters.
var pluginNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{2,62}$`)

// Local pairs an in-process plugin with the version its discovery
// mechanism reported.
type Local struct {
	Plugin  Plugin
	Version string
}

// SeedLocal registers pre-built local plugins supplied by the discovery
// collaborator. Local plugins seed the registry before any remote plugin
// is added, so enumeration tries them first. Validation failures and
// identity collisions abort seeding; both are configuration errors.
func SeedLocal(r *Registry, locals []Local) error {
	for _, l := range locals {
		if l.Plugin == nil {
			return fmt.Errorf("nil local plugin in discovery set")
		}
		id := l.Plugin.Identity()
		if !pluginNamePattern.MatchString(id.Name) {
			return fmt.Errorf("invalid plugin name %q", id.Name)
		}
		if l.Version != "" {
			if _, err := semver.NewVersion(l.Version); err != nil {
				return fmt.Errorf("plugin %s: invalid version %q: %w", id, l.Version, err)
			}
		}
		if err := r.Register(id, l.Plugin); err != nil {
			return err
		}
	}
	return nil
}
