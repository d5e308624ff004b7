// Package scan defines the data model shared by the scan execution core:
// scan targets, findings and aggregated scan results.
package scan

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrInvalidTarget indicates the supplied target parameters cannot be
// resolved into a scannable target.
var ErrInvalidTarget = errors.New("invalid scan target")

// Endpoint identifies a network endpoint by IP and/or hostname.
// At least one of the two fields is set.
type Endpoint struct {
	IP       string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// Service identifies a higher-level network service resolved from a URI.
type Service struct {
	URI      string   `json:"uri" yaml:"uri"`
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint"`
}

// Target is what a scan run operates on. Exactly one of Endpoint or
// Service is populated. Treat values as immutable once built.
type Target struct {
	Endpoint *Endpoint `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Service  *Service  `json:"service,omitempty" yaml:"service,omitempty"`
}

// TargetParams carries the raw target strings supplied by the CLI or API
// caller before resolution into a Target.
type TargetParams struct {
	IP       string
	Hostname string
	URI      string
}

// ForIP builds a Target for a bare IP address.
func ForIP(ip string) (Target, error) {
	if net.ParseIP(ip) == nil {
		return Target{}, fmt.Errorf("%w: not an IP address: %q", ErrInvalidTarget, ip)
	}
	return Target{Endpoint: &Endpoint{IP: ip}}, nil
}

// ForHostname builds a Target for a bare hostname.
func ForHostname(hostname string) (Target, error) {
	if hostname == "" {
		return Target{}, fmt.Errorf("%w: empty hostname", ErrInvalidTarget)
	}
	return Target{Endpoint: &Endpoint{Hostname: hostname}}, nil
}

// ForIPAndHostname builds a Target carrying both an IP and the hostname it
// resolved from.
func ForIPAndHostname(ip, hostname string) (Target, error) {
	if net.ParseIP(ip) == nil {
		return Target{}, fmt.Errorf("%w: not an IP address: %q", ErrInvalidTarget, ip)
	}
	if hostname == "" {
		return Target{}, fmt.Errorf("%w: empty hostname", ErrInvalidTarget)
	}
	return Target{Endpoint: &Endpoint{IP: ip, Hostname: hostname}}, nil
}

// ForURI builds a service-shaped Target from a URI string.
func ForURI(rawURI string) (Target, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Target{}, fmt.Errorf("%w: URI needs scheme and host: %q", ErrInvalidTarget, rawURI)
	}
	return Target{
		Service: &Service{
			URI:      rawURI,
			Endpoint: Endpoint{Hostname: u.Hostname()},
		},
	}, nil
}

// FromParams resolves raw target parameters into a Target. Precedence:
// IP plus hostname, bare IP, URI, bare hostname. Empty params are a
// configuration error.
func FromParams(params TargetParams) (Target, error) {
	switch {
	case params.IP != "" && params.Hostname != "":
		return ForIPAndHostname(params.IP, params.Hostname)
	case params.IP != "":
		return ForIP(params.IP)
	case params.URI != "":
		return ForURI(params.URI)
	case params.Hostname != "":
		return ForHostname(params.Hostname)
	default:
		return Target{}, fmt.Errorf("%w: no IP, hostname or URI supplied", ErrInvalidTarget)
	}
}

// Host returns the most specific host string of the target, preferring an
// IP over a hostname. Used for logging and reachability probes.
func (t Target) Host() string {
	if t.Endpoint != nil {
		if t.Endpoint.IP != "" {
			return t.Endpoint.IP
		}
		return t.Endpoint.Hostname
	}
	if t.Service != nil {
		return t.Service.Endpoint.Hostname
	}
	return ""
}

// IsZero reports whether the target carries neither shape.
func (t Target) IsZero() bool {
	return t.Endpoint == nil && t.Service == nil
}

func (t Target) String() string {
	switch {
	case t.Service != nil:
		return t.Service.URI
	case t.Endpoint != nil && t.Endpoint.IP != "" && t.Endpoint.Hostname != "":
		return fmt.Sprintf("%s (%s)", t.Endpoint.IP, t.Endpoint.Hostname)
	case t.Endpoint != nil:
		return t.Host()
	default:
		return "<no target>"
	}
}
