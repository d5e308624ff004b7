// Package remote manages out-of-process plugin backends: spawning local
// helper processes, building RPC channels to them and wrapping each
// channel as a retrying plugin instance.
package remote

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidCommand indicates a malformed backend descriptor. This is a
// configuration error caught before any process or channel exists.
var ErrInvalidCommand = errors.New("invalid server command")

var validate = validator.New()

// ServerCommand describes one remote plugin backend: either a helper
// process to spawn locally (Command set, dialed over loopback) or an
// already-running server (Address set, dialed directly). Port is required
// in both cases.
type ServerCommand struct {
	// Command is the path of the helper binary to spawn. Empty for
	// backends that are not locally spawned.
	Command string

	// Address is the remote host of a non-spawned backend. Ignored when
	// Command is set.
	Address string

	// Port the backend listens on.
	Port string `validate:"required,numeric"`

	// LogID and OutputDir are forwarded to the spawned process and are
	// not used by the channel itself.
	LogID     string
	OutputDir string

	// TrustAllCert is a transport trust override reserved for TLS channel
	// variants. The default plaintext channel ignores it.
	TrustAllCert bool

	// ConnectTimeout bounds channel connection establishment.
	ConnectTimeout time.Duration `validate:"min=0"`

	// RunDeadline is the wall-clock ceiling across all retry attempts of
	// a single plugin invocation. Zero means unbounded.
	RunDeadline time.Duration `validate:"min=0"`

	// Callback channel coordinates, forwarded verbatim to the backend.
	CallbackAddress string
	CallbackPort    int `validate:"min=0,max=65535"`
	PollingURI      string
}

// Spawned reports whether this backend is started as a local helper
// process.
func (c ServerCommand) Spawned() bool { return c.Command != "" }

// DialTarget returns the address the RPC channel connects to: loopback
// for spawned backends, the configured address otherwise.
func (c ServerCommand) DialTarget() string {
	if c.Spawned() {
		return net.JoinHostPort("127.0.0.1", c.Port)
	}
	return net.JoinHostPort(c.Address, c.Port)
}

// Validate checks the descriptor before any backend lifecycle begins.
func (c ServerCommand) Validate() error {
	if c.Command == "" && c.Address == "" {
		return fmt.Errorf("%w: needs a spawn command or a server address", ErrInvalidCommand)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return nil
}
