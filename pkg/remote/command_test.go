package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		command ServerCommand
		wantErr bool
	}{
		{
			name:    "spawned backend",
			command: ServerCommand{Command: "/opt/plugins/server", Port: "34567"},
		},
		{
			name:    "direct backend",
			command: ServerCommand{Address: "plugins.internal", Port: "34567"},
		},
		{
			name: "full descriptor",
			command: ServerCommand{
				Command:         "/opt/plugins/server",
				Port:            "34567",
				LogID:           "run-1",
				OutputDir:       "/tmp/out",
				TrustAllCert:    true,
				ConnectTimeout:  10 * time.Second,
				RunDeadline:     2 * time.Minute,
				CallbackAddress: "cb.internal",
				CallbackPort:    8080,
				PollingURI:      "http://cb.internal:8080",
			},
		},
		{
			name:    "neither command nor address",
			command: ServerCommand{Port: "34567"},
			wantErr: true,
		},
		{
			name:    "missing port",
			command: ServerCommand{Command: "/opt/plugins/server"},
			wantErr: true,
		},
		{
			name:    "non-numeric port",
			command: ServerCommand{Command: "/opt/plugins/server", Port: "http"},
			wantErr: true,
		},
		{
			name:    "callback port out of range",
			command: ServerCommand{Address: "plugins.internal", Port: "34567", CallbackPort: 70000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.command.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCommand)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServerCommandDialTarget(t *testing.T) {
	spawned := ServerCommand{Command: "/opt/plugins/server", Port: "34567"}
	require.True(t, spawned.Spawned())
	require.Equal(t, "127.0.0.1:34567", spawned.DialTarget())

	direct := ServerCommand{Address: "plugins.internal", Port: "34567"}
	require.False(t, direct.Spawned())
	require.Equal(t, "plugins.internal:34567", direct.DialTarget())

	// Address is ignored when a spawn command is present.
	both := ServerCommand{Command: "/opt/plugins/server", Address: "plugins.internal", Port: "34567"}
	require.Equal(t, "127.0.0.1:34567", both.DialTarget())
}
