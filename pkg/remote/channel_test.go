package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riptide-sec/riptide/pkg/scan"
)

func TestNewChannelTargets(t *testing.T) {
	spawned := ServerCommand{Command: "/opt/plugins/server", Port: "34567"}
	conn, err := NewChannel(spawned)
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, "127.0.0.1:34567", conn.Target())

	direct := ServerCommand{Address: "plugins.internal", Port: "8000", ConnectTimeout: 5 * time.Second}
	conn2, err := NewChannel(direct)
	require.NoError(t, err)
	defer conn2.Close()
	require.Equal(t, "plugins.internal:8000", conn2.Target())
}

func TestNewChannelTwiceYieldsIndependentChannels(t *testing.T) {
	command := ServerCommand{Command: "/opt/plugins/server", Port: "34567"}

	first, err := NewChannel(command)
	require.NoError(t, err)
	second, err := NewChannel(command)
	require.NoError(t, err)

	require.NotSame(t, first, second)
	require.Equal(t, first.Target(), second.Target())

	// Closing one must not affect the other.
	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	require.Equal(t, "json", codec.Name())

	target, err := scan.ForIPAndHostname("10.0.0.4", "web.internal")
	require.NoError(t, err)

	in := &RunRequest{Target: target}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := new(RunRequest)
	require.NoError(t, codec.Unmarshal(data, out))
	require.Equal(t, in.Target.Endpoint, out.Target.Endpoint)
}
