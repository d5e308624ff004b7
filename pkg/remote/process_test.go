package remote

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartRejectsNonSpawnedBackend(t *testing.T) {
	m := NewProcessManager()
	defer m.Close()

	_, err := m.Start(context.Background(), ServerCommand{Address: "plugins.internal", Port: "34567"})
	require.ErrorIs(t, err, ErrSpawn)
}

func TestStartMissingExecutable(t *testing.T) {
	m := NewProcessManager()
	defer m.Close()

	_, err := m.Start(context.Background(), ServerCommand{
		Command: "/nonexistent/plugin-server",
		Port:    "34567",
	})
	require.ErrorIs(t, err, ErrSpawn)
}

func TestStartImmediateExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	m := NewProcessManager()
	defer m.Close()

	// "sh -c exit" dies well inside the immediate-exit window.
	_, err := m.Start(context.Background(), ServerCommand{
		Command: "sh",
		Port:    "34567",
	})
	require.ErrorIs(t, err, ErrSpawn)
}

func TestStartAndStopLongRunningProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "server.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 60\n"), 0o755))

	m := NewProcessManager()
	defer m.Close()

	h, err := m.Start(context.Background(), ServerCommand{
		Command: script,
		Port:    "34567",
	})
	require.NoError(t, err)
	require.NotZero(t, h.PID())
	require.Equal(t, script, h.Command().Command)

	m.Stop(h)
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not terminate after Stop")
	}

	// Stopping an already-exited handle is a no-op.
	m.Stop(h)
}

func TestSpawnQueueSaturation(t *testing.T) {
	m := NewProcessManager()
	defer m.Close()

	// Block every worker on a spawn that never finishes until released.
	release := make(chan struct{})
	m.spawn = func(ctx context.Context, _ ServerCommand) (*Handle, error) {
		<-release
		return nil, ErrSpawn
	}

	command := ServerCommand{Command: "/opt/plugins/server", Port: "34567"}

	submitted := 0
	var rejected error

	// Keep submitting until the pool pushes back: all workers busy and
	// the queue at capacity. The next submission must be rejected, not
	// parked forever.
	for i := 0; i < spawnQueueCapacity+maxPoolWorkers+1; i++ {
		err := func() error {
			done := make(chan error, 1)
			go func() {
				_, err := m.Start(context.Background(), command)
				done <- err
			}()
			select {
			case err := <-done:
				return err
			case <-time.After(50 * time.Millisecond):
				return nil // accepted, a worker or the queue holds it
			}
		}()
		if err != nil {
			rejected = err
			break
		}
		submitted++
	}

	require.ErrorIs(t, rejected, ErrPoolSaturated)
	require.LessOrEqual(t, submitted, spawnQueueCapacity+maxPoolWorkers)

	close(release)
}

func TestSubmitAfterClose(t *testing.T) {
	m := NewProcessManager()
	m.Close()

	_, err := m.Start(context.Background(), ServerCommand{Command: "/opt/plugins/server", Port: "34567"})
	require.ErrorIs(t, err, ErrManagerClosed)
}

func TestServerArgs(t *testing.T) {
	command := ServerCommand{
		Command:         "/opt/plugins/server",
		Port:            "34567",
		LogID:           "run-7",
		OutputDir:       "/tmp/results",
		TrustAllCert:    true,
		CallbackAddress: "cb.internal",
		CallbackPort:    8881,
		PollingURI:      "http://cb.internal:8881",
	}
	require.Equal(t, []string{
		"--port=34567",
		"--log-id=run-7",
		"--output-dir=/tmp/results",
		"--callback-address=cb.internal",
		"--callback-port=8881",
		"--polling-uri=http://cb.internal:8881",
		"--trust-all-ssl-cert",
	}, serverArgs(command))

	require.Equal(t, []string{"--port=34567"}, serverArgs(ServerCommand{Command: "x", Port: "34567"}))
}
