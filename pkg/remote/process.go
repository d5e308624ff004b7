package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	corePoolWorkers    = 4
	maxPoolWorkers     = 8
	spawnQueueCapacity = 32

	// A helper that dies within this window after launch is treated as
	// failed to spawn rather than as a running backend.
	immediateExitWindow = 200 * time.Millisecond

	// Grace period between the terminate signal and a hard kill.
	terminateGrace = 3 * time.Second
)

var (
	// ErrSpawn indicates a helper process failed to launch or exited
	// immediately after launch.
	ErrSpawn = errors.New("failed to spawn plugin server")

	// ErrPoolSaturated is returned when the spawn queue is full. This is
	// a backpressure boundary: excess spawns are rejected, not queued
	// forever.
	ErrPoolSaturated = errors.New("spawn queue full")

	// ErrManagerClosed is returned by Start after Close.
	ErrManagerClosed = errors.New("process manager closed")
)

// Handle represents one running helper process for the duration of a scan
// run.
type Handle struct {
	command ServerCommand
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// PID returns the process id of the helper.
func (h *Handle) PID() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Command returns the descriptor this handle was started from.
func (h *Handle) Command() ServerCommand { return h.command }

type spawnTask struct {
	ctx     context.Context
	command ServerCommand
	result  chan spawnResult
}

type spawnResult struct {
	handle *Handle
	err    error
}

// ProcessManager spawns and terminates helper processes hosting remote
// plugins. Spawns are dispatched onto a bounded worker pool so starting N
// backends neither serializes on the caller nor fork-bombs under
// misconfiguration.
type ProcessManager struct {
	tasks chan spawnTask
	spawn func(context.Context, ServerCommand) (*Handle, error)

	mu      sync.Mutex
	pending int
	workers int
	closed  bool
	wg      sync.WaitGroup

	logger zerolog.Logger
}

// NewProcessManager returns a manager with its core workers running.
func NewProcessManager() *ProcessManager {
	m := &ProcessManager{
		// Extra headroom beyond the pending cap so enqueueing never
		// blocks; saturation is enforced by the pending counter.
		tasks:  make(chan spawnTask, spawnQueueCapacity+maxPoolWorkers),
		spawn:  spawnProcess,
		logger: log.With().Str("component", "process-manager").Logger(),
	}
	for range corePoolWorkers {
		m.addWorkerLocked()
	}
	return m
}

// Start spawns the helper described by command and waits for the spawn to
// be carried out by the pool. It fails with ErrSpawn if the executable is
// missing or exits immediately, and with ErrPoolSaturated when the spawn
// queue is full.
func (m *ProcessManager) Start(ctx context.Context, command ServerCommand) (*Handle, error) {
	if !command.Spawned() {
		return nil, fmt.Errorf("%w: no spawn command for backend %s", ErrSpawn, command.DialTarget())
	}
	task := spawnTask{ctx: ctx, command: command, result: make(chan spawnResult, 1)}
	if err := m.submit(task); err != nil {
		return nil, err
	}
	select {
	case res := <-task.result:
		return res.handle, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop sends a terminate signal to the helper. It does not block waiting
// for a graceful exit; the process is hard-killed in the background if it
// ignores the signal.
func (m *ProcessManager) Stop(h *Handle) {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	m.logger.Debug().Int("pid", h.PID()).Str("command", h.command.Command).Msg("terminating plugin server")
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = h.cmd.Process.Kill()
		return
	}
	go func() {
		select {
		case <-h.done:
		case <-time.After(terminateGrace):
			_ = h.cmd.Process.Kill()
		}
	}()
}

// Close shuts the worker pool down. Running helpers are not touched;
// stopping them remains the caller's responsibility.
func (m *ProcessManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.tasks)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *ProcessManager) submit(task spawnTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if m.pending >= spawnQueueCapacity {
		return fmt.Errorf("%w: %d spawns pending", ErrPoolSaturated, m.pending)
	}
	m.pending++
	if m.pending > m.workers && m.workers < maxPoolWorkers {
		m.addWorkerLocked()
	}
	m.tasks <- task
	return nil
}

func (m *ProcessManager) addWorkerLocked() {
	m.workers++
	m.wg.Add(1)
	go m.worker()
}

func (m *ProcessManager) worker() {
	defer m.wg.Done()
	for task := range m.tasks {
		m.mu.Lock()
		m.pending--
		m.mu.Unlock()
		handle, err := m.spawn(task.ctx, task.command)
		task.result <- spawnResult{handle: handle, err: err}
	}
}

// spawnProcess launches the helper binary with its listening port and the
// pass-through coordinates on the command line.
func spawnProcess(_ context.Context, command ServerCommand) (*Handle, error) {
	cmd := exec.Command(command.Command, serverArgs(command)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, command.Command, err)
	}

	h := &Handle{command: command, cmd: cmd, done: make(chan struct{})}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	select {
	case <-h.done:
		return nil, fmt.Errorf("%w: %s exited immediately: %v", ErrSpawn, command.Command, h.waitErr)
	case <-time.After(immediateExitWindow):
		return h, nil
	}
}

func serverArgs(command ServerCommand) []string {
	args := []string{"--port=" + command.Port}
	if command.LogID != "" {
		args = append(args, "--log-id="+command.LogID)
	}
	if command.OutputDir != "" {
		args = append(args, "--output-dir="+command.OutputDir)
	}
	if command.CallbackAddress != "" {
		args = append(args,
			"--callback-address="+command.CallbackAddress,
			"--callback-port="+strconv.Itoa(command.CallbackPort),
			"--polling-uri="+command.PollingURI,
		)
	}
	if command.TrustAllCert {
		args = append(args, "--trust-all-ssl-cert")
	}
	return args
}
