package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/riptide-sec/riptide/pkg/plugin"
	"github.com/riptide-sec/riptide/pkg/scan"
)

var (
	// ErrProtocol indicates a structurally invalid response from a
	// backend. Protocol violations are never retried.
	ErrProtocol = errors.New("protocol error from plugin server")

	// ErrMessageTooLarge indicates a response above the inbound message
	// cap. A protocol violation, not a transient fault.
	ErrMessageTooLarge = fmt.Errorf("%w: response exceeds inbound message limit", ErrProtocol)

	// ErrBackendUnavailable indicates a backend stayed unreachable after
	// the retry budget was spent.
	ErrBackendUnavailable = errors.New("plugin server unavailable")
)

// RetryingDetector wraps a backend channel as a plugin instance. Every
// call is retried per the backoff policy on transient failures and the
// whole invocation is bounded by the backend's run deadline, if set. The
// detector never manages process or channel lifecycle; teardown belongs
// to the workflow that created the backend.
type RetryingDetector struct {
	identity plugin.Identity
	client   serviceClient
	backoff  Backoff
	deadline time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   zerolog.Logger
}

// NewRetryingDetector wraps the channel to a backend. The synthetic
// identity derives from the backend's configured dial target, so it is
// stable across runs and unique across backends within one run.
func NewRetryingDetector(command ServerCommand, conn *grpc.ClientConn) *RetryingDetector {
	return newRetryingDetector(command, newDetectorServiceClient(conn))
}

func newRetryingDetector(command ServerCommand, client serviceClient) *RetryingDetector {
	id := plugin.Identity{Kind: plugin.RemoteDetectionKind, Name: "remote/" + command.DialTarget()}
	return &RetryingDetector{
		identity: id,
		client:   client,
		backoff:  DefaultBackoff(),
		deadline: command.RunDeadline,
		sleep:    sleepContext,
		logger:   log.With().Str("component", "remote-detector").Str("backend", command.DialTarget()).Logger(),
	}
}

// Identity implements plugin.Plugin.
func (d *RetryingDetector) Identity() plugin.Identity { return d.identity }

// Describe implements plugin.Plugin.
func (d *RetryingDetector) Describe() string {
	return "remote detection plugins served by " + d.identity.Name
}

// Detect issues the Run RPC with retries. The deadline, when set, is a
// wall-clock ceiling across all attempts combined: an attempt that would
// start after it never starts.
func (d *RetryingDetector) Detect(ctx context.Context, target scan.Target) ([]scan.Finding, error) {
	if d.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.deadline)
		defer cancel()
	}

	seq := d.backoff.NewSequence()
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			break
		}

		resp, err := d.client.Run(ctx, &RunRequest{Target: target})
		if err == nil {
			d.logger.Debug().Int("findings", len(resp.Findings)).Msg("plugin server run completed")
			return resp.Findings, nil
		}
		if perr := classify(err); perr != nil {
			return nil, perr
		}
		lastErr = err
		d.logger.Warn().Err(err).Int("attempt", seq.Attempts()+1).Msg("transient plugin server failure")

		delay, ok := seq.Next()
		if !ok {
			break
		}
		if err := d.sleep(ctx, delay); err != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrBackendUnavailable, seq.Attempts(), lastErr)
}

// ListPlugins asks the backend which detectors it hosts. Informational; a
// single attempt with no retries.
func (d *RetryingDetector) ListPlugins(ctx context.Context) ([]PluginDescriptor, error) {
	resp, err := d.client.ListPlugins(ctx, &ListPluginsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Plugins, nil
}

// classify returns a terminal error for protocol violations and nil for
// transiently-classified failures that the caller may retry.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		// Not a status error: codec or payload failure.
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Canceled:
		return nil
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrMessageTooLarge, err)
	default:
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
