package workflow

import (
	"context"
	"time"

	"github.com/go-ping/ping"
	"github.com/rs/zerolog"

	"github.com/riptide-sec/riptide/pkg/scan"
)

const probeTimeout = 5 * time.Second

// probeFunc sends count ICMP echo requests to host and reports how many
// replies came back.
type probeFunc func(ctx context.Context, host string, count int) (received int, err error)

func icmpProbe(ctx context.Context, host string, count int) (int, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.Count = count
	pinger.Timeout = probeTimeout
	pinger.SetPrivileged(false)

	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()
	select {
	case err := <-done:
		if err != nil {
			return 0, err
		}
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return 0, ctx.Err()
	}
	return pinger.Statistics().PacketsRecv, nil
}

// probeReachability pings the target host before scanning. The outcome
// is informational only; an unreachable or unprobeable host still gets
// scanned, since filtered ICMP is common on hardened networks.
func (w *Workflow) probeReachability(ctx context.Context, logger zerolog.Logger, target scan.Target) {
	host := target.Host()
	if host == "" {
		return
	}
	received, err := w.probe(ctx, host, w.probeCount)
	if err != nil {
		logger.Warn().Err(err).Str("host", host).Msg("reachability probe failed")
		return
	}
	if received == 0 {
		logger.Warn().Str("host", host).Msg("target did not answer reachability probe")
		return
	}
	logger.Debug().Str("host", host).Int("replies", received).Msg("target answered reachability probe")
}
