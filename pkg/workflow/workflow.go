// Package workflow drives a scan run end to end: target resolution,
// backend startup, plugin invocation, result aggregation, backend
// teardown and archival.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riptide-sec/riptide/pkg/plugin"
	"github.com/riptide-sec/riptide/pkg/remote"
	"github.com/riptide-sec/riptide/pkg/scan"
)

// listPluginsTimeout bounds the informational ListPlugins call issued
// after a backend starts.
const listPluginsTimeout = 10 * time.Second

// Archiver persists a finished scan result. Archive failures surface to
// the caller but are not retried here.
type Archiver interface {
	Archive(result scan.Result) error
}

// processStarter is the slice of remote.ProcessManager the workflow
// depends on.
type processStarter interface {
	Start(ctx context.Context, command remote.ServerCommand) (*remote.Handle, error)
	Stop(h *remote.Handle)
	Close()
}

// remoteDetector is what dialing a backend yields: a plugin plus the
// backend enumeration call.
type remoteDetector interface {
	plugin.Plugin
	ListPlugins(ctx context.Context) ([]remote.PluginDescriptor, error)
}

// backendDialer builds the channel and retry wrapper for one backend.
// The returned closer tears the channel down at the end of the run.
type backendDialer func(command remote.ServerCommand) (remoteDetector, io.Closer, error)

func dialBackend(command remote.ServerCommand) (remoteDetector, io.Closer, error) {
	conn, err := remote.NewChannel(command)
	if err != nil {
		return nil, nil, err
	}
	return remote.NewRetryingDetector(command, conn), conn, nil
}

// Workflow runs one scan per instance. The registry and the started
// process handles are owned exclusively by a single run; concurrent runs
// need independent Workflow instances.
type Workflow struct {
	commands []remote.ServerCommand
	locals   []plugin.Local
	archiver Archiver
	runID    string

	starterFactory func() processStarter
	dial           backendDialer
	probe          probeFunc
	probeCount     int

	logger zerolog.Logger
}

// New builds a workflow over the configured remote backends.
func New(commands []remote.ServerCommand) *Workflow {
	return &Workflow{
		commands:       commands,
		starterFactory: func() processStarter { return remote.NewProcessManager() },
		dial:           dialBackend,
		logger:         log.With().Str("component", "scan-workflow").Logger(),
	}
}

// WithLocalPlugins supplies the pre-built plugins from the local
// discovery collaborator. They seed the registry before any remote
// plugin, so enumeration tries them first.
func (w *Workflow) WithLocalPlugins(locals []plugin.Local) *Workflow {
	w.locals = locals
	return w
}

// WithRunID pins the run identifier instead of generating a fresh one,
// so spawned backends can be tagged with the same ID.
func (w *Workflow) WithRunID(id string) *Workflow {
	w.runID = id
	return w
}

// WithArchiver attaches the archiver collaborator that receives the
// final result.
func (w *Workflow) WithArchiver(a Archiver) *Workflow {
	w.archiver = a
	return w
}

// WithReachabilityProbe enables a warn-only ICMP pre-check of the target
// host before scanning. The probe never gates the run.
func (w *Workflow) WithReachabilityProbe(count int) *Workflow {
	w.probe = icmpProbe
	w.probeCount = count
	return w
}

// backendStart is the outcome of starting one configured backend.
type backendStart struct {
	command remote.ServerCommand
	handle  *remote.Handle
	err     error
}

// Run executes the full scan. Per-backend and per-plugin failures are
// folded into the result rather than returned; the error is non-nil only
// for run-level failures (unresolvable target, registry collision,
// archive failure). Backends started during the run are always stopped
// before Run returns, whatever else went wrong.
func (w *Workflow) Run(ctx context.Context, params scan.TargetParams) (scan.Result, error) {
	runID := w.runID
	if runID == "" {
		runID = scan.NewRunID()
	}
	result := scan.Result{
		RunID:     runID,
		Status:    scan.StatusFailed,
		StartedAt: time.Now(),
	}
	logger := w.logger.With().Str("run_id", result.RunID).Logger()

	target, err := scan.FromParams(params)
	if err != nil {
		logger.Error().Err(err).Msg("target resolution failed")
		result.StatusMessage = err.Error()
		result.FinishedAt = time.Now()
		return w.finish(logger, result, err)
	}
	result.Target = target
	logger.Info().Stringer("target", target).Msg("scan target resolved")

	if w.probe != nil {
		w.probeReachability(ctx, logger, target)
	}

	registry := plugin.NewRegistry()
	if err := plugin.SeedLocal(registry, w.locals); err != nil {
		logger.Error().Err(err).Msg("seeding local plugins failed")
		result.StatusMessage = err.Error()
		result.FinishedAt = time.Now()
		return w.finish(logger, result, err)
	}

	starter := w.starterFactory()
	defer starter.Close()

	var (
		handles []*remote.Handle
		closers []io.Closer
	)
	var torndown bool
	teardown := func() {
		if torndown {
			return
		}
		torndown = true
		for _, h := range handles {
			starter.Stop(h)
		}
		for _, c := range closers {
			_ = c.Close()
		}
	}
	defer teardown()

	startFailures, err := w.startBackends(ctx, logger, starter, registry, &handles, &closers)
	if err != nil {
		// Identity collisions are fatal configuration errors, unlike
		// per-backend spawn or channel failures.
		logger.Error().Err(err).Msg("plugin registration collision")
		result.StatusMessage = err.Error()
		result.FinishedAt = time.Now()
		teardown()
		return w.finish(logger, result, err)
	}

	outcomes, findings := w.invokeAll(ctx, logger, target, registry)

	result.Outcomes = append(outcomes, startFailures...)
	result.Findings = findings
	result.Status, result.StatusMessage = aggregate(result.Outcomes)
	result.FinishedAt = time.Now()

	logger.Info().
		Str("status", string(result.Status)).
		Int("findings", len(result.Findings)).
		Int("plugins", len(result.Outcomes)).
		Msg("scan aggregation complete")

	teardown()
	return w.finish(logger, result, nil)
}

// startBackends brings up every configured backend: spawn (when
// applicable), dial, wrap, register. A backend failing to start is
// recorded and skipped; the remaining backends still start. A registry
// identity collision aborts the whole run instead.
func (w *Workflow) startBackends(
	ctx context.Context,
	logger zerolog.Logger,
	starter processStarter,
	registry *plugin.Registry,
	handles *[]*remote.Handle,
	closers *[]io.Closer,
) ([]scan.PluginOutcome, error) {
	starts := make([]backendStart, len(w.commands))
	var wg sync.WaitGroup
	for i, command := range w.commands {
		starts[i] = backendStart{command: command}
		if !command.Spawned() {
			continue
		}
		wg.Add(1)
		go func(i int, command remote.ServerCommand) {
			defer wg.Done()
			handle, err := starter.Start(ctx, command)
			starts[i].handle, starts[i].err = handle, err
		}(i, command)
	}
	wg.Wait()

	var failures []scan.PluginOutcome
	for _, s := range starts {
		backend := s.command.DialTarget()
		if s.err != nil {
			logger.Warn().Err(s.err).Str("backend", backend).Msg("plugin server failed to start")
			failures = append(failures, scan.PluginOutcome{
				Plugin: string(plugin.RemoteDetectionKind) + "/remote/" + backend,
				Error:  s.err.Error(),
			})
			continue
		}
		if s.handle != nil {
			*handles = append(*handles, s.handle)
		}

		detector, closer, err := w.dial(s.command)
		if err != nil {
			logger.Warn().Err(err).Str("backend", backend).Msg("building plugin server channel failed")
			failures = append(failures, scan.PluginOutcome{
				Plugin: string(plugin.RemoteDetectionKind) + "/remote/" + backend,
				Error:  err.Error(),
			})
			continue
		}
		*closers = append(*closers, closer)

		if err := registry.Register(detector.Identity(), detector); err != nil {
			return failures, err
		}

		w.logAdvertisedPlugins(ctx, logger, backend, detector)
	}
	return failures, nil
}

func (w *Workflow) logAdvertisedPlugins(ctx context.Context, logger zerolog.Logger, backend string, detector remoteDetector) {
	listCtx, cancel := context.WithTimeout(ctx, listPluginsTimeout)
	defer cancel()
	descriptors, err := detector.ListPlugins(listCtx)
	if err != nil {
		logger.Debug().Err(err).Str("backend", backend).Msg("plugin server enumeration unavailable")
		return
	}
	for _, d := range descriptors {
		logger.Info().
			Str("backend", backend).
			Str("plugin", d.Name).
			Str("version", d.Version).
			Msg("plugin server advertises detector")
	}
}

// invokeAll runs every registered plugin against the target. Invocations
// start in registration order and run concurrently; aggregation waits for
// all of them to settle.
func (w *Workflow) invokeAll(
	ctx context.Context,
	logger zerolog.Logger,
	target scan.Target,
	registry *plugin.Registry,
) ([]scan.PluginOutcome, []scan.Finding) {
	n := registry.Len()
	outcomes := make([]scan.PluginOutcome, n)
	perPlugin := make([][]scan.Finding, n)

	var wg sync.WaitGroup
	i := 0
	for id, p := range registry.All() {
		wg.Add(1)
		go func(i int, id plugin.Identity, p plugin.Plugin) {
			defer wg.Done()
			started := time.Now()
			findings, err := p.Detect(ctx, target)
			outcome := scan.PluginOutcome{
				Plugin:   id.String(),
				Findings: len(findings),
				Duration: time.Since(started),
			}
			if err != nil {
				outcome.Error = err.Error()
				logger.Warn().Err(err).Str("plugin", id.String()).Msg("plugin invocation failed")
			} else {
				logger.Debug().Str("plugin", id.String()).Int("findings", len(findings)).Msg("plugin invocation complete")
			}
			outcomes[i] = outcome
			perPlugin[i] = findings
		}(i, id, p)
		i++
	}
	wg.Wait()

	var findings []scan.Finding
	for _, f := range perPlugin {
		findings = append(findings, f...)
	}
	return outcomes, findings
}

// aggregate computes the overall status: SUCCEEDED iff every plugin
// succeeded, FAILED iff none did (including zero plugins), otherwise
// PARTIALLY_SUCCEEDED.
func aggregate(outcomes []scan.PluginOutcome) (scan.Status, string) {
	if len(outcomes) == 0 {
		return scan.StatusFailed, ErrNoPlugins.Error()
	}
	succeeded, failed := 0, 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		return scan.StatusSucceeded, ""
	case succeeded == 0:
		return scan.StatusFailed, fmt.Sprintf("all %d plugins failed", failed)
	default:
		return scan.StatusPartiallySucceeded, fmt.Sprintf("%d of %d plugins failed", failed, succeeded+failed)
	}
}

// finish hands the result to the archiver and folds archive failures
// into the returned error without touching the scan status.
func (w *Workflow) finish(logger zerolog.Logger, result scan.Result, runErr error) (scan.Result, error) {
	if w.archiver != nil {
		if err := w.archiver.Archive(result); err != nil {
			logger.Error().Err(err).Msg("archiving scan results failed")
			runErr = errors.Join(runErr, fmt.Errorf("%w: %v", ErrArchive, err))
		}
	}
	return result, runErr
}
