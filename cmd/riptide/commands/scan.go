package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/riptide-sec/riptide/cmd/riptide/internal/format"
	"github.com/riptide-sec/riptide/pkg/archive"
	"github.com/riptide-sec/riptide/pkg/config"
	"github.com/riptide-sec/riptide/pkg/logging"
	"github.com/riptide-sec/riptide/pkg/scan"
	"github.com/riptide-sec/riptide/pkg/workflow"
)

// scanCmd runs one scan against the configured target.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run vulnerability detection plugins against a target",
	Long: `Runs all configured detection plugins against a single target.
Plugin server backends are started, the target is handed to every plugin,
and the aggregated result is printed and optionally written to a file.

The scan exits 0 when results are usable (all or some plugins succeeded)
and 1 when no plugin produced results.`,
	RunE: runScanCommand,
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	formatter := format.FromCommand(cmd)

	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	mgr := config.NewManager()
	if err := mgr.Load(config.DefaultSources(configPath, cmd.Flags(), debug)...); err != nil {
		exitCode = 1
		return err
	}
	cfg := mgr.Get()
	logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format)

	logger := log.With().Str("command", "scan").Logger()

	runID := scan.NewRunID()
	serverCommands, err := config.ServerCommands(cfg, runID)
	if err != nil {
		logger.Error().Err(err).Msg("Resolving plugin server configuration failed")
		exitCode = 1
		return formatter.PrintFailure(err, workflow.ErrorCode(err))
	}

	wf := workflow.New(serverCommands).WithRunID(runID)
	if cfg.Scan.OutputFilename != "" {
		archiver, err := archive.NewLocalArchiver(cfg.Scan.OutputFilename, cfg.Scan.OutputFormat)
		if err != nil {
			exitCode = 1
			return formatter.PrintFailure(err, workflow.ErrorCode(err))
		}
		wf = wf.WithArchiver(archiver)
	}
	if cfg.Scan.ProbeEnabled {
		wf = wf.WithReachabilityProbe(cfg.Scan.ProbeCount)
	}

	params := scan.TargetParams{
		IP:       cfg.Scan.IP,
		Hostname: cfg.Scan.Hostname,
		URI:      cfg.Scan.URI,
	}

	result, runErr := wf.Run(cmd.Context(), params)
	exitCode = workflow.ExitCode(result, runErr)

	if runErr != nil {
		logger.Error().Err(runErr).Msg("Scan execution failed")
		return formatter.PrintFailure(runErr, workflow.ErrorCode(runErr))
	}
	return formatter.PrintResult(result)
}

func init() {
	config.BindFlags(scanCmd.Flags())
	scanCmd.Flags().StringP("output", "o", "text", "Output format: text, json")
	scanCmd.Flags().Bool("no-color", false, "Disable colored output")
}
