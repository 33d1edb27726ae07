package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/symguard/internal/check"
	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/display"
	"github.com/backmassage/symguard/internal/logging"
	"github.com/backmassage/symguard/internal/pipeline"
	"github.com/backmassage/symguard/internal/report"
	"github.com/backmassage/symguard/internal/schedule"
)

// problemRows caps the problem table printed after a scan; the JSON report
// always has the full list.
const problemRows = 50

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "symguard",
		Short:         "Audit and clean media library symlinks",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newScanCmd(),
		newCheckCmd(),
		newListCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Check every symlink under the roots (dry run unless --real)",
		Long: `Collects every symlink under the roots, runs the basic health checks
in parallel, decodes media targets with ffprobe, then reports the problems.
With --real the problem entries are deleted and the library services are
asked to refresh the affected titles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer log.Close()
			_, err = scanOnce(cmd.Context(), cfg, log, cmd.OutOrStdout())
			return err
		},
	}
	config.BindScanFlags(cmd.Flags())
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [root...]",
		Short: "Check ffprobe, system resources, roots and library services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer log.Close()
			check.RunCheck(cmd.Context(), cfg, log)
			return nil
		},
	}
	config.BindScanFlags(cmd.Flags())
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dir>",
		Short: "Count symlinks in each sub-directory of dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup(cmd, nil)
			if err != nil {
				return err
			}
			defer log.Close()
			base := config.NormalizeDirArg(args[0])
			counts, err := pipeline.CountLinks(cmd.Context(), base, log)
			if err != nil {
				return err
			}
			display.RenderDirCounts(cmd.OutOrStdout(), base, counts)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [root...]",
		Short: "Run scans on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer log.Close()
			return watch(cmd.Context(), cfg, log, cmd.OutOrStdout())
		},
	}
	config.BindScanFlags(cmd.Flags())
	config.BindWatchFlags(cmd.Flags())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "symguard %s (%s)\n", version, commit)
		},
	}
}

// setup loads and validates the configuration for cmd, opens the logger
// and prints the banner. Errors before the logger exists are returned to
// run, which prints them to stderr.
func setup(cmd *cobra.Command, roots []string) (*config.Config, *logging.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		Flags:      cmd.Flags(),
		Roots:      roots,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return nil, nil, err
	}
	display.PrintBanner(cmd.OutOrStdout(), version)
	return &cfg, log, nil
}

// scanOnce runs one full scan and writes its reports. An interrupted scan
// is not an error.
func scanOnce(ctx context.Context, cfg *config.Config, log *logging.Logger, out io.Writer) (*pipeline.Result, error) {
	if err := check.CheckRoots(cfg.Roots, cfg.Mode == config.ModeReal); err != nil {
		log.Error("%v", err)
		return nil, err
	}

	caps := check.Detect(ctx, cfg)
	for _, w := range caps.Resources.Warnings() {
		log.Warn("%s", w)
	}

	log.Info("=== SymGuard v%s ===", version)
	log.Info("Roots: %s", strings.Join(cfg.Roots, ", "))
	if cfg.DryRun() {
		log.Warn("DRY RUN: nothing will be deleted")
	} else {
		log.Warn("REAL MODE: problem symlinks will be deleted")
	}

	stopNotice := context.AfterFunc(ctx, func() {
		log.Warn("Received interrupt, stopping after the current step")
	})
	defer stopNotice()

	res, err := pipeline.NewRunner(cfg, log, caps.Probe).Run(ctx)
	if err != nil {
		log.Error("%v", err)
		return nil, err
	}

	// Reports are written even for an interrupted run.
	paths, werr := report.WriteAll(context.WithoutCancel(ctx), cfg.ReportDir, cfg.MetricsFile, res)
	if werr != nil {
		log.Error("Writing reports: %v", werr)
	}

	display.RenderProblems(out, res.Problems, problemRows)
	display.RenderServices(out, res.Notification)
	display.RenderSummary(out, res)

	if paths.Report != "" {
		log.Info("Report: %s", paths.Report)
	}
	if paths.Ledger != "" {
		log.Info("Deleted files log: %s", paths.Ledger)
	}
	if paths.Metrics != "" {
		log.Info("Metrics: %s", paths.Metrics)
	}
	if res.Interrupted {
		log.Warn("Run interrupted; partial results reported")
	} else if len(res.Problems) == 0 {
		log.Success("No problems found")
	}
	return res, werr
}

// watch runs scanOnce on cfg.Schedule until ctx is cancelled. A failed run
// is logged and the next one still fires.
func watch(ctx context.Context, cfg *config.Config, log *logging.Logger, out io.Writer) error {
	if err := check.CheckRoots(cfg.Roots, cfg.Mode == config.ModeReal); err != nil {
		return err
	}
	next, err := schedule.Next(cfg.Schedule, time.Now())
	if err != nil {
		return err
	}

	s := schedule.New(log.Sugar())
	if err := s.Add("scan", cfg.Schedule, func(ctx context.Context) error {
		_, err := scanOnce(ctx, cfg, log, out)
		return err
	}); err != nil {
		return err
	}
	log.Info("Watching %s on %q; first run at %s", strings.Join(cfg.Roots, ", "), cfg.Schedule, next.Format("2006-01-02 15:04:05"))
	return s.Run(ctx)
}
