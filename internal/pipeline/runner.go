package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/symguard/internal/arr"
	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/logging"
	"github.com/backmassage/symguard/internal/notify"
	"github.com/backmassage/symguard/internal/probe"
	"github.com/backmassage/symguard/internal/remediate"
)

// maxBackoff caps the HTTP retry backoff.
const maxBackoff = 30 * time.Second

// Result is everything one run produced. Problems and Deleted are kept even
// when the run was interrupted.
type Result struct {
	RunID         string
	Mode          config.Mode
	Depth         config.Depth
	Roots         []string
	Started       time.Time
	Finished      time.Time
	Stats         Snapshot
	Problems      health.ProblemSet
	Deleted       []remediate.Record
	Notification  *notify.Summary
	Phase2Skipped bool
	Interrupted   bool
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// DeletedPaths returns the removed paths in deletion order.
func (r *Result) DeletedPaths() []string {
	out := make([]string, len(r.Deleted))
	for i, d := range r.Deleted {
		out[i] = d.Path
	}
	return out
}

// Runner holds the stages of a scan. Nil Validator disables Phase 2; nil
// Notifier disables notification.
type Runner struct {
	Cfg        *config.Config
	Log        *logging.Logger
	Classifier *health.Classifier
	Validator  *probe.Validator
	Remediator *remediate.Remediator
	Notifier   *notify.Notifier
	Now        func() time.Time
}

// NewRunner builds the stages from cfg. probeOK is the startup capability
// check for the probe tool; when false Phase 2 is skipped with a warning.
func NewRunner(cfg *config.Config, log *logging.Logger, probeOK bool) *Runner {
	r := &Runner{
		Cfg:        cfg,
		Log:        log,
		Classifier: health.NewClassifier(cfg.Workers, cfg.MinFileSize),
		Remediator: remediate.New(log),
		Now:        time.Now,
	}
	if cfg.Depth == config.DepthFull {
		if probeOK {
			r.Validator = &probe.Validator{Prober: probe.NewProber(cfg.ProbeBin, cfg.ProbeTimeout), Log: log}
		} else {
			log.Warn("%s not available; decode check disabled", cfg.ProbeBin)
		}
	}
	if cfg.Notify != config.NotifyNone && !cfg.NoMediaScan {
		r.Notifier = notify.New(notify.Options{
			Services: cfg.OrderedServices(),
			HTTP: arr.NewHTTPClient(arr.ClientConfig{
				Timeout: cfg.HTTPTimeout,
				Retry: arr.RetryPolicy{
					MaxRetries:   cfg.Retries,
					InitialDelay: cfg.RetryBackoff,
					MaxDelay:     maxBackoff,
					Multiplier:   2,
				},
			}),
			CommandDelay: cfg.CommandDelay,
			KeyPaths:     append(append([]string{}, arr.DefaultKeyPaths...), cfg.APIKeyPaths...),
			KeyVars:      arr.KeyPathVarsFromEnv(),
		}, log)
	}
	return r
}

// Run executes one scan. It returns an error only for orchestration
// failures (an unreadable root, an inconsistent problem set). A cancelled
// ctx ends the run early with Interrupted set; nothing is deleted or
// notified after an interruption.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.Cfg
	res := &Result{
		RunID:   uuid.NewString(),
		Mode:    cfg.Mode,
		Depth:   cfg.Depth,
		Roots:   cfg.Roots,
		Started: r.Now(),
	}
	stats := NewRunStats()
	stats.OnProgress = func(done, total int64) {
		r.Log.Info("Progress: %d/%d", done, total)
	}
	defer func() {
		res.Finished = r.Now()
		res.Stats = stats.Snapshot()
	}()

	r.Log.Info("Collecting symlinks in %s", strings.Join(cfg.Roots, ", "))
	entries, err := Collect(ctx, cfg.Roots, r.Log)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupted = true
			r.Log.Warn("Interrupted during collection")
			return res, nil
		}
		return nil, err
	}
	stats.SetCollected(len(entries))
	r.Log.Info("Found %d symlinks", len(entries))

	// --- Phase 1 ---
	r.Log.Info("Phase 1: basic checks with %d workers", r.Classifier.Workers)
	results, err := r.Classifier.Run(ctx, entries, stats)
	ok, phase1 := health.Split(results)
	if err != nil {
		res.Interrupted = true
		r.Log.Warn("Phase 1 interrupted after %d/%d symlinks", len(results), len(entries))
	}
	r.Log.Info("Phase 1: %d OK, %d problem(s)", len(ok), len(phase1))

	// --- Phase 2 ---
	var phase2 []health.Result
	switch {
	case res.Interrupted:
		res.Phase2Skipped = true
	case r.Validator == nil:
		res.Phase2Skipped = true
		r.Log.Debug("Phase 2 skipped")
	default:
		r.Log.Info("Phase 2: decode check")
		out := r.Validator.Run(ctx, ok, stats)
		phase2 = out.Problems
		res.Interrupted = out.Interrupted
		r.Log.Info("Phase 2: %d/%d analyzed, %d corrupted", out.Analyzed, out.Media, len(phase2))
	}

	problems, err := Aggregate(phase1, phase2)
	if err != nil {
		return nil, err
	}
	res.Problems = problems

	if res.Interrupted {
		r.Log.Warn("Run interrupted; no deletions or notifications")
		return res, nil
	}

	if cfg.Mode == config.ModeReal && len(problems) > 0 {
		r.Log.Info("Deleting %d problem entries", len(problems))
		res.Deleted = r.Remediator.Apply(ctx, problems)
		var bytes int64
		for _, d := range res.Deleted {
			bytes += d.Size
		}
		stats.AddDeleted(len(res.Deleted), bytes)
		if ctx.Err() != nil {
			res.Interrupted = true
			return res, nil
		}
	}

	r.notify(ctx, res)
	return res, nil
}

// notify sends the configured notification. Real runs notify only when
// something was deleted; dry runs send the bulk rescan.
func (r *Runner) notify(ctx context.Context, res *Result) {
	if r.Notifier == nil {
		return
	}
	mode := r.Cfg.Notify
	if res.Mode == config.ModeDryRun {
		if mode != config.NotifyBulk {
			return
		}
	} else if len(res.Deleted) == 0 {
		return
	}

	sum, err := r.Notifier.Notify(ctx, mode, res.DeletedPaths())
	if err != nil {
		r.Log.Warn("Notification skipped: %v", err)
		return
	}
	res.Notification = &sum
	if sum.Interrupted {
		res.Interrupted = true
	}
}
