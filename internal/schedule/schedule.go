// Package schedule runs scans periodically on a cron expression (watch
// mode).
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrInvalidSchedule is returned for an unparsable cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule")

// parser accepts standard 5-field expressions and descriptors such as
// "@daily" or "@every 6h".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is one scheduled run. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// cronLogger adapts a zap sugared logger to cron.Logger. Cron's own
// chatter goes to debug.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw("cron: "+msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw("cron: "+msg, append(kv, "error", err)...)
}

// Scheduler runs Jobs on cron schedules. Overlapping runs of the same job
// are skipped, and a panicking job is recovered and logged. Recover must
// wrap the job inside SkipIfStillRunning, or a panic keeps the running
// token and every later tick is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.SugaredLogger
	ctx  context.Context
	stop context.CancelFunc
}

// New returns an idle Scheduler logging through log.
func New(log *zap.SugaredLogger) *Scheduler {
	cl := cronLogger{s: log}
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		log:  log,
		ctx:  ctx,
		stop: stop,
	}
}

// Validate checks spec without scheduling anything.
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	return nil
}

// Next returns the first activation of spec after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, spec, err)
	}
	return sched.Next(from), nil
}

// Add schedules job under name.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if err := Validate(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.log.Infow("scheduled run starting", "job", name)
		if err := job(s.ctx); err != nil {
			s.log.Errorw("scheduled run failed", "job", name, "error", err)
			return
		}
		s.log.Infow("scheduled run finished", "job", name, "elapsed", time.Since(start).Round(time.Second))
	})
	return err
}

// Run starts the scheduler and blocks until ctx is done. Running jobs see
// their context cancelled and Run waits for them to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Infow("next scheduled run", "at", e.Next.Format(time.RFC3339))
	}
	<-ctx.Done()
	s.stop()
	<-s.cron.Stop().Done()
	return nil
}
