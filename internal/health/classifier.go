package health

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Recorder receives every result as soon as it is produced. It is called
// from worker goroutines and must be safe for concurrent use.
type Recorder interface {
	Record(Result)
}

// Classifier runs [Classify] over many entries on a bounded worker pool.
type Classifier struct {
	FS      FileSystem
	Workers int
	MinSize int64
}

// NewClassifier returns a Classifier on the real filesystem. workers < 1
// means one worker per CPU.
func NewClassifier(workers int, minSize int64) *Classifier {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Classifier{FS: OSFileSystem{}, Workers: workers, MinSize: minSize}
}

// Run classifies every entry and returns exactly one result per entry, in
// input order. Workers share nothing but rec and their own result slot.
//
// When ctx is cancelled no new entries are dispatched; Run waits for the
// in-flight ones and returns the completed results (still in input order)
// together with ctx.Err().
func (c *Classifier) Run(ctx context.Context, entries []Entry, rec Recorder) ([]Result, error) {
	results := make([]Result, len(entries))
	done := make([]bool, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)
	for i, e := range entries {
		i, e := i, e
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r := Classify(c.FS, e, c.MinSize)
			results[i] = r
			done[i] = true
			if rec != nil {
				rec.Record(r)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		completed := make([]Result, 0, len(results))
		for i, r := range results {
			if done[i] {
				completed = append(completed, r)
			}
		}
		return completed, err
	}
	return results, nil
}

// Split partitions results into OK entries and problems, preserving order.
func Split(results []Result) (ok []Result, problems []Result) {
	for _, r := range results {
		if r.IsProblem() {
			problems = append(problems, r)
		} else {
			ok = append(ok, r)
		}
	}
	return ok, problems
}
