package pipeline

import (
	"go.uber.org/atomic"

	"github.com/backmassage/symguard/internal/health"
)

// progressEvery is how many Phase-1 results pass between progress callbacks.
const progressEvery = 1000

// statuses is every status a run can count.
var statuses = []health.Status{
	health.StatusOK,
	health.StatusBroken,
	health.StatusInaccessible,
	health.StatusSmallFile,
	health.StatusIOError,
	health.StatusError,
	health.StatusCorrupted,
}

// RunStats tracks aggregate counters across a run. Record is called
// concurrently by Phase-1 workers; every counter is atomic so totals are
// exact under any interleaving.
type RunStats struct {
	collected    atomic.Int64
	checked      atomic.Int64
	probed       atomic.Int64
	deleted      atomic.Int64
	deletedBytes atomic.Int64
	byStatus     map[health.Status]*atomic.Int64

	// OnProgress, when set, is called from the recording goroutine every
	// progressEvery Phase-1 results.
	OnProgress func(checked, total int64)
}

// NewRunStats returns zeroed counters.
func NewRunStats() *RunStats {
	s := &RunStats{byStatus: make(map[health.Status]*atomic.Int64, len(statuses))}
	for _, st := range statuses {
		s.byStatus[st] = atomic.NewInt64(0)
	}
	return s
}

// SetCollected records the number of symlinks found.
func (s *RunStats) SetCollected(n int) { s.collected.Store(int64(n)) }

// Record implements health.Recorder. A Phase-2 result replaces the path's
// Phase-1 OK count, so per-status counts always reflect final verdicts.
func (s *RunStats) Record(r health.Result) {
	switch r.Phase {
	case health.PhaseDecode:
		s.probed.Inc()
		if r.Status != health.StatusOK {
			s.byStatus[health.StatusOK].Dec()
			s.counter(r.Status).Inc()
		}
	default:
		n := s.checked.Inc()
		s.counter(r.Status).Inc()
		if s.OnProgress != nil && n%progressEvery == 0 {
			s.OnProgress(n, s.collected.Load())
		}
	}
}

// counter falls back to ERROR for a status the run does not know.
func (s *RunStats) counter(st health.Status) *atomic.Int64 {
	if c, ok := s.byStatus[st]; ok {
		return c
	}
	return s.byStatus[health.StatusError]
}

// AddDeleted counts confirmed removals.
func (s *RunStats) AddDeleted(n int, bytes int64) {
	s.deleted.Add(int64(n))
	s.deletedBytes.Add(bytes)
}

// Snapshot is a point-in-time copy of RunStats.
type Snapshot struct {
	Collected    int64                   `json:"total_symlinks"`
	Checked      int64                   `json:"phase1_checked"`
	Probed       int64                   `json:"phase2_checked"`
	Problems     int64                   `json:"problems"`
	Deleted      int64                   `json:"deleted"`
	DeletedBytes int64                   `json:"deleted_bytes"`
	ByStatus     map[health.Status]int64 `json:"by_status"`
}

// Snapshot copies the current counters.
func (s *RunStats) Snapshot() Snapshot {
	snap := Snapshot{
		Collected:    s.collected.Load(),
		Checked:      s.checked.Load(),
		Probed:       s.probed.Load(),
		Deleted:      s.deleted.Load(),
		DeletedBytes: s.deletedBytes.Load(),
		ByStatus:     make(map[health.Status]int64, len(statuses)),
	}
	for _, st := range statuses {
		n := s.byStatus[st].Load()
		snap.ByStatus[st] = n
		if st != health.StatusOK {
			snap.Problems += n
		}
	}
	return snap
}
