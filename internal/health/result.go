// Package health classifies symbolic links by the state of their targets.
//
// Phase 1 ([Classify], [Classifier]) is a cheap filesystem check run on a
// bounded worker pool. Phase 2 (package probe) reuses [Result] with the
// CORRUPTED status.
package health

// Status is the outcome of checking one symlink.
type Status string

const (
	StatusOK           Status = "OK"
	StatusBroken       Status = "BROKEN"       // Target does not resolve.
	StatusInaccessible Status = "INACCESSIBLE" // Target exists but is not readable.
	StatusSmallFile    Status = "SMALL_FILE"   // Target smaller than the minimum size.
	StatusIOError      Status = "IO_ERROR"     // Target could not be opened or read.
	StatusError        Status = "ERROR"        // Unexpected fault while checking.
	StatusCorrupted    Status = "CORRUPTED"    // Decode probe found no audio/video.
)

// Phase identifies which validation stage produced a result.
type Phase int

const (
	PhaseBasic  Phase = 1
	PhaseDecode Phase = 2
)

// Entry is one symlink found by the collector.
type Entry struct {
	Path   string
	Target string
}

// Result is the immutable outcome of classifying one symlink in one phase.
type Result struct {
	Path   string `json:"path"`
	Target string `json:"target"`
	Status Status `json:"status"`
	Phase  Phase  `json:"phase"`
	Size   int64  `json:"size"`
	Detail string `json:"error,omitempty"`
}

// IsProblem reports whether r must be surfaced to the user.
func (r Result) IsProblem() bool { return r.Status != StatusOK }

// ProblemSet is the ordered list of non-OK results of a run. Each path
// appears at most once.
type ProblemSet []Result

// Counts tallies the set by status.
func (p ProblemSet) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, r := range p {
		counts[r.Status]++
	}
	return counts
}
