package pipeline

import (
	"errors"
	"fmt"

	"github.com/backmassage/symguard/internal/health"
)

// ErrDuplicatePath means the same path was reported by both phases.
var ErrDuplicatePath = errors.New("duplicate path in problem set")

// Aggregate concatenates the Phase-1 and Phase-2 problems into one
// ProblemSet. Phase 2 only sees Phase-1 OK entries, so a repeated path is a
// programming error, reported as ErrDuplicatePath.
func Aggregate(phase1, phase2 []health.Result) (health.ProblemSet, error) {
	set := make(health.ProblemSet, 0, len(phase1)+len(phase2))
	seen := make(map[string]bool, cap(set))
	for _, list := range [][]health.Result{phase1, phase2} {
		for _, r := range list {
			if seen[r.Path] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, r.Path)
			}
			seen[r.Path] = true
			set = append(set, r)
		}
	}
	return set, nil
}
