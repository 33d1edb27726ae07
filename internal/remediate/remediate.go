// Package remediate deletes problem symlinks and records what was removed.
package remediate

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/backmassage/symguard/internal/health"
)

// Record describes one confirmed removal. Status, Target and Size are the
// values observed before deletion.
type Record struct {
	Path      string        `json:"path"`
	Target    string        `json:"target"`
	Status    health.Status `json:"status"`
	Size      int64         `json:"size"`
	DeletedAt time.Time     `json:"deleted_at"`
}

// Logger is the minimal logging interface needed by Remediator.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// Remover abstracts the two filesystem calls deletion needs.
type Remover interface {
	Lstat(name string) (fs.FileInfo, error)
	Remove(name string) error
}

type osRemover struct{}

func (osRemover) Lstat(name string) (fs.FileInfo, error) { return os.Lstat(name) }
func (osRemover) Remove(name string) error               { return os.Remove(name) }

// Remediator removes ProblemSet entries one at a time.
type Remediator struct {
	FS  Remover
	Log Logger
	Now func() time.Time
}

// New returns a Remediator on the real filesystem.
func New(log Logger) *Remediator {
	return &Remediator{FS: osRemover{}, Log: log, Now: time.Now}
}

// Apply deletes every entry of problems and returns a record per confirmed
// removal. A symlink is unlinked without being followed; a plain file left
// at the path is removed; anything else is reported as not found. Per-entry
// failures are logged and skipped, so Apply on an already-cleaned set is a
// no-op. On cancellation Apply stops before the next entry and returns the
// records gathered so far.
func (r *Remediator) Apply(ctx context.Context, problems health.ProblemSet) []Record {
	var records []Record
	for i, p := range problems {
		if ctx.Err() != nil {
			r.Log.Warn("Interrupted; %d/%d entries processed", i, len(problems))
			break
		}
		rec, ok := r.remove(p)
		if ok {
			records = append(records, rec)
		}
	}
	return records
}

func (r *Remediator) remove(p health.Result) (Record, bool) {
	fi, err := r.FS.Lstat(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.Log.Warn("Not found: %s", p.Path)
		} else {
			r.Log.Error("Cannot inspect %s: %v", p.Path, err)
		}
		return Record{}, false
	}

	kind := "file"
	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		kind = "link"
	case fi.Mode().IsRegular():
	default:
		r.Log.Warn("Not found: %s (not a link or regular file)", p.Path)
		return Record{}, false
	}

	if err := r.FS.Remove(p.Path); err != nil {
		r.Log.Error("Delete failed %s: %v", p.Path, err)
		return Record{}, false
	}
	r.Log.Success("Deleted %s [%s]: %s", kind, p.Status, p.Path)
	return Record{
		Path:      p.Path,
		Target:    p.Target,
		Status:    p.Status,
		Size:      p.Size,
		DeletedAt: r.Now(),
	}, true
}
