package health

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"syscall"
)

// DefaultMinSize is the smallest target size considered plausible media.
const DefaultMinSize = 1024

// readProbeSize is how many leading bytes are read to prove the target is
// readable.
const readProbeSize = 1024

// Classify runs the Phase-1 checks on one symlink. Checks run in a fixed
// priority order and the first failure wins: unresolved target, read
// permission, size, then a short read. It never panics; unexpected faults
// become StatusError.
func Classify(fsys FileSystem, e Entry, minSize int64) (r Result) {
	r = Result{Path: e.Path, Target: e.Target, Phase: PhaseBasic}
	defer func() {
		if p := recover(); p != nil {
			r.Status = StatusError
			r.Size = 0
			r.Detail = fmt.Sprint(p)
		}
	}()

	if r.Target == "" {
		target, err := fsys.Readlink(e.Path)
		if err != nil {
			return fail(r, StatusError, err)
		}
		r.Target = target
	}

	fi, err := fsys.Stat(e.Path)
	if err != nil {
		switch {
		case unresolved(err):
			return fail(r, StatusBroken, err)
		case errors.Is(err, fs.ErrPermission):
			return fail(r, StatusInaccessible, err)
		default:
			return fail(r, StatusError, err)
		}
	}

	if err := fsys.Access(e.Path); err != nil {
		return fail(r, StatusInaccessible, err)
	}

	size := fi.Size()
	if size < minSize {
		r.Status = StatusSmallFile
		r.Size = size
		return r
	}

	if err := readHead(fsys, e.Path, size); err != nil {
		return fail(r, StatusIOError, err)
	}

	r.Status = StatusOK
	r.Size = size
	return r
}

func fail(r Result, status Status, err error) Result {
	r.Status = status
	r.Size = 0
	r.Detail = err.Error()
	return r
}

// unresolved reports whether err means the link target cannot be reached
// at all (missing, a loop, or a path component that is not a directory).
func unresolved(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ELOOP) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

func readHead(fsys FileSystem, path string, size int64) error {
	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n := int64(readProbeSize)
	if size < n {
		n = size
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
