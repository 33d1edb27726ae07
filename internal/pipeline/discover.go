package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/backmassage/symguard/internal/health"
	"github.com/backmassage/symguard/internal/logging"
)

// Collect walks every root without following symlinked directories and
// returns each entry that is itself a symlink, broken ones included. Links
// to directories are skipped. Unreadable subdirectories are logged and
// skipped; a root that cannot be read is an error.
func Collect(ctx context.Context, roots []string, log *logging.Logger) ([]health.Entry, error) {
	var entries []health.Entry
	for _, root := range roots {
		found, err := collectRoot(ctx, root, log)
		entries = append(entries, found...)
		if err != nil {
			return entries, err
		}
	}
	return entries, nil
}

// collectRoot walks root. A root that is itself a symlink is resolved once
// so the walk descends into it; links below it are still not followed.
// Entry paths stay under root as given.
func collectRoot(ctx context.Context, root string, log *logging.Logger) ([]health.Entry, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}

	var entries []health.Entry
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == walkRoot {
				return err
			}
			log.Warn("Skipping unreadable %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			log.Debug("Skipping directory link %s", path)
			return nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			// Classify reads the link again and reports the failure.
			target = ""
		}
		entries = append(entries, health.Entry{Path: underRoot(root, walkRoot, path), Target: target})
		return nil
	})
	if err != nil {
		return entries, fmt.Errorf("scan root %s: %w", root, err)
	}
	return entries, nil
}

// underRoot maps path, found below the resolved walkRoot, back under root.
func underRoot(root, walkRoot, path string) string {
	if root == walkRoot {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

// DirCount is the number of symlinks below one sub-directory.
type DirCount struct {
	Name  string
	Path  string
	Links int
}

// CountLinks returns the symlink count of each immediate sub-directory of
// base, in name order. Hidden directories are ignored.
func CountLinks(ctx context.Context, base string, log *logging.Logger) ([]DirCount, error) {
	des, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", base, err)
	}
	var out []DirCount
	for _, de := range des {
		if de.Name()[0] == '.' {
			continue
		}
		p := filepath.Join(base, de.Name())
		if !de.IsDir() {
			// Symlinked library folders are listed like real ones.
			if st, err := os.Stat(p); err != nil || !st.IsDir() {
				continue
			}
		}
		entries, err := collectRoot(ctx, p, log)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn("%v", err)
			continue
		}
		out = append(out, DirCount{Name: de.Name(), Path: p, Links: len(entries)})
	}
	return out, nil
}
