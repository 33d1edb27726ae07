// Package report persists the outputs of a run: the deletion ledger, the
// JSON run report, and an optional Prometheus textfile.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/symguard/internal/remediate"
)

const (
	// fileStamp is the timestamp embedded in output file names.
	fileStamp  = "20060102_150405"
	headerTime = "2006-01-02 15:04:05"
)

// LedgerName is the deletion ledger file name for a run started at t.
func LedgerName(t time.Time) string {
	return "deleted_files_" + t.Format(fileStamp) + ".log"
}

// FormatLedger writes the ledger body: two header lines, a blank line, then
// one "[STATUS] path -> target (size bytes)" line per record.
func FormatLedger(w io.Writer, now time.Time, records []remediate.Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Deleted files - %s\n", now.Format(headerTime))
	fmt.Fprintf(bw, "# Total: %d files\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(bw, "[%s] %s -> %s (%d bytes)\n", r.Status, r.Path, r.Target, r.Size)
	}
	return bw.Flush()
}

// WriteLedger writes the ledger into dir and returns its path. Nothing is
// written when records is empty.
func WriteLedger(dir string, now time.Time, records []remediate.Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}
	path := filepath.Join(dir, LedgerName(now))
	if err := writeFile(path, func(w io.Writer) error {
		return FormatLedger(w, now, records)
	}); err != nil {
		return "", fmt.Errorf("write ledger: %w", err)
	}
	return path, nil
}

// writeFile creates path (and its directory) and fills it with fill.
func writeFile(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
