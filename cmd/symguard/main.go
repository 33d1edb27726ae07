// Command symguard audits symlink trees under media library roots, reports
// broken or corrupted targets, optionally deletes them, and tells the
// media-library services to rescan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// SIGINT/SIGTERM cancel the run; the pipeline stops at the next stage
	// boundary, skips deletion and still writes its reports.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "symguard: %v\n", err)
		return 1
	}
	return 0
}
