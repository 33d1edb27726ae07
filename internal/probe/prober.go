package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 15 * time.Second

// versionTimeout bounds the startup capability probe.
const versionTimeout = 5 * time.Second

// ErrNoStreams is reported when ffprobe succeeds but lists neither an audio
// nor a video stream.
var ErrNoStreams = errors.New("no audio or video stream")

// Runner executes name with args and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober wraps one ffprobe binary.
type Prober struct {
	Bin     string
	Timeout time.Duration
	Run     Runner
}

// NewProber returns a Prober for bin using real subprocesses.
func NewProber(bin string, timeout time.Duration) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{Bin: bin, Timeout: timeout, Run: execRunner}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Check probes path and returns nil when it has an audio or video stream.
// A cancelled parent context is returned as ctx.Err() so callers can tell an
// interrupt from a bad file.
func (p *Prober) Check(ctx context.Context, path string) error {
	pctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := p.Run(pctx, p.Bin,
		"-v", "error",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffprobe timed out after %s", p.Timeout)
		}
		return fmt.Errorf("ffprobe: %w", err)
	}
	if !HasMediaStream(ParseCodecTypes(out)) {
		return ErrNoStreams
	}
	return nil
}

// ParseCodecTypes splits ffprobe csv=p=0 output into one codec type per
// stream. Exported for testing without a real ffprobe binary.
func ParseCodecTypes(out []byte) []string {
	var types []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimRight(sc.Text(), ","))
		if line != "" {
			types = append(types, line)
		}
	}
	return types
}

// HasMediaStream reports whether types contains "video" or "audio".
func HasMediaStream(types []string) bool {
	for _, t := range types {
		if t == "video" || t == "audio" {
			return true
		}
	}
	return false
}

// Version runs "<bin> -version" and returns its first line. An error means
// the decode check is unavailable on this host.
func (p *Prober) Version(ctx context.Context) (string, error) {
	vctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := p.Run(vctx, p.Bin, "-version")
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", p.Bin, err)
	}
	first := strings.TrimSpace(string(out))
	if idx := strings.Index(first, "\n"); idx > 0 {
		first = first[:idx]
	}
	return first, nil
}
