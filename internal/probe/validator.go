package probe

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/symguard/internal/health"
)

// FilesPerMinute is the observed ffprobe throughput used for time estimates.
const FilesPerMinute = 30

// progressEvery controls how often progress is logged.
const progressEvery = 100

// Supported media file extensions (lowercase, with leading dot).
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".m4v":  true,
	".webm": true,
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".aac":  true,
}

// Logger is the minimal logging interface needed by Validator.
type Logger interface {
	Info(string, ...interface{})
	Warn(string, ...interface{})
	Debug(string, ...interface{})
}

// IsMediaFile reports whether path has a media extension (case-insensitive).
func IsMediaFile(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}

// EstimateDuration returns the expected wall time for probing n files.
func EstimateDuration(n int) time.Duration {
	return time.Duration(n) * time.Minute / FilesPerMinute
}

// Outcome summarizes one Phase-2 pass.
type Outcome struct {
	Media       int             // Media files eligible for probing.
	Analyzed    int             // Files whose probe completed.
	Problems    []health.Result // CORRUPTED results, in probe order.
	Interrupted bool            // The pass stopped early on cancellation.
}

// Validator probes Phase-1 OK results one at a time.
type Validator struct {
	Prober *Prober
	Log    Logger
}

// Run probes every media file in ok. Each completed probe is passed to rec
// as a Phase-2 result. On cancellation the probe in flight is discarded,
// never reported as corrupted, and Run returns what it has so far with
// Interrupted set.
func (v *Validator) Run(ctx context.Context, ok []health.Result, rec health.Recorder) Outcome {
	var media []health.Result
	for _, r := range ok {
		if IsMediaFile(r.Path) {
			media = append(media, r)
		}
	}
	out := Outcome{Media: len(media)}
	if len(media) == 0 {
		v.Log.Info("No media files to verify")
		return out
	}
	v.Log.Info("%d media files to verify (estimated %s)", len(media), EstimateDuration(len(media)).Round(time.Second))

	for _, r := range media {
		if ctx.Err() != nil {
			out.Interrupted = true
			break
		}
		err := v.Prober.Check(ctx, r.Path)
		if ctx.Err() != nil {
			out.Interrupted = true
			break
		}

		res := r
		res.Phase = health.PhaseDecode
		res.Detail = ""
		if err != nil {
			res.Status = health.StatusCorrupted
			res.Detail = err.Error()
			out.Problems = append(out.Problems, res)
			v.Log.Warn("[CORRUPTED] %s", filepath.Base(r.Path))
			v.Log.Debug("  %s: %v", r.Path, err)
		} else {
			res.Status = health.StatusOK
		}
		out.Analyzed++
		if rec != nil {
			rec.Record(res)
		}
		if out.Analyzed%progressEvery == 0 {
			v.Log.Info("Progress: %d/%d", out.Analyzed, len(media))
		}
	}

	if out.Interrupted {
		v.Log.Warn("Interrupted after %d/%d files", out.Analyzed, len(media))
	}
	return out
}
