package config

// This file registers CLI flags on pflag FlagSets. Flags are grouped into
// global (logging/display), scan behavior, and watch. Values are not read
// here: [Load] binds every registered flag to its viper key so that an
// unset flag never overrides the config file or environment.

import (
	"github.com/spf13/pflag"
)

// flagKeys maps a flag name to the viper key it overrides.
var flagKeys = map[string]string{
	"mode":          "mode",
	"depth":         "depth",
	"notify":        "notify",
	"no-media-scan": "no_media_scan",
	"jobs":          "workers",
	"min-file-size": "min_file_size",
	"probe-bin":     "probe.bin",
	"probe-timeout": "probe.timeout",
	"http-timeout":  "http.timeout",
	"retries":       "http.retries",
	"retry-backoff": "http.retry_backoff",
	"command-delay": "http.command_delay",
	"report-dir":    "report_dir",
	"metrics-file":  "metrics_file",
	"log":           "log_file",
	"color":         "color",
	"verbose":       "verbose",
	"cron":          "schedule",
}

// BindGlobalFlags registers --config, --log, --color and --verbose.
func BindGlobalFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "Config file (yaml, json or toml)")
	fs.StringP("log", "l", "", "Append logs to file")
	fs.String("color", string(d.ColorMode), "Color output: auto | always | never")
	fs.BoolP("verbose", "v", false, "Verbose output")
}

// BindScanFlags registers the pipeline behavior flags shared by scan and watch.
func BindScanFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.Bool("real", false, "Delete problem symlinks (default is a dry run)")
	fs.String("mode", string(d.Mode), "Run mode: dry-run | real")
	fs.Bool("quick", false, "Basic checks only; skip the ffprobe decode check")
	fs.String("depth", string(d.Depth), "Validation depth: basic | full")
	fs.String("notify", string(d.Notify), "Library notification: bulk | individual | none")
	fs.Bool("no-media-scan", false, "Do not trigger library rescans in dry-run mode")
	fs.IntP("jobs", "j", d.Workers, "Parallel workers for the basic checks")
	fs.Int64("min-file-size", d.MinFileSize, "Targets smaller than this many bytes are reported")
	fs.String("probe-bin", d.ProbeBin, "ffprobe binary")
	fs.Duration("probe-timeout", d.ProbeTimeout, "Per-file ffprobe timeout")
	fs.Duration("http-timeout", d.HTTPTimeout, "Per-request timeout for library services")
	fs.Int("retries", d.Retries, "Retries after the first request on transient HTTP failures (3 means up to 4 requests)")
	fs.Duration("retry-backoff", d.RetryBackoff, "First retry delay (doubles per attempt)")
	fs.Duration("command-delay", d.CommandDelay, "Pause between commands sent to one service")
	fs.String("report-dir", d.ReportDir, "Directory for the JSON report and deletion ledger")
	fs.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
}

// BindWatchFlags registers --cron.
func BindWatchFlags(fs *pflag.FlagSet) {
	fs.String("cron", DefaultConfig().Schedule, "Cron schedule for watch mode")
}
