// Package config holds runtime configuration: defaults, file/env loading,
// CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// --- Enum types for validated string fields ---

// Mode selects whether problems are only reported or also deleted.
type Mode string

const (
	ModeDryRun Mode = "dry-run" // Report only (default).
	ModeReal   Mode = "real"    // Delete problem entries.
)

// Depth selects which validation phases run.
type Depth string

const (
	DepthBasic Depth = "basic" // Phase 1 only.
	DepthFull  Depth = "full"  // Phase 1 + ffprobe decode check (default).
)

// NotifyMode selects how media-library services are told about deletions.
type NotifyMode string

const (
	NotifyBulk       NotifyMode = "bulk"       // One rescan per service (default).
	NotifyIndividual NotifyMode = "individual" // One refresh per affected title.
	NotifyNone       NotifyMode = "none"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Known media-library service names.
const (
	ServiceSonarr   = "sonarr"
	ServiceRadarr   = "radarr"
	ServiceBazarr   = "bazarr"
	ServiceProwlarr = "prowlarr"
)

// ServiceOrder is the fixed order services are contacted in.
var ServiceOrder = []string{ServiceSonarr, ServiceRadarr, ServiceBazarr, ServiceProwlarr}

// Service is one media-library endpoint. A service with no URL or API key is
// skipped by the notifier.
type Service struct {
	Name    string
	URL     string
	APIKey  string
	Enabled bool
}

// Config holds all runtime settings. It is populated by [DefaultConfig], then
// [Load] applies file, environment and flag overrides before it is passed (by
// pointer) to packages that need it.
type Config struct {
	// Scan roots (positional args).
	Roots []string

	// Pipeline behavior.
	Mode        Mode
	Depth       Depth
	Notify      NotifyMode
	NoMediaScan bool  // Skip bulk rescans in dry-run mode.
	Workers     int   // Phase-1 pool width. Default: runtime.NumCPU().
	MinFileSize int64 // Default: 1024 bytes.

	// Decode probe.
	ProbeBin     string        // Default: "ffprobe".
	ProbeTimeout time.Duration // Default: 15s.

	// Media-library services.
	Services     map[string]Service
	APIKeyPaths  []string      // Extra config.xml search patterns ({service}, {user}, {home}).
	HTTPTimeout  time.Duration // Default: 30s.
	Retries      int           // Attempts after the first for transient statuses. Default: 3.
	RetryBackoff time.Duration // First backoff delay; doubles per attempt. Default: 1s.
	CommandDelay time.Duration // Spacing between commands to one service. Default: 2s.

	// Outputs.
	ReportDir   string // Default: "." (JSON report and deletion ledger).
	MetricsFile string // Optional Prometheus textfile.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.

	// Watch mode.
	Schedule string // Cron expression, e.g. "@daily".
}

// DefaultConfig returns a Config with the stock service endpoints and the
// timeouts used by the legacy maintenance script.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeDryRun,
		Depth:        DepthFull,
		Notify:       NotifyBulk,
		Workers:      runtime.NumCPU(),
		MinFileSize:  1024,
		ProbeBin:     "ffprobe",
		ProbeTimeout: 15 * time.Second,
		Services:     DefaultServices(),
		HTTPTimeout:  30 * time.Second,
		Retries:      3,
		RetryBackoff: time.Second,
		CommandDelay: 2 * time.Second,
		ReportDir:    ".",
		ColorMode:    ColorAuto,
		Schedule:     "@daily",
	}
}

// DefaultServices returns the four local services on their stock ports.
func DefaultServices() map[string]Service {
	return map[string]Service{
		ServiceSonarr:   {Name: ServiceSonarr, URL: "http://localhost:8989", Enabled: true},
		ServiceRadarr:   {Name: ServiceRadarr, URL: "http://localhost:7878", Enabled: true},
		ServiceBazarr:   {Name: ServiceBazarr, URL: "http://localhost:6767", Enabled: true},
		ServiceProwlarr: {Name: ServiceProwlarr, URL: "http://localhost:9696", Enabled: true},
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// DryRun reports whether deletions are disabled.
func (c *Config) DryRun() bool { return c.Mode != ModeReal }

// Validate checks enum fields and numeric bounds. Roots are checked later,
// against the filesystem, by the check package.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDryRun, ModeReal:
		// valid
	default:
		return errors.New("invalid mode (use 'dry-run' or 'real')")
	}

	switch c.Depth {
	case DepthBasic, DepthFull:
		// valid
	default:
		return errors.New("invalid depth (use 'basic' or 'full')")
	}

	switch c.Notify {
	case NotifyBulk, NotifyIndividual, NotifyNone:
		// valid
	default:
		return errors.New("invalid notify mode (use 'bulk', 'individual' or 'none')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Workers < 1 {
		return fmt.Errorf("invalid worker count %d (must be at least 1)", c.Workers)
	}
	if c.Retries < 0 {
		return fmt.Errorf("invalid retries %d (must not be negative)", c.Retries)
	}
	if c.ProbeTimeout <= 0 || c.HTTPTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MinFileSize < 0 {
		return errors.New("min file size must not be negative")
	}
	for i, root := range c.Roots {
		if root == "" {
			return errors.New("empty scan root")
		}
		c.Roots[i] = filepath.Clean(NormalizeDirArg(root))
	}
	return nil
}

// OrderedServices returns every configured service in [ServiceOrder],
// followed by any extra services sorted by name.
func (c *Config) OrderedServices() []Service {
	var out []Service
	seen := make(map[string]bool, len(c.Services))
	for _, name := range ServiceOrder {
		seen[name] = true
		if s, ok := c.Services[name]; ok {
			out = append(out, s)
		}
	}
	var extra []string
	for name := range c.Services {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, c.Services[name])
	}
	return out
}

// EnabledServices is [Config.OrderedServices] without disabled entries.
func (c *Config) EnabledServices() []Service {
	var out []Service
	for _, s := range c.OrderedServices() {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
