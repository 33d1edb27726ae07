// Package check provides host diagnostics (the check command) and the
// pre-run validation of scan roots and optional capabilities.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/backmassage/symguard/internal/arr"
	"github.com/backmassage/symguard/internal/config"
	"github.com/backmassage/symguard/internal/probe"
)

// Sentinel errors returned by CheckRoots.
var (
	ErrRootNotFound    = errors.New("scan root does not exist")
	ErrRootNotDir      = errors.New("scan root is not a directory")
	ErrRootNotReadable = errors.New("no read access to scan root")
	ErrRootNotWritable = errors.New("no write access to scan root (required in real mode)")
)

// serviceTimeout bounds each reachability probe of the check command.
const serviceTimeout = 5 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// CheckRoots verifies every root is a readable directory, and writable
// when needWrite is set. The first failure is returned wrapped with its
// path.
func CheckRoots(roots []string, needWrite bool) error {
	for _, root := range roots {
		fi, err := os.Stat(root)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("%w: %s", ErrRootNotFound, root)
		case err != nil:
			return fmt.Errorf("%w: %s: %v", ErrRootNotReadable, root, err)
		case !fi.IsDir():
			return fmt.Errorf("%w: %s", ErrRootNotDir, root)
		}
		if unix.Access(root, unix.R_OK|unix.X_OK) != nil {
			return fmt.Errorf("%w: %s", ErrRootNotReadable, root)
		}
		if needWrite && unix.Access(root, unix.W_OK) != nil {
			return fmt.Errorf("%w: %s", ErrRootNotWritable, root)
		}
	}
	return nil
}

// Capabilities are the optional features detected once at startup.
type Capabilities struct {
	Probe        bool
	ProbeVersion string
	Resources    Resources
}

// Detect resolves the optional capabilities for cfg: probe availability
// (one version query) and system resources measured at the first root.
func Detect(ctx context.Context, cfg *config.Config) Capabilities {
	var caps Capabilities
	if v, err := probe.NewProber(cfg.ProbeBin, cfg.ProbeTimeout).Version(ctx); err == nil {
		caps.Probe = true
		caps.ProbeVersion = v
	}
	path := "/"
	if len(cfg.Roots) > 0 {
		path = cfg.Roots[0]
	}
	caps.Resources = SystemResources(ctx, path)
	return caps
}

// RunCheck runs the informational check flow: probe tool, system resources
// and reachability of every configured service. It never stops on failure.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger) Capabilities {
	log.Info("=== System Check ===")

	caps := Detect(ctx, cfg)
	if caps.Probe {
		log.Success("%s: %s", cfg.ProbeBin, caps.ProbeVersion)
	} else {
		log.Warn("%s not found; decode check (Phase 2) unavailable", cfg.ProbeBin)
	}

	logResources(caps.Resources, log)

	for _, root := range cfg.Roots {
		if err := CheckRoots([]string{root}, cfg.Mode == config.ModeReal); err != nil {
			log.Error("%v", err)
		} else {
			log.Success("Root OK: %s", root)
		}
	}

	checkServices(ctx, cfg, log)
	return caps
}

func logResources(r Resources, log Logger) {
	if !r.Known {
		log.Warn("System resources: unknown")
		return
	}
	log.Info("CPUs: %d", r.CPUs)
	log.Info("Memory available: %.1f GiB", float64(r.MemAvailable)/gib)
	log.Info("Disk free: %.1f GiB", float64(r.DiskFree)/gib)
	log.Info("Load average (1m): %.2f", r.Load1)
	warnings := r.Warnings()
	for _, w := range warnings {
		log.Warn("%s", w)
	}
	if len(warnings) == 0 {
		log.Success("System resources OK")
	}
}

func checkServices(ctx context.Context, cfg *config.Config, log Logger) {
	hc := arr.NewHTTPClient(arr.ClientConfig{Timeout: serviceTimeout})
	keyPaths := append(append([]string{}, arr.DefaultKeyPaths...), cfg.APIKeyPaths...)
	vars := arr.KeyPathVarsFromEnv()

	enabled := cfg.EnabledServices()
	if len(enabled) == 0 {
		log.Warn("No library services enabled")
		return
	}
	log.Info("Checking %d enabled service(s)", len(enabled))
	for _, svc := range enabled {
		if svc.URL == "" {
			log.Warn("%s: no URL configured", svc.Name)
			continue
		}
		key := svc.APIKey
		if key == "" {
			k, path, err := arr.DetectAPIKey(svc.Name, keyPaths, vars)
			if err != nil {
				log.Warn("%s: no API key configured or detected", svc.Name)
				continue
			}
			log.Info("%s: API key detected in %s", svc.Name, path)
			key = k
		}
		st, err := arr.NewClient(svc.Name, svc.URL, key, hc).Status(ctx)
		var se *arr.StatusError
		switch {
		case errors.As(err, &se) && se.Temporary():
			log.Warn("%s: temporarily unavailable (HTTP %d)", svc.Name, se.StatusCode)
			continue
		case err != nil:
			log.Error("%s: %v", svc.Name, err)
			continue
		}
		log.Success("%s: %s %s at %s", svc.Name, st.AppName, st.Version, svc.URL)
	}
}
