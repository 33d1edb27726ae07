package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SYMGUARD_WORKERS or SYMGUARD_SERVICES_SONARR_API_KEY.
const EnvPrefix = "SYMGUARD"

// LegacyConfigName is the per-user JSON file written by the old maintenance
// script. Its top-level service sections are still honored.
const LegacyConfigName = ".symguard_config.json"

// LoadOptions selects the sources [Load] reads.
type LoadOptions struct {
	ConfigFile string         // Explicit config file; must exist when set.
	Flags      *pflag.FlagSet // Parsed flags; nil means defaults only.
	Roots      []string       // Positional scan roots.
	EnvFiles   []string       // .env files; empty means ".env" in the working directory.
	Home       string         // Home directory override (tests).
}

// Load builds a Config from defaults, an optional config file, the legacy
// JSON file, environment variables and flags, in increasing precedence.
// It does not call [Config.Validate].
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(opts.EnvFiles...)

	home := opts.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	v := viper.New()
	setDefaults(v, &cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("symguard")
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".config", "symguard"))
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.ConfigFile == "" && home != "" {
		if err := mergeLegacyFile(v, filepath.Join(home, LegacyConfigName)); err != nil {
			return cfg, err
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return cfg, err
		}
	}

	cfg.Mode = Mode(v.GetString("mode"))
	cfg.Depth = Depth(v.GetString("depth"))
	cfg.Notify = NotifyMode(v.GetString("notify"))
	cfg.NoMediaScan = v.GetBool("no_media_scan")
	cfg.Workers = v.GetInt("workers")
	cfg.MinFileSize = v.GetInt64("min_file_size")
	cfg.ProbeBin = v.GetString("probe.bin")
	cfg.ProbeTimeout = v.GetDuration("probe.timeout")
	cfg.HTTPTimeout = v.GetDuration("http.timeout")
	cfg.Retries = v.GetInt("http.retries")
	cfg.RetryBackoff = v.GetDuration("http.retry_backoff")
	cfg.CommandDelay = v.GetDuration("http.command_delay")
	cfg.ReportDir = v.GetString("report_dir")
	cfg.MetricsFile = v.GetString("metrics_file")
	cfg.LogFile = v.GetString("log_file")
	cfg.ColorMode = ColorMode(v.GetString("color"))
	cfg.Verbose = v.GetBool("verbose")
	cfg.Schedule = v.GetString("schedule")
	cfg.APIKeyPaths = v.GetStringSlice("api_key_paths")
	cfg.Services = loadServices(v)

	if opts.Flags != nil {
		applyShortcutFlags(&cfg, opts.Flags)
	}

	cfg.Roots = opts.Roots
	if len(cfg.Roots) == 0 {
		cfg.Roots = v.GetStringSlice("roots")
	}
	if len(cfg.Roots) == 0 && home != "" {
		cfg.Roots = []string{filepath.Join(home, "Medias")}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("mode", string(cfg.Mode))
	v.SetDefault("depth", string(cfg.Depth))
	v.SetDefault("notify", string(cfg.Notify))
	v.SetDefault("no_media_scan", cfg.NoMediaScan)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("min_file_size", cfg.MinFileSize)
	v.SetDefault("probe.bin", cfg.ProbeBin)
	v.SetDefault("probe.timeout", cfg.ProbeTimeout)
	v.SetDefault("http.timeout", cfg.HTTPTimeout)
	v.SetDefault("http.retries", cfg.Retries)
	v.SetDefault("http.retry_backoff", cfg.RetryBackoff)
	v.SetDefault("http.command_delay", cfg.CommandDelay)
	v.SetDefault("report_dir", cfg.ReportDir)
	v.SetDefault("metrics_file", cfg.MetricsFile)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("color", string(cfg.ColorMode))
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("schedule", cfg.Schedule)
	v.SetDefault("api_key_paths", []string{})
	v.SetDefault("roots", []string{})
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// applyShortcutFlags applies --real and --quick, which win over --mode and
// --depth when set.
func applyShortcutFlags(cfg *Config, fs *pflag.FlagSet) {
	if isReal, err := fs.GetBool("real"); err == nil && isReal {
		cfg.Mode = ModeReal
	}
	if quick, err := fs.GetBool("quick"); err == nil && quick {
		cfg.Depth = DepthBasic
	}
}

// mergeLegacyFile folds the old JSON layout ({"sonarr": {"url": ...}}) into
// v as services.<name>.* defaults, so the main config file, environment and
// flags all take precedence over it.
func mergeLegacyFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	legacy := viper.New()
	legacy.SetConfigFile(path)
	legacy.SetConfigType("json")
	if err := legacy.ReadInConfig(); err != nil {
		return fmt.Errorf("read legacy config %s: %w", path, err)
	}
	for _, name := range legacy.AllKeys() {
		parts := strings.SplitN(name, ".", 2)
		if len(parts) != 2 {
			continue
		}
		v.SetDefault("services."+name, legacy.Get(name))
	}
	return nil
}

// loadServices overlays configured service fields on [DefaultServices].
// Unknown service names from the config file are added as-is.
func loadServices(v *viper.Viper) map[string]Service {
	services := DefaultServices()
	for name := range v.GetStringMap("services") {
		if _, ok := services[name]; !ok {
			services[name] = Service{Name: name, Enabled: true}
		}
	}
	for name, s := range services {
		prefix := "services." + name + "."
		if v.IsSet(prefix + "url") {
			s.URL = strings.TrimRight(v.GetString(prefix+"url"), "/")
		}
		if v.IsSet(prefix + "api_key") {
			s.APIKey = v.GetString(prefix + "api_key")
		}
		if v.IsSet(prefix + "enabled") {
			s.Enabled = v.GetBool(prefix + "enabled")
		}
		services[name] = s
	}
	return services
}
