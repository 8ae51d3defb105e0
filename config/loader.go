package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoaderOptions configures Load.
type LoaderOptions struct {
	// ConfigDir is the directory containing default.yaml and <env>.yaml
	// overlays (default: "config").
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment Environment
	// DotEnvPath, if non-empty, is passed to godotenv.Load before reading
	// any YAML, so ${VAR} substitution can see .env-defined values.
	DotEnvPath string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns the default loader configuration.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir:  "config",
		DotEnvPath: ".env",
	}
}

// Load reads default.yaml from opts.ConfigDir, merges in "<env>.yaml" if
// present, applies defaults, and substitutes ${VAR} references (after
// loading opts.DotEnvPath, if it exists, via godotenv).
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.DotEnvPath != "" {
		if _, err := os.Stat(options.DotEnvPath); err == nil {
			if err := godotenv.Load(options.DotEnvPath); err != nil {
				return nil, fmt.Errorf("config: loading %s: %w", options.DotEnvPath, err)
			}
		}
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadYAMLFile(filepath.Join(options.ConfigDir, "default.yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: loading default.yaml: %w", err)
	}

	overlayPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	if _, statErr := os.Stat(overlayPath); statErr == nil {
		overlay, err := loadYAMLFile(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("config: loading %s overlay: %w", env, err)
		}
		mergeOverlay(cfg, overlay)
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	return cfg, nil
}

func loadYAMLFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// mergeOverlay replaces base's role-specific sections with overlay's when
// overlay sets them; this is a whole-section overlay (a server role's
// config is replaced entirely, never field-by-field merged), matching how
// <env>.yaml files are meant to be authored: a full section per server.
func mergeOverlay(base, overlay *Config) {
	if overlay.Environment != "" {
		base.Environment = overlay.Environment
	}
	if overlay.PHC != nil {
		base.PHC = overlay.PHC
	}
	if overlay.Transcryptor != nil {
		base.Transcryptor = overlay.Transcryptor
	}
	if overlay.AuthServer != nil {
		base.AuthServer = overlay.AuthServer
	}
	if overlay.Logging.Level != "" {
		base.Logging = overlay.Logging
	}
	if overlay.Metrics.Addr != "" {
		base.Metrics = overlay.Metrics
	}
	if overlay.Health.Timeout != 0 {
		base.Health = overlay.Health
	}
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Health.CacheTTL == 0 {
		cfg.Health.CacheTTL = 10 * time.Second
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = 5 * time.Second
	}

	if cfg.PHC != nil {
		setServerDefaults(&cfg.PHC.ServerConfig)
		if cfg.PHC.AuthTokenValidity == 0 {
			cfg.PHC.AuthTokenValidity = 24 * time.Hour
		}
		if cfg.PHC.PPNonceValidity == 0 {
			cfg.PHC.PPNonceValidity = 30 * time.Second
		}
		if cfg.PHC.TicketValidity == 0 {
			cfg.PHC.TicketValidity = 24 * time.Hour
		}
		if cfg.PHC.HHPPFreshnessLimit == 0 {
			cfg.PHC.HHPPFreshnessLimit = time.Minute
		}
		if cfg.PHC.Storage.Type == "" {
			cfg.PHC.Storage.Type = "memory"
		}
		if cfg.PHC.Storage.MaxConns == 0 {
			cfg.PHC.Storage.MaxConns = 10
		}
	}
	if cfg.Transcryptor != nil {
		setServerDefaults(&cfg.Transcryptor.ServerConfig)
	}
	if cfg.AuthServer != nil {
		setServerDefaults(&cfg.AuthServer.ServerConfig)
		if cfg.AuthServer.AuthWindow == 0 {
			cfg.AuthServer.AuthWindow = 15 * time.Minute
		}
		if cfg.AuthServer.AuthStateValidity == 0 {
			cfg.AuthServer.AuthStateValidity = 5 * time.Minute
		}
		if cfg.AuthServer.ChainedSessionTTL == 0 {
			cfg.AuthServer.ChainedSessionTTL = 5 * time.Minute
		}
	}
}

func setServerDefaults(sc *ServerConfig) {
	if sc.DiscoveryPollInterval == 0 {
		sc.DiscoveryPollInterval = 5 * time.Second
	}
}
