package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} in input with the
// named environment variable's value, or the default if unset/empty.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// substituteServerConfig runs SubstituteEnvVars over every string field of
// a ServerConfig in place.
func substituteServerConfig(sc *ServerConfig) {
	sc.BaseURL = SubstituteEnvVars(sc.BaseURL)
	sc.ListenAddr = SubstituteEnvVars(sc.ListenAddr)
	sc.JWTSeed = SubstituteEnvVars(sc.JWTSeed)
	sc.EncSeed = SubstituteEnvVars(sc.EncSeed)
	sc.PHCURL = SubstituteEnvVars(sc.PHCURL)
	for i, alias := range sc.HostAliases {
		sc.HostAliases[i] = SubstituteEnvVars(alias)
	}
}

// SubstituteEnvVarsInConfig recursively substitutes ${VAR} references
// across every field of cfg that might plausibly carry one (seeds, URLs,
// secrets, DSNs).
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.PHC != nil {
		substituteServerConfig(&cfg.PHC.ServerConfig)
		cfg.PHC.MasterEncSeed = SubstituteEnvVars(cfg.PHC.MasterEncSeed)
		cfg.PHC.AttrSecretSeed = SubstituteEnvVars(cfg.PHC.AttrSecretSeed)
		cfg.PHC.PPNonceSecretSeed = SubstituteEnvVars(cfg.PHC.PPNonceSecretSeed)
		cfg.PHC.HubSealSecretSeed = SubstituteEnvVars(cfg.PHC.HubSealSecretSeed)
		cfg.PHC.AdminKey = SubstituteEnvVars(cfg.PHC.AdminKey)
		cfg.PHC.TranscryptorURL = SubstituteEnvVars(cfg.PHC.TranscryptorURL)
		cfg.PHC.AuthServerURL = SubstituteEnvVars(cfg.PHC.AuthServerURL)
		cfg.PHC.AdminListenAddr = SubstituteEnvVars(cfg.PHC.AdminListenAddr)
		cfg.PHC.Storage.DSN = SubstituteEnvVars(cfg.PHC.Storage.DSN)
	}
	if cfg.Transcryptor != nil {
		substituteServerConfig(&cfg.Transcryptor.ServerConfig)
		cfg.Transcryptor.MasterEncSeed = SubstituteEnvVars(cfg.Transcryptor.MasterEncSeed)
		cfg.Transcryptor.FactorSecretSeed = SubstituteEnvVars(cfg.Transcryptor.FactorSecretSeed)
	}
	if cfg.AuthServer != nil {
		substituteServerConfig(&cfg.AuthServer.ServerConfig)
		cfg.AuthServer.YiviServerURL = SubstituteEnvVars(cfg.AuthServer.YiviServerURL)
		cfg.AuthServer.YiviServerKey = SubstituteEnvVars(cfg.AuthServer.YiviServerKey)
		cfg.AuthServer.YiviRequestorSeed = SubstituteEnvVars(cfg.AuthServer.YiviRequestorSeed)
		cfg.AuthServer.AuthStateSecretSeed = SubstituteEnvVars(cfg.AuthServer.AuthStateSecretSeed)
		cfg.AuthServer.AttrKeySecretSeed = SubstituteEnvVars(cfg.AuthServer.AttrKeySecretSeed)
	}

	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
}

// GetEnvironment returns the current environment from PUBHUBS_ENV or
// ENVIRONMENT, defaulting to development.
func GetEnvironment() Environment {
	env := os.Getenv("PUBHUBS_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		return EnvDevelopment
	}
	return Environment(strings.ToLower(env))
}

// IsProduction reports whether GetEnvironment is production.
func IsProduction() bool {
	return GetEnvironment() == EnvProduction
}
