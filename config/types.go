// Package config loads the per-server YAML configuration for PHC, the
// Transcryptor and the authentication server, following the same
// environment-overlay shape across all three: a base "default.yaml" file,
// an optional "<env>.yaml" overlay, ${VAR} substitution, and ".env" values
// loaded via github.com/joho/godotenv.
package config

import "time"

// Environment identifies which overlay file to load on top of default.yaml.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config is the top-level document; exactly one of PHC, Transcryptor, or
// AuthServer is populated per process, selected by which cmd/ binary loads
// it. Logging and Metrics are shared by all three roles.
type Config struct {
	Environment  Environment         `yaml:"environment" json:"environment"`
	PHC          *PHCConfig          `yaml:"phc,omitempty" json:"phc,omitempty"`
	Transcryptor *TranscryptorConfig `yaml:"transcryptor,omitempty" json:"transcryptor,omitempty"`
	AuthServer   *AuthServerConfig   `yaml:"authserver,omitempty" json:"authserver,omitempty"`
	Logging      LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics      MetricsConfig       `yaml:"metrics" json:"metrics"`
	Health       HealthConfig        `yaml:"health" json:"health"`
}

// ServerConfig is the subset of fields every server role shares: its own
// base URL, listen address, signing/sealing key seeds, and the hostnames
// it accepts as referring to itself during discovery's self-check.
type ServerConfig struct {
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	ListenAddr  string   `yaml:"listen_addr" json:"listen_addr"`
	HostAliases []string `yaml:"host_aliases,omitempty" json:"host_aliases,omitempty"`

	// JWTSeed and EncSeed seed this server's Ed25519 signing keypair and
	// Ristretto ElGamal keypair respectively, derived once at startup.
	// Hex-encoded, 32+ bytes; read from ${VAR} substitution in practice so
	// the literal seed never sits in a checked-in file.
	JWTSeed string `yaml:"jwt_seed" json:"jwt_seed"`
	EncSeed string `yaml:"enc_seed" json:"enc_seed"`

	PHCURL string `yaml:"phc_url" json:"phc_url"`

	DiscoveryPollInterval time.Duration `yaml:"discovery_poll_interval" json:"discovery_poll_interval"`
}

// PHCConfig configures PubHubs Central.
type PHCConfig struct {
	ServerConfig `yaml:",inline"`

	// MasterEncSeed seeds x_PHC, PHC's half of the master encryption scalar.
	MasterEncSeed string `yaml:"master_enc_seed" json:"master_enc_seed"`

	// AttrSecretSeed seeds the secret used to compute attr_id = H(secret,
	// attr_type_id, value).
	AttrSecretSeed string `yaml:"attr_secret_seed" json:"attr_secret_seed"`

	// PPNonceSecretSeed seeds the key used to seal PpNonce.
	PPNonceSecretSeed string `yaml:"pp_nonce_secret_seed" json:"pp_nonce_secret_seed"`

	// HubSealSecretSeed seeds the secret mixed with a hub's ticket digest
	// to derive the hub<->PHC sealing key HHPP is sealed under.
	HubSealSecretSeed string `yaml:"hub_seal_secret_seed" json:"hub_seal_secret_seed"`

	// AdminKey is the Ed25519 verifying key (hex) used to authenticate
	// POST /.ph/admin/config requests.
	AdminKey string `yaml:"admin_key" json:"admin_key"`

	// TranscryptorURL and AuthServerURL are the peer base URLs PHC fetches
	// discovery info from when assembling the constellation it publishes;
	// every other server learns these URLs from that published
	// constellation instead of needing its own copy.
	TranscryptorURL string `yaml:"transcryptor_url" json:"transcryptor_url"`
	AuthServerURL   string `yaml:"authserver_url" json:"authserver_url"`

	AuthTokenValidity  time.Duration `yaml:"auth_token_validity" json:"auth_token_validity"`
	PPNonceValidity    time.Duration `yaml:"pp_nonce_validity" json:"pp_nonce_validity"`
	TicketValidity     time.Duration `yaml:"ticket_validity" json:"ticket_validity"`
	HHPPFreshnessLimit time.Duration `yaml:"hhpp_freshness_limit" json:"hhpp_freshness_limit"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// AdminListenAddr, if set, serves POST /.ph/admin/config on a separate
	// listener from the public one so the admin surface can sit behind a
	// stricter network policy.
	AdminListenAddr string `yaml:"admin_listen_addr,omitempty" json:"admin_listen_addr,omitempty"`
}

// TranscryptorConfig configures the Transcryptor.
type TranscryptorConfig struct {
	ServerConfig `yaml:",inline"`

	// MasterEncSeed seeds x_T, T's half of the master encryption scalar.
	MasterEncSeed string `yaml:"master_enc_seed" json:"master_enc_seed"`

	// FactorSecretSeed seeds the per-hub factor secret s_h/k_h are derived
	// from.
	FactorSecretSeed string `yaml:"factor_secret_seed" json:"factor_secret_seed"`
}

// AuthServerConfig configures the authentication server.
type AuthServerConfig struct {
	ServerConfig `yaml:",inline"`

	YiviServerURL string `yaml:"yivi_server_url" json:"yivi_server_url"`
	// YiviServerKey is the Yivi server's verifying key (hex), used to
	// validate session-result JWTs in AuthCompleteEP.
	YiviServerKey string `yaml:"yivi_server_key" json:"yivi_server_key"`
	// YiviRequestorSeed seeds the Ed25519 key AS signs disclosure-request
	// JWTs with; the Yivi server authenticates requestors by this key
	// rather than mTLS.
	YiviRequestorSeed string `yaml:"yivi_requestor_seed" json:"yivi_requestor_seed"`

	// PubhubsCardAttrTypeID, when set, marks which configured AttrType is
	// the PubHubs card credential; disclosure requests for it gain the
	// two extra conjuncts pinning registration source/date.
	PubhubsCardAttrTypeID  string `yaml:"pubhubs_card_attr_type_id,omitempty" json:"pubhubs_card_attr_type_id,omitempty"`
	RegistrationSourceAttr string `yaml:"registration_source_attr,omitempty" json:"registration_source_attr,omitempty"`
	RegistrationDateAttr   string `yaml:"registration_date_attr,omitempty" json:"registration_date_attr,omitempty"`

	// AttrTypes is the catalogue WelcomeEP publishes and AuthStartEP
	// resolves requested handles against.
	AttrTypes []AttrTypeConfig `yaml:"attr_types" json:"attr_types"`

	// AuthStateSecretSeed seeds the key AuthState is sealed under between
	// AuthStartEP and AuthCompleteEP.
	AuthStateSecretSeed string `yaml:"auth_state_secret_seed" json:"auth_state_secret_seed"`
	// AttrKeySecretSeed seeds the HKDF secret used by the attr-keys
	// endpoint.
	AttrKeySecretSeed string `yaml:"attr_key_secret_seed" json:"attr_key_secret_seed"`

	AuthWindow            time.Duration `yaml:"auth_window" json:"auth_window"`
	AuthStateValidity     time.Duration `yaml:"auth_state_validity" json:"auth_state_validity"`
	ChainedSessionTTL     time.Duration `yaml:"chained_session_ttl" json:"chained_session_ttl"`
	EnableChainedSessions bool          `yaml:"enable_chained_sessions" json:"enable_chained_sessions"`

	// AttrKeyRotationPeriod quantizes AttrKeys' HKDF timestamp input; see
	// authserver.Server.AttrKeyRotationPeriod.
	AttrKeyRotationPeriod time.Duration `yaml:"attr_key_rotation_period" json:"attr_key_rotation_period"`
}

// AttrTypeConfig describes one attribute type AS can issue, as configured
// by the operator; translated to attr.TypeInfo at startup.
type AttrTypeConfig struct {
	AttrTypeID   string `yaml:"attr_type_id" json:"attr_type_id"`
	Source       string `yaml:"source" json:"source"`
	Bannable     bool   `yaml:"bannable" json:"bannable"`
	Identifying  bool   `yaml:"identifying" json:"identifying"`
	SourceAttrID string `yaml:"source_attr_id" json:"source_attr_id"`
}

// StorageConfig selects and configures PHC's persistence backend.
type StorageConfig struct {
	Type     string `yaml:"type" json:"type"` // "memory" or "postgres"
	DSN      string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	MaxConns int    `yaml:"max_conns,omitempty" json:"max_conns,omitempty"`
}

// LoggingConfig configures the internal/logger default logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// MetricsConfig configures the internal/metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// HealthConfig configures the health checker's cache behavior.
type HealthConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}
