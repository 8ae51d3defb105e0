package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pubhubs/pubhubs-core/client"
	"github.com/pubhubs/pubhubs-core/config"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/discovery"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/health"
	"github.com/pubhubs/pubhubs-core/internal/appboot"
	"github.com/pubhubs/pubhubs-core/internal/httpserver"
	"github.com/pubhubs/pubhubs-core/internal/jsonpointer"
	"github.com/pubhubs/pubhubs-core/internal/keyseed"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/internal/metrics"
	"github.com/pubhubs/pubhubs-core/pep"
	"github.com/pubhubs/pubhubs-core/phc"
	"github.com/pubhubs/pubhubs-core/phccrypto"
	"github.com/pubhubs/pubhubs-core/pkg/storage"
	"github.com/pubhubs/pubhubs-core/pkg/storage/memory"
	"github.com/pubhubs/pubhubs-core/pkg/storage/postgres"
	"github.com/pubhubs/pubhubs-core/pkg/version"
	"github.com/pubhubs/pubhubs-core/server"
)

func runServe(configDir string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("phc: load config: %w", err)
	}
	if cfg.PHC == nil {
		return fmt.Errorf("phc: config has no phc section")
	}
	pc := cfg.PHC

	log := newLogger(cfg.Logging)
	log.Info("starting phc", logger.String("base_url", pc.BaseURL), logger.String("version", version.Short()))

	store, err := openStore(pc.Storage)
	if err != nil {
		return fmt.Errorf("phc: open store: %w", err)
	}
	defer store.Close()

	jwtPriv, err := keyseed.Ed25519KeyFromSeed(pc.JWTSeed)
	if err != nil {
		return fmt.Errorf("phc: derive jwt key: %w", err)
	}
	signingKey := envelope.NewSigningKey(jwtPriv)

	masterKey, err := keyseed.RistrettoKeyFromSeed(pc.MasterEncSeed, "master-enc-phc")
	if err != nil {
		return fmt.Errorf("phc: derive master key: %w", err)
	}
	encKey, err := keyseed.RistrettoKeyFromSeed(pc.EncSeed, "enc")
	if err != nil {
		return fmt.Errorf("phc: derive enc key: %w", err)
	}
	attrSecret, err := keyseed.Decode(pc.AttrSecretSeed)
	if err != nil {
		return fmt.Errorf("phc: decode attr secret: %w", err)
	}
	ppNonceSecret, err := keyseed.Decode(pc.PPNonceSecretSeed)
	if err != nil {
		return fmt.Errorf("phc: decode pp nonce secret: %w", err)
	}
	hubSealSecret, err := keyseed.Decode(pc.HubSealSecretSeed)
	if err != nil {
		return fmt.Errorf("phc: decode hub seal secret: %w", err)
	}
	adminVerifyingKey, err := envelope.VerifyingKeyFromHex(pc.AdminKey)
	if err != nil {
		return fmt.Errorf("phc: decode admin key: %w", err)
	}

	app := server.NewApp(log)

	srv := &phc.Server{
		App:                app,
		Store:              store,
		Log:                log,
		MasterKey:          masterKey,
		EncKey:             encKey,
		AttrSecret:         attrSecret,
		PPNonceKey:         envelope.NewSealingKey(ppNonceSecret),
		HubSealSecret:      hubSealSecret,
		AdminVerifyingKey:  adminVerifyingKey,
		AuthTokenValidity:  pc.AuthTokenValidity,
		PPNonceValidity:    pc.PPNonceValidity,
		HHPPFreshnessLimit: pc.HHPPFreshnessLimit,
		TicketValidity:     pc.TicketValidity,
		HTTPClient:         &http.Client{Timeout: 10 * time.Second},
	}

	b := &builder{
		cfg:        pc,
		log:        log,
		signingKey: signingKey,
		encKey:     encKey,
		masterKey:  masterKey,
		discovery:  client.HTTPDiscoveryClient{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := b.build(ctx, "initial")
	if err != nil {
		return fmt.Errorf("phc: build initial constellation: %w", err)
	}
	app.EnterUpAndRunning(snap)

	patcher := &configPatcher{cfg: cfg, app: app, builder: b, log: log}
	srv.ConfigPatcher = patcher

	checker := health.NewHealthChecker(cfg.Health.Timeout)
	checker.SetLogger(log)
	checker.SetCacheTTL(cfg.Health.CacheTTL)
	checker.RegisterCheck("running_state", health.RunningStateHealthCheck(func() health.ServerState {
		return health.ServerState(app.State())
	}))
	checker.RegisterCheck("store", health.DatabaseHealthCheck(store.Ping))

	info := discovery.InfoSource{
		Name:             constellation.PHC,
		SelfCheckCode:    constellation.SelfCheckCode(signingKey.VerifyingKey().ToHex(), pc.BaseURL),
		Version:          version.Short(),
		PHCURL:           pc.BaseURL,
		JWTKey:           signingKey.VerifyingKey().ToHex(),
		EncKey:           encKey.PublicKey().ToHex(),
		MasterEncKeyPart: masterKey.PublicKey().ToHex(),
	}

	runFn := discovery.RunFunc(func(ctx context.Context) (constellation.RunOutcome, error) {
		return patcher.rebuild(ctx, "discovery_run")
	})

	business := srv.Mux()
	if pc.AdminListenAddr == "" {
		business.Handle("/.ph/admin/config", srv.AdminMux())
	} else {
		go func() {
			if err := httpserver.Run(ctx, log, pc.AdminListenAddr, srv.AdminMux()); err != nil {
				log.Error("admin server stopped", logger.Error(err))
			}
		}()
	}

	return appboot.Serve(ctx, pc.ListenAddr, metricsAddr(cfg.Metrics), appboot.Options{
		App:            app,
		Log:            log,
		Info:           info,
		Run:            runFn,
		Health:         checker,
		MetricsEnabled: false,
		Business:       business,
	})
}

// metricsAddr returns the separate metrics listen address to start, or ""
// if metrics are disabled.
func metricsAddr(mc config.MetricsConfig) string {
	if !mc.Enabled || mc.Addr == "" {
		return ""
	}
	return mc.Addr
}

func newLogger(lc config.LoggingConfig) logger.Logger {
	l := logger.NewDefaultLogger()
	switch lc.Level {
	case "debug":
		l.SetLevel(logger.DebugLevel)
	case "warn":
		l.SetLevel(logger.WarnLevel)
	case "error":
		l.SetLevel(logger.ErrorLevel)
	default:
		l.SetLevel(logger.InfoLevel)
	}
	l.SetPrettyPrint(lc.Pretty)
	return l
}

func openStore(sc config.StorageConfig) (storage.Store, error) {
	switch sc.Type {
	case "", "memory":
		return memory.NewStore(), nil
	case "postgres":
		return postgres.NewStore(context.Background(), postgres.Config{DSN: sc.DSN, MaxConns: sc.MaxConns})
	default:
		return nil, fmt.Errorf("phc: unknown storage type %q", sc.Type)
	}
}

// builder assembles PHC's authoritative constellation from its own keys
// plus the Transcryptor's and authentication server's published discovery
// info.
type builder struct {
	cfg        *config.PHCConfig
	log        logger.Logger
	signingKey envelope.SigningKey
	encKey     pep.PrivateKey
	masterKey  pep.PrivateKey
	discovery  client.HTTPDiscoveryClient
}

func (b *builder) build(ctx context.Context, trigger string) (*server.RunningState, error) {
	tInfo, err := b.discovery.Info(ctx, b.cfg.TranscryptorURL)
	if err != nil {
		return nil, fmt.Errorf("phc: fetch transcryptor info: %w", err)
	}
	if tInfo.MasterEncKeyPart == "" {
		return nil, fmt.Errorf("phc: transcryptor published no master_enc_key_part")
	}
	asInfo, err := b.discovery.Info(ctx, b.cfg.AuthServerURL)
	if err != nil {
		return nil, fmt.Errorf("phc: fetch authserver info: %w", err)
	}
	if asInfo.MasterEncKeyPart != "" {
		// Only PHC and the Transcryptor may contribute a
		// master key part.
		return nil, fmt.Errorf("phc: malconfigured: authserver published a master_enc_key_part")
	}

	tMasterPart, err := pep.PublicKeyFromHex(tInfo.MasterEncKeyPart)
	if err != nil {
		return nil, fmt.Errorf("phc: decode transcryptor master key part: %w", err)
	}
	masterEncKey := phccrypto.CombineMasterEncKeyParts(tMasterPart, b.masterKey)

	servers := []constellation.ServerParams{
		{
			Name:             constellation.PHC,
			URL:              b.cfg.BaseURL,
			JWTKey:           b.signingKey.VerifyingKey().ToHex(),
			EncKey:           b.encKey.PublicKey().ToHex(),
			MasterEncKeyPart: b.masterKey.PublicKey().ToHex(),
		},
		{
			Name:             constellation.Transcryptor,
			URL:              b.cfg.TranscryptorURL,
			JWTKey:           tInfo.JWTKey,
			EncKey:           tInfo.EncKey,
			MasterEncKeyPart: tInfo.MasterEncKeyPart,
		},
		{
			Name:   constellation.AuthServer,
			URL:    b.cfg.AuthServerURL,
			JWTKey: asInfo.JWTKey,
			EncKey: asInfo.EncKey,
		},
	}

	c, err := constellation.Build(b.cfg.BaseURL, servers, masterEncKey.ToHex(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("phc: assemble constellation: %w", err)
	}

	tVK, err := envelope.VerifyingKeyFromHex(tInfo.JWTKey)
	if err != nil {
		return nil, fmt.Errorf("phc: decode transcryptor verifying key: %w", err)
	}
	asVK, err := envelope.VerifyingKeyFromHex(asInfo.JWTKey)
	if err != nil {
		return nil, fmt.Errorf("phc: decode authserver verifying key: %w", err)
	}

	metrics.ConstellationRebuilds.WithLabelValues(trigger).Inc()
	b.log.Info("constellation built", logger.String("id", string(c.ID)), logger.String("trigger", trigger))

	return &server.RunningState{
		Constellation: c,
		SigningKey:    b.signingKey,
		PeerVerifyingKeys: map[constellation.ServerName]envelope.VerifyingKey{
			constellation.Transcryptor: tVK,
			constellation.AuthServer:   asVK,
		},
		SealingKeys: map[string]envelope.SealingKey{},
	}, nil
}

// configPatcher implements phc.ConfigPatcher: it applies an admin's
// JSON-Pointer patch to the in-memory Config, then rebuilds and swaps in
// a fresh RunningState.
type configPatcher struct {
	mu      sync.Mutex
	cfg     *config.Config
	app     *server.App
	builder *builder
	log     logger.Logger
}

func (p *configPatcher) ApplyPatch(ctx context.Context, pointer string, value json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := json.Marshal(p.cfg)
	if err != nil {
		return fmt.Errorf("configPatcher: marshal current config: %w", err)
	}
	patched, err := jsonpointer.Set(raw, pointer, value)
	if err != nil {
		return fmt.Errorf("configPatcher: apply patch: %w", err)
	}
	var next config.Config
	if err := json.Unmarshal(patched, &next); err != nil {
		return fmt.Errorf("configPatcher: unmarshal patched config: %w", err)
	}
	if next.PHC == nil {
		return fmt.Errorf("configPatcher: patch removed the phc section")
	}
	p.cfg = &next
	p.builder.cfg = next.PHC

	_, err = p.rebuildLocked(ctx, "admin_request")
	return err
}

func (p *configPatcher) rebuild(ctx context.Context, trigger string) (constellation.RunOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rebuildLocked(ctx, trigger)
}

func (p *configPatcher) rebuildLocked(ctx context.Context, trigger string) (constellation.RunOutcome, error) {
	p.app.BeginRestart(trigger)
	snap, err := p.builder.build(ctx, trigger)
	if err != nil {
		p.app.EnterDiscovery()
		return constellation.Restarting, err
	}
	p.app.EnterUpAndRunning(snap)
	return constellation.UpToDate, nil
}
