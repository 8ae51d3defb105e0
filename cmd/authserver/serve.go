package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pubhubs/pubhubs-core/attr"
	"github.com/pubhubs/pubhubs-core/authserver"
	"github.com/pubhubs/pubhubs-core/authserver/yivisource"
	"github.com/pubhubs/pubhubs-core/client"
	"github.com/pubhubs/pubhubs-core/config"
	"github.com/pubhubs/pubhubs-core/constellation"
	"github.com/pubhubs/pubhubs-core/discovery"
	"github.com/pubhubs/pubhubs-core/envelope"
	"github.com/pubhubs/pubhubs-core/health"
	"github.com/pubhubs/pubhubs-core/internal/appboot"
	"github.com/pubhubs/pubhubs-core/internal/followboot"
	"github.com/pubhubs/pubhubs-core/internal/keyseed"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pkg/version"
	"github.com/pubhubs/pubhubs-core/server"
)

func runServe(configDir string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("authserver: load config: %w", err)
	}
	if cfg.AuthServer == nil {
		return fmt.Errorf("authserver: config has no authserver section")
	}
	ac := cfg.AuthServer

	log := newLogger(cfg.Logging)
	log.Info("starting authserver", logger.String("base_url", ac.BaseURL), logger.String("version", version.Short()))

	jwtPriv, err := keyseed.Ed25519KeyFromSeed(ac.JWTSeed)
	if err != nil {
		return fmt.Errorf("authserver: derive jwt key: %w", err)
	}
	signingKey := envelope.NewSigningKey(jwtPriv)

	encKey, err := keyseed.RistrettoKeyFromSeed(ac.EncSeed, "enc")
	if err != nil {
		return fmt.Errorf("authserver: derive enc key: %w", err)
	}

	authStateSecret, err := keyseed.Decode(ac.AuthStateSecretSeed)
	if err != nil {
		return fmt.Errorf("authserver: decode auth state secret: %w", err)
	}
	attrKeySecret, err := keyseed.Decode(ac.AttrKeySecretSeed)
	if err != nil {
		return fmt.Errorf("authserver: decode attr key secret: %w", err)
	}

	yiviRequestorKey, err := keyseed.Ed25519KeyFromSeed(ac.YiviRequestorSeed)
	if err != nil {
		return fmt.Errorf("authserver: derive yivi requestor key: %w", err)
	}
	yiviServerKeyRaw, err := hex.DecodeString(ac.YiviServerKey)
	if err != nil || len(yiviServerKeyRaw) != ed25519.PublicKeySize {
		return fmt.Errorf("authserver: malformed yivi_server_key")
	}

	yiviSource := &yivisource.Source{
		ServerURL:              ac.YiviServerURL,
		RequestorSigningKey:    yiviRequestorKey,
		ServerVerifyingKey:     ed25519.PublicKey(yiviServerKeyRaw),
		PubhubsCardAttrTypeID:  ac.PubhubsCardAttrTypeID,
		RegistrationSourceAttr: ac.RegistrationSourceAttr,
		RegistrationDateAttr:   ac.RegistrationDateAttr,
	}

	sources := attr.Registry{yivisource.SourceName: yiviSource}

	catalogue := make([]attr.TypeInfo, 0, len(ac.AttrTypes))
	for _, t := range ac.AttrTypes {
		catalogue = append(catalogue, attr.TypeInfo{
			AttrTypeID:   t.AttrTypeID,
			Source:       t.Source,
			Bannable:     t.Bannable,
			Identifying:  t.Identifying,
			SourceAttrID: t.SourceAttrID,
		})
	}

	var chained *authserver.ChainedSessionController
	if ac.EnableChainedSessions {
		chained = authserver.NewChainedSessionController()
	}

	app := server.NewApp(log)

	srv := &authserver.Server{
		App:                   app,
		Log:                   log,
		Sources:               sources,
		Catalogue:             catalogue,
		AuthStateSecret:       authStateSecret,
		AttrKeySecret:         attrKeySecret,
		AttrKeyRotationPeriod: ac.AttrKeyRotationPeriod,
		AttrSigningValidity:   ac.AuthWindow,
		AuthStateValidity:     ac.AuthStateValidity,
		Chained:               chained,
		NextSessionBaseURL:    ac.BaseURL,
	}

	follower := &followboot.Follower{
		Self:       constellation.AuthServer,
		PHCURL:     ac.PHCURL,
		SigningKey: signingKey,
		Discovery:  client.HTTPDiscoveryClient{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		Peers:      []constellation.ServerName{constellation.PHC},
		BaseURL:    ac.BaseURL,
		Aliases:    constellation.HostAliases(ac.HostAliases),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := follower.Build(ctx)
	if err != nil {
		return fmt.Errorf("authserver: build initial constellation: %w", err)
	}
	app.EnterUpAndRunning(snap)

	if chained != nil {
		go sweepPeriodically(ctx, chained.Sweep)
	}

	var mu sync.Mutex
	runFn := discovery.RunFunc(func(ctx context.Context) (constellation.RunOutcome, error) {
		mu.Lock()
		defer mu.Unlock()
		app.BeginRestart("discovery_run")
		snap, err := follower.Build(ctx)
		if err != nil {
			app.EnterDiscovery()
			return constellation.Restarting, err
		}
		app.EnterUpAndRunning(snap)
		return constellation.UpToDate, nil
	})

	checker := health.NewHealthChecker(cfg.Health.Timeout)
	checker.SetLogger(log)
	checker.SetCacheTTL(cfg.Health.CacheTTL)
	checker.RegisterCheck("running_state", health.RunningStateHealthCheck(func() health.ServerState {
		return health.ServerState(app.State())
	}))

	info := discovery.InfoSource{
		Name:          constellation.AuthServer,
		SelfCheckCode: constellation.SelfCheckCode(signingKey.VerifyingKey().ToHex(), ac.BaseURL),
		Version:       version.Short(),
		PHCURL:        ac.PHCURL,
		JWTKey:        signingKey.VerifyingKey().ToHex(),
		EncKey:        encKey.PublicKey().ToHex(),
		// MasterEncKeyPart left empty: AS never contributes to the master
		// encryption key.
	}

	return appboot.Serve(ctx, ac.ListenAddr, metricsAddr(cfg.Metrics), appboot.Options{
		App:      app,
		Log:      log,
		Info:     info,
		Run:      runFn,
		Health:   checker,
		Business: srv.Mux(),
	})
}

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

// sweepPeriodically runs sweep once a minute until ctx is cancelled.
func sweepPeriodically(ctx context.Context, sweep func()) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
