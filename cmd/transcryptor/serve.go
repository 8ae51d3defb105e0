package main

import (
	"context"
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
	"github.com/pubhubs/pubhubs-core/internal/followboot"
	"github.com/pubhubs/pubhubs-core/internal/keyseed"
	"github.com/pubhubs/pubhubs-core/internal/logger"
	"github.com/pubhubs/pubhubs-core/pkg/version"
	"github.com/pubhubs/pubhubs-core/server"
	"github.com/pubhubs/pubhubs-core/transcryptor"
)

func runServe(configDir string) error {
	cfg, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("transcryptor: load config: %w", err)
	}
	if cfg.Transcryptor == nil {
		return fmt.Errorf("transcryptor: config has no transcryptor section")
	}
	tc := cfg.Transcryptor

	log := newLogger(cfg.Logging)
	log.Info("starting transcryptor", logger.String("base_url", tc.BaseURL), logger.String("version", version.Short()))

	jwtPriv, err := keyseed.Ed25519KeyFromSeed(tc.JWTSeed)
	if err != nil {
		return fmt.Errorf("transcryptor: derive jwt key: %w", err)
	}
	signingKey := envelope.NewSigningKey(jwtPriv)

	masterKey, err := keyseed.RistrettoKeyFromSeed(tc.MasterEncSeed, "master-enc-t")
	if err != nil {
		return fmt.Errorf("transcryptor: derive master key: %w", err)
	}
	encKey, err := keyseed.RistrettoKeyFromSeed(tc.EncSeed, "enc")
	if err != nil {
		return fmt.Errorf("transcryptor: derive enc key: %w", err)
	}
	factorSecret, err := keyseed.Decode(tc.FactorSecretSeed)
	if err != nil {
		return fmt.Errorf("transcryptor: decode factor secret: %w", err)
	}

	app := server.NewApp(log)

	srv := &transcryptor.Server{
		App:          app,
		Log:          log,
		MasterKey:    masterKey,
		EncKey:       encKey,
		FactorSecret: factorSecret,
		Sessions:     transcryptor.NewSessionRelay(),
	}

	follower := &followboot.Follower{
		Self:       constellation.Transcryptor,
		PHCURL:     tc.PHCURL,
		SigningKey: signingKey,
		Discovery:  client.HTTPDiscoveryClient{HTTPClient: &http.Client{Timeout: 10 * time.Second}},
		Peers:      []constellation.ServerName{constellation.PHC},
		BaseURL:    tc.BaseURL,
		Aliases:    constellation.HostAliases(tc.HostAliases),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := follower.Build(ctx)
	if err != nil {
		return fmt.Errorf("transcryptor: build initial constellation: %w", err)
	}
	app.EnterUpAndRunning(snap)

	go sweepPeriodically(ctx, srv.Sessions.Sweep)

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
		Name:             constellation.Transcryptor,
		SelfCheckCode:    constellation.SelfCheckCode(signingKey.VerifyingKey().ToHex(), tc.BaseURL),
		Version:          version.Short(),
		PHCURL:           tc.PHCURL,
		JWTKey:           signingKey.VerifyingKey().ToHex(),
		EncKey:           encKey.PublicKey().ToHex(),
		MasterEncKeyPart: masterKey.PublicKey().ToHex(),
	}

	return appboot.Serve(ctx, tc.ListenAddr, metricsAddr(cfg.Metrics), appboot.Options{
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
