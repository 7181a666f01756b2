// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/killfeed/internal/api"
	"github.com/tomtom215/killfeed/internal/config"
	"github.com/tomtom215/killfeed/internal/delivery"
	"github.com/tomtom215/killfeed/internal/discord"
	"github.com/tomtom215/killfeed/internal/esi"
	"github.com/tomtom215/killfeed/internal/eventprocessor"
	"github.com/tomtom215/killfeed/internal/ingest"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/normalizer"
	"github.com/tomtom215/killfeed/internal/refdata"
	"github.com/tomtom215/killfeed/internal/subscription"
	"github.com/tomtom215/killfeed/internal/supervisor"
	"github.com/tomtom215/killfeed/internal/supervisor/services"
)

// app owns every component and the order they are released in.
type app struct {
	cfg       *config.Config
	store     *subscription.Store
	refdata   *refdata.Cache
	transport *eventprocessor.Transport
	router    *eventprocessor.Router
	tree      *supervisor.SupervisorTree

	// closers run in reverse order of registration.
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

func (a *app) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, fn: fn})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			logging.Error().Err(err).Str("component", c.name).Msg("Error during shutdown")
		}
	}
}

// newApp builds the component graph. On error everything built so far is
// released.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Subscriptions.
	backend, closeBackend, err := openSubscriptionBackend(ctx, cfg.Subscriptions)
	if err != nil {
		return nil, err
	}
	a.onClose("subscriptions", closeBackend)

	a.store = subscription.NewStore(backend)
	if err := a.store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	logging.Info().
		Str("backend", a.store.Backend()).
		Int("subscriptions", a.store.Count()).
		Msg("Subscriptions loaded")

	locker, closeLocker, err := openLocker(ctx, cfg.Lease)
	if err != nil {
		return nil, err
	}
	a.onClose("lease", closeLocker)

	// Reference data.
	esiClient := esi.NewClient(esi.Config{
		BaseURL:       cfg.ESI.BaseURL,
		UserAgent:     cfg.ESI.UserAgent,
		RatePerSecond: cfg.ESI.RatePerSecond,
		Timeout:       cfg.ESI.Timeout,
		MaxRetries:    cfg.ESI.MaxRetries,
	})
	a.refdata = refdata.New(esiClient, refdata.Config{
		Dir:        cfg.RefData.Dir,
		FlushDelay: cfg.RefData.FlushInterval,
	})
	if err := a.refdata.Load(); err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	a.onClose("refdata", a.refdata.Flush)
	logging.Info().Int("entries", a.refdata.Len()).Msg("Reference data loaded")

	// Delivery.
	discordClient := discord.NewClient(discord.Config{
		Token:   cfg.Discord.Token,
		APIURL:  cfg.Discord.APIURL,
		Timeout: cfg.Discord.Timeout,
	})
	pipeline := delivery.NewPipeline(locker, discord.NewSender(discordClient), a.store, delivery.Config{
		DedupTTL: cfg.Lease.DedupTTL,
		LockTTL:  cfg.Lease.LockTTL,
	})

	// Messaging.
	wmLogger := logging.NewWatermillLogger()
	a.transport, err = openTransport(ctx, cfg.Messaging, wmLogger)
	if err != nil {
		return nil, err
	}
	a.onClose("transport", a.transport.Close)

	routerCfg := eventprocessor.DefaultRouterConfig()
	routerCfg.RetryMaxRetries = cfg.Messaging.RetryMaxRetries
	if cfg.Messaging.RetryInterval > 0 {
		routerCfg.RetryInterval = cfg.Messaging.RetryInterval
	}
	if cfg.Messaging.CloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.Messaging.CloseTimeout
	}
	a.router, err = eventprocessor.NewRouter(routerCfg, a.transport.Publisher, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	a.onClose("router", a.router.Close)

	shards := cfg.Messaging.DeliveryShards
	processor := eventprocessor.NewProcessor(
		normalizer.New(esiClient),
		normalizer.NewEnricher(a.refdata),
		a.store,
		a.transport.Publisher,
		shards,
	)
	eventprocessor.RegisterHandlers(a.router, a.transport, processor,
		eventprocessor.NewDispatcher(pipeline, a.transport.Publisher), shards)
	logging.Info().
		Str("transport", a.transport.Name).
		Int("delivery_shards", shards).
		Strs("handlers", a.router.Handlers()).
		Msg("Event router configured")

	source := newKillSource(cfg, ingest.NewEmitter(a.transport.Publisher, locker, ingest.DefaultSeenWindow))

	// API.
	authn, err := newAuthenticator(cfg.API)
	if err != nil {
		return nil, err
	}
	checks := map[string]api.HealthCheck{
		"router": a.routerRunning,
	}
	handler := api.NewRouter(api.NewHandler(a.store, checks), api.RouterConfig{
		CORSOrigins:  cfg.API.CORSOrigins,
		RateLimitRPS: cfg.API.RateLimitRPS,
		Auth:         authn,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// Supervision.
	a.tree = supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	a.tree.AddDataService(a.refdata)
	a.tree.AddMessagingService(services.NewRouterService(a.router))
	a.tree.AddMessagingService(services.NewGatedService("zkill-"+cfg.ZKill.Source, a.router.Running(), source))
	a.tree.AddAPIService(services.NewAPIServerService(server, services.APIServerConfig{
		Addr:            server.Addr,
		ShutdownTimeout: 10 * time.Second,
	}))
	logging.Info().Str("addr", server.Addr).Bool("auth", authn.Enabled()).Msg("Command API configured")

	return a, nil
}

func (a *app) routerRunning(ctx context.Context) error {
	select {
	case <-a.router.Running():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("router not running")
	}
}

// run builds the app, serves until ctx is canceled and releases everything.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	logging.Info().Msg("Starting supervisor tree")
	err = <-a.tree.ServeBackground(ctx)

	if unstopped, _ := a.tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
