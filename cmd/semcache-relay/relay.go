package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/semcache/config"
	"github.com/c360/semcache/health"
	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/natsclient"
	"github.com/c360/semcache/pkg/lifecycle"
)

// relay fans local lifecycle signals out to NATS.
type relay struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	notifier *lifecycle.Notifier
	client   *natsclient.Client
	server   *metric.Server

	// pressure is the PSI monitor state reported on /health.
	pressure atomic.Pointer[health.Status]
}

func newRelay(cfg *config.Config, logger *slog.Logger) (*relay, error) {
	registry := metric.NewMetricsRegistry()

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
	}
	if cfg.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.NATS.Name))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(cfg.NATS.Timeout))
	}

	client, err := natsclient.NewClient(cfg.NATS.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	r := &relay{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		notifier: lifecycle.NewNotifier(lifecycle.WithLogger(logger), lifecycle.WithMetrics(registry)),
		client:   client,
	}
	if cfg.Metrics.Enabled {
		r.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		r.server.SetHealthCheck(r.health)
	}
	return r, nil
}

// run connects, starts every configured signal source and blocks until ctx is done.
func (r *relay) run(ctx context.Context, shutdownTimeout time.Duration) error {
	if r.server != nil {
		if err := r.server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		r.logger.Info("Metrics server started", "address", r.server.Address())
	}

	if err := r.connect(ctx); err != nil {
		r.stopServer(shutdownTimeout)
		return err
	}

	publisher := lifecycle.NewNATSPublisher(r.client.Conn(), r.cfg.Lifecycle.SubjectPrefix,
		lifecycle.WithLogger(r.logger), lifecycle.WithMetrics(r.registry),
		lifecycle.WithPublishLimit(r.cfg.Lifecycle.PublishRate, r.cfg.Lifecycle.PublishBurst))

	fwd, err := lifecycle.Forward(ctx, r.notifier, publisher, r.cfg.Lifecycle.PublishTimeout)
	if err != nil {
		r.shutdown(shutdownTimeout)
		return fmt.Errorf("forward signals: %w", err)
	}

	stopSources := r.startSources(ctx)

	r.logger.Info("Relay started",
		"subject_prefix", r.cfg.Lifecycle.SubjectPrefix,
		"os_signals", r.cfg.Lifecycle.OSSignals,
		"pressure", r.cfg.Lifecycle.PressureEnabled)

	<-ctx.Done()
	r.logger.Info("Received shutdown signal")

	stopSources()
	_ = fwd.Unsubscribe()
	r.shutdown(shutdownTimeout)

	r.logger.Info("Relay shutdown complete")
	return nil
}

func (r *relay) connect(ctx context.Context) error {
	if err := r.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := r.client.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}
	return nil
}

// startSources wires OS signals and the PSI monitor into the notifier. The
// returned function stops them and waits for them to exit.
func (r *relay) startSources(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	var stopOS func()
	if r.cfg.Lifecycle.OSSignals {
		stopOS = lifecycle.NotifyOS(gctx, r.notifier, lifecycle.DefaultOSSignals())
	}

	if r.cfg.Lifecycle.PressureEnabled {
		mon, err := lifecycle.NewPressureMonitor(r.notifier, r.cfg.Lifecycle.Pressure,
			lifecycle.WithLogger(r.logger), lifecycle.WithMetrics(r.registry))
		if err != nil {
			// PSI is Linux-only; keep relaying OS signals without it.
			r.logger.Warn("Memory pressure monitor unavailable", "error", err)
			r.setPressure(health.NewDegraded("pressure", "memory pressure monitor unavailable"))
		} else {
			r.setPressure(health.NewHealthy("pressure", "monitoring"))
			g.Go(func() error { return mon.Run(gctx) })
		}
	}

	return func() {
		cancel()
		if stopOS != nil {
			stopOS()
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("Signal source stopped with error", "error", err)
		}
	}
}

func (r *relay) setPressure(s health.Status) {
	r.pressure.Store(&s)
}

// health reports NATS connectivity and, when enabled, the PSI monitor.
func (r *relay) health() health.Status {
	var subs []health.Status

	switch st := r.client.Status(); st {
	case natsclient.StatusConnected:
		subs = append(subs, health.NewHealthy("nats", "connected"))
	case natsclient.StatusReconnecting, natsclient.StatusConnecting:
		subs = append(subs, health.NewDegraded("nats", st.String()))
	default:
		subs = append(subs, health.NewUnhealthy("nats", st.String()))
	}

	if p := r.pressure.Load(); p != nil {
		subs = append(subs, *p)
	}

	return health.Aggregate(appName, subs)
}

func (r *relay) shutdown(timeout time.Duration) {
	if err := r.client.Close(); err != nil {
		r.logger.Warn("Failed to close NATS client", "error", err)
	}
	r.stopServer(timeout)
}

func (r *relay) stopServer(timeout time.Duration) {
	if r.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.server.Stop(ctx); err != nil {
		r.logger.Warn("Failed to stop metrics server", "error", err)
	}
}
