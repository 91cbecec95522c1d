/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package app wires the upswatch components into one process.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/upswatch/pkg/alerts"
	"github.com/carverauto/upswatch/pkg/api"
	"github.com/carverauto/upswatch/pkg/discovery"
	"github.com/carverauto/upswatch/pkg/history"
	"github.com/carverauto/upswatch/pkg/inventory"
	"github.com/carverauto/upswatch/pkg/lifecycle"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/metrics"
	"github.com/carverauto/upswatch/pkg/natsutil"
	"github.com/carverauto/upswatch/pkg/notifier"
	"github.com/carverauto/upswatch/pkg/poller"
	"github.com/carverauto/upswatch/pkg/recorder"
	"github.com/carverauto/upswatch/pkg/snmp"
	"github.com/carverauto/upswatch/pkg/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
)

// App owns every long-running component and the connections they share.
type App struct {
	cfg      *Config
	logger   logger.Logger
	services []lifecycle.Service

	pool     *pgxpool.Pool
	natsConn *nats.Conn

	Inventory *inventory.FileStore
	History   history.Store
	Poller    *poller.Poller
	Scanner   *discovery.Scanner
	Notifier  *notifier.Notifier
	Digest    *notifier.Digest
	API       *api.APIServer
	Metrics   *metrics.Manager
}

// New builds the component graph. Optional backends that fail to come up
// are logged and replaced: the memory history store for PostgreSQL, and no
// event publishing for NATS.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log, Metrics: metrics.NewManager()}

	inv, err := inventory.Open(cfg.InventoryPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}

	a.Inventory = inv
	a.History = a.openHistory(ctx)

	client := snmp.NewClient(cfg.SNMP, snmp.GoSNMPDialer{}, log)

	telegram := alerts.NewTelegramSender(&cfg.Telegram)
	digestSender := telegram

	notifierOpts := []notifier.Option{notifier.WithMetrics(a.Metrics)}

	if publisher := a.connectNATS(ctx); publisher != nil {
		notifierOpts = append(notifierOpts, notifier.WithPublisher(publisher))
		digestSender = alerts.Combine(telegram, publisher)
	}

	a.Notifier = notifier.New(telegram, log, notifierOpts...)
	a.Digest = notifier.NewDigest(cfg.Digest, inv, client, digestSender, log)

	a.Scanner, err = discovery.NewScanner(cfg.Discovery, client, inv, log, discovery.WithMetrics(a.Metrics))
	if err != nil {
		a.Close()

		return nil, fmt.Errorf("failed to create discovery scanner: %w", err)
	}

	a.Poller, err = poller.New(cfg.Poller(), inv, client, log,
		poller.WithRecorder(recorder.New(a.History, log)),
		poller.WithObservers(a.Notifier),
		poller.WithMetrics(a.Metrics),
	)
	if err != nil {
		a.Close()

		return nil, fmt.Errorf("failed to create poller: %w", err)
	}

	a.API = api.NewAPIServer(cfg.CORS,
		api.WithListenAddr(cfg.ListenAddr),
		api.WithInventory(inv),
		api.WithQuerier(client),
		api.WithSnapshot(a.Poller),
		api.WithHistory(a.History),
		api.WithDiscoverer(a.Scanner),
		api.WithThresholds(cfg.Thresholds),
		api.WithMetricsHandler(a.Metrics.Handler()),
		api.WithStaticDir(cfg.StaticDir),
		api.WithLogger(log),
	)

	// Stopping the notifier waits for queued transition messages.
	a.services = []lifecycle.Service{a.API, a.Poller, a.Scanner, a.Digest, a.Notifier}

	return a, nil
}

func (a *App) openHistory(ctx context.Context) history.Store {
	if a.cfg.Database == nil {
		a.logger.Error().Msg("No history database configured, running degraded with in-memory history")

		return history.NewMemoryStore()
	}

	pool, err := history.NewPool(ctx, a.cfg.Database, a.logger)
	if err != nil {
		a.logger.Error().Err(err).Msg("Database unavailable, falling back to in-memory history")

		return history.NewMemoryStore()
	}

	if err := history.RunMigrations(ctx, pool, a.logger); err != nil {
		pool.Close()
		a.logger.Error().Err(err).Msg("History migrations failed, falling back to in-memory history")

		return history.NewMemoryStore()
	}

	a.pool = pool

	return history.NewPGStore(pool, a.logger)
}

func (a *App) connectNATS(ctx context.Context) *natsutil.EventPublisher {
	if a.cfg.NATS == nil {
		return nil
	}

	publisher, nc, err := natsutil.Connect(ctx, a.cfg.NATS, a.logger)
	if err != nil {
		a.logger.Error().Err(err).Str("url", a.cfg.NATS.URL).Msg("NATS unavailable, transition events disabled")

		return nil
	}

	a.natsConn = nc

	return publisher
}

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.logger.Info().
		Str("version", version.GetFullVersion()).
		Str("listen_addr", a.cfg.ListenAddr).
		Int("devices", a.Inventory.Len()).
		Msg("Starting upswatch")

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName:     a.cfg.ServiceName,
		Services:        a.services,
		ShutdownTimeout: time.Duration(a.cfg.ShutdownTimeout),
		Logger:          a.logger,
	})
}

// Close releases the database pool and the NATS connection.
func (a *App) Close() {
	if a.natsConn != nil {
		a.natsConn.Close()
		a.natsConn = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
