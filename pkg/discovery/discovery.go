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

// Package discovery sweeps an IPv4 range for UPS devices and adds new ones to the inventory.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

// Scanner runs discovery sweeps on demand and on an interval.
type Scanner struct {
	config    Config
	prober    Prober
	inventory Inventory
	metrics   Metrics
	logger    logger.Logger

	// sweeps are serialized so two overlapping runs never add the same address
	sweepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMetrics records sweep outcomes.
func WithMetrics(m Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// NewScanner validates config and returns a Scanner.
func NewScanner(config Config, prober Prober, inventory Inventory, log logger.Logger, opts ...Option) (*Scanner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Scanner{
		config:    config,
		prober:    prober,
		inventory: inventory,
		logger:    log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type candidate struct {
	host    int
	address string
	name    string
	found   bool
}

// Discover probes every address in the range that is not already in the
// inventory and appends the devices that answered, in one batch. An empty
// community falls back to the configured one. Probe failures are ignored.
func (s *Scanner) Discover(ctx context.Context, community string) (Result, error) {
	if community == "" {
		community = s.config.Community
	}

	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	start := time.Now()

	s.logger.Info().
		Str("network", s.config.NetworkBase).
		Int("start", s.config.Start).
		Int("end", s.config.End).
		Msg("Starting UPS discovery")

	candidates := make([]candidate, 0, s.config.End-s.config.Start+1)

	for host := s.config.Start; host <= s.config.End; host++ {
		addr := s.config.address(host)
		if s.inventory.HasAddress(addr) {
			continue
		}

		candidates = append(candidates, candidate{host: host, address: addr})
	}

	var g errgroup.Group

	g.SetLimit(s.config.Concurrency)

	for i := range candidates {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Timeout))
			defer cancel()

			res := s.prober.Probe(probeCtx, candidates[i].address, community)
			candidates[i].found = res.Found
			candidates[i].name = strings.TrimSpace(res.Name)

			return nil
		})
	}

	_ = g.Wait()

	devices := s.buildDevices(candidates, community)

	if len(devices) > 0 {
		if err := s.inventory.Add(devices...); err != nil {
			return Result{}, fmt.Errorf("save discovered devices: %w", err)
		}
	}

	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.DiscoveryCompleted(len(devices), elapsed)
	}

	s.logger.Info().
		Int("probed", len(candidates)).
		Int("discovered", len(devices)).
		Dur("duration", elapsed).
		Msg("Discovery complete")

	if devices == nil {
		devices = []models.Device{}
	}

	return Result{Discovered: len(devices), Devices: devices}, nil
}

func (s *Scanner) buildDevices(candidates []candidate, community string) []models.Device {
	var devices []models.Device

	taken := make(map[string]struct{})

	for i := range candidates {
		c := &candidates[i]
		if !c.found {
			continue
		}

		id := s.uniqueID(c.host, taken)
		taken[id] = struct{}{}

		name := c.name
		if name == "" {
			name = fmt.Sprintf("UPS-%s-%d", s.config.subnetSuffix(), c.host)
		}

		s.logger.Info().
			Str("ip", c.address).
			Str("device_id", id).
			Str("name", name).
			Msg("Discovered UPS")

		devices = append(devices, models.Device{
			ID:           id,
			DisplayName:  name,
			Address:      c.address,
			SharedSecret: community,
		})
	}

	return devices
}

func (s *Scanner) uniqueID(host int, taken map[string]struct{}) string {
	base := fmt.Sprintf("ups-%d", host)
	id := base

	for n := 2; ; n++ {
		_, inBatch := taken[id]
		if !inBatch && !s.inventory.HasID(id) {
			return id
		}

		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// Start launches the auto-discovery loop: one sweep after the initial delay,
// then one per interval. It returns immediately and does nothing when disabled.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Auto-discovery disabled")

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrScannerRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, s.done)

	return nil
}

// Stop ends the loop and waits for an in-flight sweep.
func (s *Scanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scanner) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Duration(s.config.InitialDelay))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.sweep(ctx)

	ticker := time.NewTicker(time.Duration(s.config.Interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scanner) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("Recovered from panic in auto-discovery")
		}
	}()

	if _, err := s.Discover(ctx, ""); err != nil {
		s.logger.Error().Err(err).Msg("Auto-discovery failed")
	}
}
