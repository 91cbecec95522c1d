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

// Package poller runs the periodic device poll cycle.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

// New creates a new poller instance.
func New(config Config, devices DeviceSource, querier snmp.Querier, log logger.Logger, opts ...Option) (*Poller, error) {
	if devices == nil || querier == nil {
		return nil, errMissingDeps
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Poller{
		config:  config,
		devices: devices,
		querier: querier,
		clock:   realClock{},
		logger:  log,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start implements the lifecycle.Service interface. The first cycle runs
// after the initial delay, then one per poll interval.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	p.running = true
	p.done = make(chan struct{})

	p.logger.Info().
		Dur("interval", time.Duration(p.config.PollInterval)).
		Dur("initial_delay", time.Duration(p.config.InitialDelay)).
		Msg("Starting poller")

	p.wg.Add(1)

	go p.run(ctx, p.done)

	return nil
}

// Stop implements the lifecycle.Service interface. It waits for in-flight
// cycles or until ctx expires.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()

	if !p.running {
		p.mu.Unlock()

		return nil
	}

	p.running = false
	close(p.done)
	p.mu.Unlock()

	finished := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.logger.Info().Msg("Poller stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context, done <-chan struct{}) {
	defer p.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-done:
		return
	case <-p.clock.After(time.Duration(p.config.InitialDelay)):
	}

	p.pollSafely(ctx)

	ticker := p.clock.Ticker(time.Duration(p.config.PollInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.Chan():
			if !p.inFlight.CompareAndSwap(false, true) {
				p.logger.Warn().Msg("Previous poll still running, skipping tick")

				continue
			}

			p.wg.Add(1)

			go func() {
				defer p.wg.Done()
				defer p.inFlight.Store(false)

				p.pollSafely(ctx)
			}()
		}
	}
}

func (p *Poller) pollSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Recovered from panic during poll")

			if p.metrics != nil {
				p.metrics.PollFailed()
			}
		}
	}()

	if _, err := p.PollOnce(ctx); err != nil {
		if errors.Is(err, ErrCycleCancelled) {
			p.logger.Info().Msg("Poll cycle interrupted by shutdown")

			return
		}

		p.logger.Error().Err(err).Msg("Error during poll")

		if p.metrics != nil {
			p.metrics.PollFailed()
		}
	}
}

// PollOnce runs one cycle: query every device concurrently, wait for all of
// them, then record the batch and pass it to the observers. It returns nil
// without querying when the inventory is empty. A recording failure does not
// stop the observers from seeing the batch. When ctx ends while devices are
// being queried the batch is discarded with ErrCycleCancelled: a cancelled
// query reads as offline and must not reach the recorder or the observers.
func (p *Poller) PollOnce(ctx context.Context) (*CycleResult, error) {
	devices := p.devices.List()
	if len(devices) == 0 {
		p.logger.Debug().Msg("No devices in inventory, skipping poll")

		return nil, nil
	}

	start := p.clock.Now()

	readings := snmp.QueryAll(ctx, p.querier, devices, p.config.Concurrency)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCycleCancelled, err)
	}

	res := &CycleResult{Readings: readings}

	for i := range readings {
		if readings[i].Online() {
			res.Online++
		}
	}

	p.storeLastBatch(readings)

	if p.metrics != nil {
		p.metrics.ObserveReadings(readings)
	}

	var recordErr error

	if p.recorder != nil {
		rec, err := p.recorder.Record(ctx, readings)
		if err != nil {
			recordErr = fmt.Errorf("%w: %w", ErrRecordBatch, err)
		} else {
			res.Recorded = rec

			if p.metrics != nil {
				p.metrics.HistoryRecorded(rec)
			}
		}
	}

	for _, o := range p.observers {
		res.Transitions = append(res.Transitions, o.Observe(ctx, readings)...)
	}

	elapsed := p.clock.Now().Sub(start)

	if p.metrics != nil {
		p.metrics.PollCompleted(len(devices), res.Online, elapsed)
	}

	p.logger.Info().
		Int("devices", len(devices)).
		Int("online", res.Online).
		Int("appended", res.Recorded.Appended).
		Dur("duration", elapsed).
		Msg("Poll cycle complete")

	return res, recordErr
}

// LastBatch returns the readings from the most recent cycle.
func (p *Poller) LastBatch() []models.Reading {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()

	out := make([]models.Reading, len(p.lastBatch))
	copy(out, p.lastBatch)

	return out
}

func (p *Poller) storeLastBatch(readings []models.Reading) {
	p.lastMu.Lock()
	p.lastBatch = readings
	p.lastMu.Unlock()
}
