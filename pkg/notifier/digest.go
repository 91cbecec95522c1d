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

package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/upswatch/pkg/alerts"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

var (
	errDigestCancelled   = errors.New("digest cancelled before sending")
	errInvalidDigestTime = errors.New("digest time out of range")
	errDigestRunning     = errors.New("digest already running")
)

// DigestConfig schedules the daily summary.
type DigestConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Hour    int  `json:"hour" yaml:"hour"`
	Minute  int  `json:"minute" yaml:"minute"`
}

// Validate checks the wall-clock time.
func (c *DigestConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", errInvalidDigestTime, c.Hour, c.Minute)
	}

	return nil
}

// DeviceSource lists the current inventory.
type DeviceSource interface {
	List() []models.Device
}

// Digest sends one summary message per day at a fixed local wall-clock time.
type Digest struct {
	cfg     DigestConfig
	devices DeviceSource
	querier snmp.Querier
	sender  alerts.Sender
	logger  logger.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDigest creates a Digest. Devices are read from the inventory at send time.
func NewDigest(cfg DigestConfig, devices DeviceSource, querier snmp.Querier, sender alerts.Sender, log logger.Logger) *Digest {
	if sender == nil {
		sender = alerts.NopSender{}
	}

	return &Digest{
		cfg:     cfg,
		devices: devices,
		querier: querier,
		sender:  sender,
		logger:  log,
		now:     time.Now,
		after:   time.After,
	}
}

// NextRun returns the next instant at hour:minute in now's location that is
// strictly after now, rolling over to tomorrow when today's slot has passed.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}

	return next
}

// Start launches the scheduling loop. It is a no-op when the digest is disabled.
func (d *Digest) Start(ctx context.Context) error {
	if !d.cfg.Enabled {
		d.logger.Info().Msg("Daily digest disabled")

		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return errDigestRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(runCtx, d.done)

	return nil
}

// Stop ends the loop and waits for it to exit.
func (d *Digest) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

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

func (d *Digest) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		next := NextRun(d.now(), d.cfg.Hour, d.cfg.Minute)
		wait := next.Sub(d.now())

		d.logger.Info().
			Time("next_run", next).
			Dur("wait", wait).
			Msg("Scheduled daily digest")

		select {
		case <-ctx.Done():
			return
		case <-d.after(wait):
		}

		if _, err := d.RunOnce(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to send daily digest")
		}
	}
}

// RunOnce queries every device, sends the summary, and returns the message.
func (d *Digest) RunOnce(ctx context.Context) (string, error) {
	devices := d.devices.List()
	readings := snmp.QueryAll(ctx, d.querier, devices, snmp.DefaultConcurrency)

	// cancelled queries come back offline; never report them
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", errDigestCancelled, err)
	}

	msg := BuildDigest(readings, d.now())

	d.logger.Info().Int("devices", len(devices)).Msg("Sending daily digest")

	if err := d.sender.Send(ctx, msg); err != nil {
		return msg, err
	}

	return msg, nil
}

// BuildDigest renders the summary text for a set of readings.
func BuildDigest(readings []models.Reading, now time.Time) string {
	online := 0

	for i := range readings {
		if readings[i].Online() {
			online++
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Daily UPS report (%s)\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Online: %d/%d\n", online, len(readings))

	for i := range readings {
		r := &readings[i]

		fmt.Fprintf(&b, "\n%s (%s): %s\n", r.DisplayName, r.Address, r.Status)
		fmt.Fprintf(&b, "  battery %s, load %s, temperature %s\n",
			formatValue(r.Battery, "%"), formatValue(r.Load, "%"), formatValue(r.Temperature, "C"))
	}

	return b.String()
}

func formatValue(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}

	return fmt.Sprintf("%g%s", *v, unit)
}
