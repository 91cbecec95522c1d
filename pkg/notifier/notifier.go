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

// Package notifier tracks device reachability and reports online/offline edges.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/upswatch/pkg/alerts"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

const defaultSendTimeout = 30 * time.Second

// Kind distinguishes the two edges the notifier reports.
type Kind string

const (
	KindOffline   Kind = "offline"
	KindRecovered Kind = "recovered"
)

// Transition is one online/offline edge for a device.
type Transition struct {
	Kind     Kind
	Previous models.Reading
	Current  models.Reading
}

// Message renders the notification text for the transition.
func (t *Transition) Message() string {
	switch t.Kind {
	case KindOffline:
		return fmt.Sprintf("UPS OFFLINE: %s (%s) stopped responding", t.Current.DisplayName, t.Current.Address)
	case KindRecovered:
		return fmt.Sprintf("UPS RECOVERED: %s (%s) is back online", t.Current.DisplayName, t.Current.Address)
	default:
		return ""
	}
}

// TransitionPublisher emits structured transition events. *natsutil.EventPublisher satisfies it.
type TransitionPublisher interface {
	PublishDeviceTransition(ctx context.Context, data *models.DeviceTransitionEventData) error
}

// Metrics counts transitions and delivery failures.
type Metrics interface {
	TransitionObserved(kind string)
	NotificationFailed(transport string)
}

// Notifier holds the last known reading per device for the lifetime of the process.
type Notifier struct {
	mu        sync.Mutex
	last      map[string]models.Reading
	sender    alerts.Sender
	publisher TransitionPublisher
	metrics   Metrics
	logger    logger.Logger
	timeout   time.Duration
	inflight  sync.WaitGroup
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithPublisher also publishes every transition as an event.
func WithPublisher(p TransitionPublisher) Option {
	return func(n *Notifier) {
		n.publisher = p
	}
}

// WithMetrics records transition counters.
func WithMetrics(m Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// New creates a Notifier with an empty last-known state.
func New(sender alerts.Sender, log logger.Logger, opts ...Option) *Notifier {
	if sender == nil {
		sender = alerts.NopSender{}
	}

	n := &Notifier{
		last:    make(map[string]models.Reading),
		sender:  sender,
		logger:  log,
		timeout: defaultSendTimeout,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Observe compares each reading with the last known state and fires a
// notification on online to offline and offline to online edges. First
// sightings and repeated states fire nothing. State is updated for every reading.
func (n *Notifier) Observe(ctx context.Context, readings []models.Reading) []Transition {
	var transitions []Transition

	n.mu.Lock()

	for i := range readings {
		current := readings[i]

		prev, seen := n.last[current.DeviceID]
		n.last[current.DeviceID] = current

		if !seen {
			continue
		}

		switch {
		case prev.Online() && !current.Online():
			transitions = append(transitions, Transition{Kind: KindOffline, Previous: prev, Current: current})
		case !prev.Online() && current.Online():
			transitions = append(transitions, Transition{Kind: KindRecovered, Previous: prev, Current: current})
		}
	}

	n.mu.Unlock()

	for i := range transitions {
		n.dispatch(ctx, &transitions[i])
	}

	return transitions
}

// Wait blocks until every in-flight notification has finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

// Start satisfies lifecycle.Service; the notifier is driven by Observe.
func (*Notifier) Start(context.Context) error {
	return nil
}

// Stop waits for in-flight notifications or until ctx expires.
func (n *Notifier) Stop(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		n.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) dispatch(ctx context.Context, t *Transition) {
	msg := t.Message()

	n.logger.Info().
		Str("device_id", t.Current.DeviceID).
		Str("ip", t.Current.Address).
		Str("transition", string(t.Kind)).
		Msg("Device status changed")

	if n.metrics != nil {
		n.metrics.TransitionObserved(string(t.Kind))
	}

	event := &models.DeviceTransitionEventData{
		DeviceID:      t.Current.DeviceID,
		DisplayName:   t.Current.DisplayName,
		Address:       t.Current.Address,
		PreviousState: t.Previous.Status,
		CurrentState:  t.Current.Status,
		Timestamp:     t.Current.Time(),
		Message:       msg,
	}

	// detached from the poll cycle so a slow transport never delays it
	sendCtx := context.WithoutCancel(ctx)

	n.inflight.Add(1)

	go func() {
		defer n.inflight.Done()

		ctx, cancel := context.WithTimeout(sendCtx, n.timeout)
		defer cancel()

		if err := n.sender.Send(ctx, msg); err != nil {
			n.deliveryFailed("sender", t.Current.DeviceID, err)
		}

		if n.publisher == nil {
			return
		}

		if err := n.publisher.PublishDeviceTransition(ctx, event); err != nil {
			n.deliveryFailed("nats", t.Current.DeviceID, err)
		}
	}()
}

func (n *Notifier) deliveryFailed(transport, deviceID string, err error) {
	n.logger.Warn().
		Err(err).
		Str("transport", transport).
		Str("device_id", deviceID).
		Msg("Failed to deliver notification")

	if n.metrics != nil {
		n.metrics.NotificationFailed(transport)
	}
}
