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

package poller

import (
	"sync"
	"sync/atomic"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/notifier"
	"github.com/carverauto/upswatch/pkg/recorder"
	"github.com/carverauto/upswatch/pkg/snmp"
)

// Poller queries every inventory device on a fixed interval and hands the
// batch to the recorder and the observers.
type Poller struct {
	config    Config
	devices   DeviceSource
	querier   snmp.Querier
	recorder  BatchRecorder
	observers []BatchObserver
	metrics   Metrics
	clock     Clock
	logger    logger.Logger

	mu       sync.Mutex
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Bool

	lastMu    sync.RWMutex
	lastBatch []models.Reading
}

// CycleResult describes one completed poll cycle.
type CycleResult struct {
	Readings    []models.Reading
	Online      int
	Recorded    recorder.RecordResult
	Transitions []notifier.Transition
}

// Option configures a Poller.
type Option func(*Poller)

// WithRecorder persists each batch.
func WithRecorder(r BatchRecorder) Option {
	return func(p *Poller) {
		p.recorder = r
	}
}

// WithObservers registers batch observers, called in order after recording.
func WithObservers(observers ...BatchObserver) Option {
	return func(p *Poller) {
		p.observers = append(p.observers, observers...)
	}
}

// WithMetrics records cycle metrics.
func WithMetrics(m Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}
