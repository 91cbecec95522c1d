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

// Package metrics exposes poll, history, notification and discovery counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/recorder"
)

const namespace = "upswatch"

var deviceLabels = []string{"device_id", "name"}

// Manager owns every UPSWatch collector and the registry they live in.
type Manager struct {
	registry *prometheus.Registry

	pollsTotal      prometheus.Counter
	pollFailures    prometheus.Counter
	pollDuration    prometheus.Histogram
	devicesPolled   prometheus.Gauge
	devicesOnline   prometheus.Gauge
	samplesAppended prometheus.Counter
	samplesPruned   prometheus.Counter
	samplesSkipped  *prometheus.CounterVec

	deviceUp      *prometheus.GaugeVec
	batteryCharge *prometheus.GaugeVec
	outputLoad    *prometheus.GaugeVec
	temperature   *prometheus.GaugeVec
	inputVoltage  *prometheus.GaugeVec

	transitions          *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec

	discoveryRuns     prometheus.Counter
	devicesDiscovered prometheus.Counter
	discoveryDuration prometheus.Histogram
}

// NewManager creates the collectors and registers them on a fresh registry
// alongside the Go runtime and process collectors.
func NewManager() *Manager {
	m := &Manager{
		registry: prometheus.NewRegistry(),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed poll cycles.",
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Poll cycles that returned an error or panicked.",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Wall time of one poll cycle including recording.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		devicesPolled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_polled",
			Help:      "Devices queried in the last poll cycle.",
		}),
		devicesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_online",
			Help:      "Devices that answered in the last poll cycle.",
		}),
		samplesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_samples_appended_total",
			Help:      "History samples written after change detection.",
		}),
		samplesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_samples_pruned_total",
			Help:      "History samples removed by retention.",
		}),
		samplesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_samples_skipped_total",
			Help:      "Readings not persisted, by reason.",
		}, []string{"reason"}),
		deviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_up",
			Help:      "1 when the device answered the last poll.",
		}, deviceLabels),
		batteryCharge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_charge_percent",
			Help:      "Battery charge reported by the device.",
		}, deviceLabels),
		outputLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_load_percent",
			Help:      "Output load reported by the device.",
		}, deviceLabels),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_temperature_celsius",
			Help:      "Battery temperature reported by the device.",
		}, deviceLabels),
		inputVoltage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_voltage_volts",
			Help:      "Input line voltage reported by the device.",
		}, deviceLabels),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Online/offline transitions, by kind.",
		}, []string{"kind"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered, by transport.",
		}, []string{"transport"}),
		discoveryRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_runs_total",
			Help:      "Completed discovery sweeps.",
		}),
		devicesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_discovered_total",
			Help:      "Devices added to the inventory by discovery.",
		}),
		discoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Wall time of one discovery sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pollsTotal, m.pollFailures, m.pollDuration, m.devicesPolled, m.devicesOnline,
		m.samplesAppended, m.samplesPruned, m.samplesSkipped,
		m.deviceUp, m.batteryCharge, m.outputLoad, m.temperature, m.inputVoltage,
		m.transitions, m.notificationFailures,
		m.discoveryRuns, m.devicesDiscovered, m.discoveryDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) PollCompleted(devices, online int, duration time.Duration) {
	m.pollsTotal.Inc()
	m.pollDuration.Observe(duration.Seconds())
	m.devicesPolled.Set(float64(devices))
	m.devicesOnline.Set(float64(online))
}

func (m *Manager) PollFailed() {
	m.pollFailures.Inc()
}

func (m *Manager) HistoryRecorded(result recorder.RecordResult) {
	m.samplesAppended.Add(float64(result.Appended))
	m.samplesPruned.Add(float64(result.Pruned))
	m.samplesSkipped.WithLabelValues("unchanged").Add(float64(result.Unchanged))
	m.samplesSkipped.WithLabelValues("offline").Add(float64(result.Skipped))
}

// ObserveReadings replaces the per-device gauges with the latest batch.
// Unresolved values are left out rather than exported as zero.
func (m *Manager) ObserveReadings(readings []models.Reading) {
	m.deviceUp.Reset()
	m.batteryCharge.Reset()
	m.outputLoad.Reset()
	m.temperature.Reset()
	m.inputVoltage.Reset()

	for i := range readings {
		r := &readings[i]
		labels := prometheus.Labels{"device_id": r.DeviceID, "name": r.DisplayName}

		up := 0.0
		if r.Online() {
			up = 1
		}

		m.deviceUp.With(labels).Set(up)
		setIfResolved(m.batteryCharge, labels, r.Battery)
		setIfResolved(m.outputLoad, labels, r.Load)
		setIfResolved(m.temperature, labels, r.Temperature)
		setIfResolved(m.inputVoltage, labels, r.InputVoltage)
	}
}

func setIfResolved(vec *prometheus.GaugeVec, labels prometheus.Labels, v *float64) {
	if v != nil {
		vec.With(labels).Set(*v)
	}
}

func (m *Manager) TransitionObserved(kind string) {
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *Manager) NotificationFailed(transport string) {
	m.notificationFailures.WithLabelValues(transport).Inc()
}

func (m *Manager) DiscoveryCompleted(discovered int, duration time.Duration) {
	m.discoveryRuns.Inc()
	m.devicesDiscovered.Add(float64(discovered))
	m.discoveryDuration.Observe(duration.Seconds())
}
