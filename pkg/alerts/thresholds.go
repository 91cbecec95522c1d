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

package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
)

// Severity ranks a threshold alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Thresholds bound the telemetry values that raise alerts.
type Thresholds struct {
	BatteryCritical     float64 `json:"battery_critical" yaml:"battery_critical"`
	BatteryWarning      float64 `json:"battery_warning" yaml:"battery_warning"`
	LoadCritical        float64 `json:"load_critical" yaml:"load_critical"`
	LoadWarning         float64 `json:"load_warning" yaml:"load_warning"`
	TemperatureCritical float64 `json:"temperature_critical" yaml:"temperature_critical"`
	TemperatureWarning  float64 `json:"temperature_warning" yaml:"temperature_warning"`
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BatteryCritical:     20,
		BatteryWarning:      40,
		LoadCritical:        95,
		LoadWarning:         80,
		TemperatureCritical: 45,
		TemperatureWarning:  40,
	}
}

// Alert is one threshold violation derived from a live reading.
type Alert struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId,omitempty"`
	Device    string    `json:"device"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluate derives alerts from readings, most severe first.
// When nothing fires and readings is non-empty a single info alert is returned.
func (t Thresholds) Evaluate(readings []models.Reading, now time.Time) []Alert {
	out := make([]Alert, 0)

	add := func(r *models.Reading, sev Severity, msg string) {
		out = append(out, Alert{
			ID:        fmt.Sprintf("ALERT-%03d", len(out)+1),
			DeviceID:  r.DeviceID,
			Device:    deviceLabel(r),
			Severity:  sev,
			Message:   msg,
			Timestamp: r.Time(),
		})
	}

	for i := range readings {
		r := &readings[i]

		if !r.Online() || r.Battery == nil {
			add(r, SeverityCritical, "UPS offline. Network connection lost.")
		}

		if r.Battery != nil {
			switch {
			case *r.Battery <= t.BatteryCritical:
				add(r, SeverityCritical, "Battery level critical. Immediate attention required.")
			case *r.Battery <= t.BatteryWarning:
				add(r, SeverityWarning, "Battery level below threshold.")
			}
		}

		if r.Load != nil {
			switch {
			case *r.Load >= t.LoadCritical:
				add(r, SeverityCritical, "Load exceeded maximum capacity.")
			case *r.Load >= t.LoadWarning:
				add(r, SeverityWarning, "Load approaching maximum capacity.")
			}
		}

		if r.Temperature != nil {
			switch {
			case *r.Temperature >= t.TemperatureCritical:
				add(r, SeverityCritical, "Temperature threshold exceeded. Cooling system failure.")
			case *r.Temperature >= t.TemperatureWarning:
				add(r, SeverityWarning, "High temperature detected.")
			}
		}
	}

	if len(out) == 0 && len(readings) > 0 {
		out = append(out, Alert{
			ID:        "ALERT-001",
			DeviceID:  readings[0].DeviceID,
			Device:    deviceLabel(&readings[0]),
			Severity:  SeverityInfo,
			Message:   "All monitored UPS devices are within normal operating parameters.",
			Timestamp: now,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.rank() != out[j].Severity.rank() {
			return out[i].Severity.rank() < out[j].Severity.rank()
		}

		return out[i].Timestamp.After(out[j].Timestamp)
	})

	return out
}

func deviceLabel(r *models.Reading) string {
	switch {
	case r.DisplayName != "":
		return r.DisplayName
	case r.DeviceID != "":
		return r.DeviceID
	default:
		return r.Address
	}
}
