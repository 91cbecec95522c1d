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

// Package models holds the data types shared across UPSWatch packages.
package models

import "time"

// DefaultCommunity is the SNMP community used when a device does not carry one.
const DefaultCommunity = "public"

// DeviceStatus is the reachability of a device as seen by the last query.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)

// Device is one monitored UPS unit. JSON keys match the inventory file layout.
type Device struct {
	ID           string `json:"id"`
	DisplayName  string `json:"name"`
	Address      string `json:"ip"`
	SharedSecret string `json:"community,omitempty"`
}

// Community returns the SNMP community for the device, falling back to DefaultCommunity.
func (d *Device) Community() string {
	if d.SharedSecret == "" {
		return DefaultCommunity
	}

	return d.SharedSecret
}

// Reading is the result of one live query of a device.
// Offline readings never carry telemetry; online readings may carry nil
// fields when an individual OID did not resolve.
type Reading struct {
	DeviceID        string       `json:"id"`
	DisplayName     string       `json:"name"`
	Address         string       `json:"ip"`
	Status          DeviceStatus `json:"status"`
	Battery         *float64     `json:"battery"`
	Load            *float64     `json:"load"`
	Temperature     *float64     `json:"temperature"`
	InputVoltage    *float64     `json:"inputVoltage"`
	TimestampMillis int64        `json:"lastUpdate"`
}

// Online reports whether the reading came from a device that answered.
func (r *Reading) Online() bool {
	return r.Status == StatusOnline
}

// Time returns the capture time of the reading.
func (r *Reading) Time() time.Time {
	return time.UnixMilli(r.TimestampMillis)
}

// OfflineReading builds the reading reported for a device that did not answer.
func OfflineReading(device *Device, at time.Time) Reading {
	return Reading{
		DeviceID:        device.ID,
		DisplayName:     device.DisplayName,
		Address:         device.Address,
		Status:          StatusOffline,
		TimestampMillis: at.UnixMilli(),
	}
}

// HistorySample is the persisted subset of a Reading.
type HistorySample struct {
	DeviceID        string   `json:"id"`
	DisplayName     string   `json:"name"`
	TimestampMillis int64    `json:"timestamp"`
	Battery         *float64 `json:"battery"`
	Load            *float64 `json:"load"`
	Temperature     *float64 `json:"temperature"`
}

// Time returns the sample timestamp.
func (s *HistorySample) Time() time.Time {
	return time.UnixMilli(s.TimestampMillis)
}

// Float returns a pointer to v. Handy for building readings and fixtures.
func Float(v float64) *float64 {
	return &v
}
