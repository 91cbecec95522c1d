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

package models

import "time"

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// DeviceTransitionEventData is the payload of a device status change event.
type DeviceTransitionEventData struct {
	DeviceID      string       `json:"device_id"`
	DisplayName   string       `json:"name"`
	Address       string       `json:"ip"`
	PreviousState DeviceStatus `json:"previous_state"`
	CurrentState  DeviceStatus `json:"current_state"`
	Timestamp     time.Time    `json:"timestamp"`
	Message       string       `json:"message"`
}

// NotificationEventData is the payload used when a plain text message is
// published as an event, such as the daily digest.
type NotificationEventData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
