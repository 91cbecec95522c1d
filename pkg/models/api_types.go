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

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DiscoveryResult is returned by a discovery sweep.
type DiscoveryResult struct {
	Success    bool     `json:"success"`
	Discovered int      `json:"discovered"`
	Devices    []Device `json:"ups"`
}

// UpdateDeviceRequest renames a device.
type UpdateDeviceRequest struct {
	Name string `json:"name"`
}

// UpdateDeviceResponse is returned after a successful rename.
type UpdateDeviceResponse struct {
	Success bool   `json:"success"`
	Device  Device `json:"ups"`
}

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
}
