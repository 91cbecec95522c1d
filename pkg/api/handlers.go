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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/upswatch/pkg/inventory"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

const (
	defaultHistoryDays = 1
	maxRenameBodyBytes = 1 << 16
)

var historyRanges = map[int]struct{}{1: {}, 2: {}, 7: {}}

func (*APIServer) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// listReadings queries every device live. Unreachable devices come back
// offline with null telemetry; only an empty inventory is an error.
func (s *APIServer) listReadings(w http.ResponseWriter, r *http.Request) {
	devices := s.inventory.List()
	if len(devices) == 0 {
		writeError(w, "No UPS configuration loaded", http.StatusInternalServerError)

		return
	}

	readings := s.readDevices(r, devices)

	if err := s.encodeJSONResponse(w, readings); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode readings")
	}
}

func (s *APIServer) getReading(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	device, err := s.inventory.Get(id)
	if err != nil {
		writeError(w, "UPS not found", http.StatusNotFound)

		return
	}

	reading := s.readDevices(r, []models.Device{device})[0]

	if err := s.encodeJSONResponse(w, reading); err != nil {
		s.logger.Error().Err(err).Str("device_id", id).Msg("Failed to encode reading")
	}
}

// readDevices queries devices live. With ?cached=true it serves the most
// recent poll cycle instead and only queries devices that cycle did not see.
func (s *APIServer) readDevices(r *http.Request, devices []models.Device) []models.Reading {
	cached := s.cachedReadings(r)
	if len(cached) == 0 {
		return snmp.QueryAll(r.Context(), s.querier, devices, snmp.DefaultConcurrency)
	}

	out := make([]models.Reading, len(devices))

	var (
		missing    []models.Device
		missingIdx []int
	)

	for i := range devices {
		reading, ok := cached[devices[i].ID]
		if !ok {
			missing = append(missing, devices[i])
			missingIdx = append(missingIdx, i)

			continue
		}

		// a rename since the cycle shows the current name
		reading.DisplayName = devices[i].DisplayName
		out[i] = reading
	}

	if len(missing) > 0 {
		live := snmp.QueryAll(r.Context(), s.querier, missing, snmp.DefaultConcurrency)
		for j := range live {
			out[missingIdx[j]] = live[j]
		}
	}

	return out
}

func (s *APIServer) cachedReadings(r *http.Request) map[string]models.Reading {
	if s.snapshot == nil {
		return nil
	}

	if ok, _ := strconv.ParseBool(r.URL.Query().Get("cached")); !ok {
		return nil
	}

	batch := s.snapshot.LastBatch()
	out := make(map[string]models.Reading, len(batch))

	for i := range batch {
		out[batch[i].DeviceID] = batch[i]
	}

	return out
}

// parseRangeDays accepts 1, 2 or 7 and falls back to 1 for anything else.
func parseRangeDays(raw string) int {
	days, err := strconv.Atoi(raw)
	if err != nil {
		return defaultHistoryDays
	}

	if _, ok := historyRanges[days]; !ok {
		return defaultHistoryDays
	}

	return days
}

func (s *APIServer) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, "Failed to read UPS history", http.StatusInternalServerError)

		return
	}

	days := parseRangeDays(r.URL.Query().Get("range"))
	now := s.now()
	from := now.Add(-time.Duration(days) * 24 * time.Hour)

	samples, err := s.history.QueryRange(r.Context(), from, now)
	if err != nil {
		s.logger.Error().Err(err).Int("range_days", days).Msg("Failed to read history")
		writeError(w, "Failed to read UPS history", http.StatusInternalServerError)

		return
	}

	if samples == nil {
		samples = []models.HistorySample{}
	}

	if err := s.encodeJSONResponse(w, samples); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode history")
	}
}

func (s *APIServer) discover(w http.ResponseWriter, r *http.Request) {
	if s.discoverer == nil {
		writeError(w, "Discovery failed", http.StatusInternalServerError)

		return
	}

	// empty lets the scanner use its configured community
	res, err := s.discoverer.Discover(r.Context(), r.URL.Query().Get("community"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Discovery request failed")
		writeErrorDetail(w, "Discovery failed", err.Error(), http.StatusInternalServerError)

		return
	}

	out := models.DiscoveryResult{
		Success:    true,
		Discovered: res.Discovered,
		Devices:    res.Devices,
	}

	if err := s.encodeJSONResponse(w, out); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode discovery result")
	}
}

func (s *APIServer) renameDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdateDeviceRequest

	// a missing or malformed body is treated as a missing name
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenameBodyBytes)).Decode(&req)

	if req.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)

		return
	}

	device, err := s.inventory.Rename(id, req.Name)

	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, "UPS not found", http.StatusNotFound)

		return
	case errors.Is(err, inventory.ErrEmptyName):
		writeError(w, "Name is required", http.StatusBadRequest)

		return
	case err != nil:
		s.logger.Error().Err(err).Str("device_id", id).Msg("Failed to rename device")
		writeError(w, "Failed to save UPS configuration", http.StatusInternalServerError)

		return
	}

	s.logger.Info().Str("device_id", id).Str("name", device.DisplayName).Msg("Device renamed")

	if err := s.encodeJSONResponse(w, models.UpdateDeviceResponse{Success: true, Device: device}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode rename response")
	}
}

func (s *APIServer) getAlerts(w http.ResponseWriter, r *http.Request) {
	devices := s.inventory.List()
	if len(devices) == 0 {
		writeError(w, "No UPS configuration loaded", http.StatusInternalServerError)

		return
	}

	readings := s.readDevices(r, devices)

	if err := s.encodeJSONResponse(w, s.thresholds.Evaluate(readings, s.now())); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode alerts")
	}
}
