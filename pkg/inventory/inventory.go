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

// Package inventory keeps the list of monitored devices in a JSON file.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

const (
	inventoryDirPerms  = 0o755
	inventoryFilePerms = 0o644
)

var (
	ErrNotFound     = errors.New("device not found")
	ErrEmptyName    = errors.New("name is required")
	ErrDuplicateID  = errors.New("device id already exists")
	ErrMissingField = errors.New("device id and ip are required")
	errPathRequired = errors.New("inventory path is required")
)

// FileStore is the device inventory backed by a JSON array on disk.
type FileStore struct {
	path    string
	logger  logger.Logger
	mu      sync.RWMutex
	devices []models.Device
}

// Open loads the inventory at path. A missing or unreadable file yields an
// empty inventory; the failure is logged and the store stays usable.
func Open(path string, log logger.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errPathRequired
	}

	s := &FileStore{
		path:   path,
		logger: log,
	}

	s.mu.Lock()
	s.loadLocked()
	s.mu.Unlock()

	return s, nil
}

// List returns a copy of all devices in file order.
func (s *FileStore) List() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)

	return out
}

// Len returns the number of devices.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.devices)
}

// Get returns the device with id.
func (s *FileStore) Get(id string) (models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.devices[i], nil
	}

	return models.Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// HasAddress reports whether any device uses ip.
func (s *FileStore) HasAddress(ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.devices {
		if s.devices[i].Address == ip {
			return true
		}
	}

	return false
}

// HasID reports whether id is taken.
func (s *FileStore) HasID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexLocked(id) >= 0
}

// Add appends devices as one batch, persists, and reloads. Nothing is
// written when any device is invalid or collides with an existing id.
func (s *FileStore) Add(devices ...models.Device) error {
	if len(devices) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(devices))

	for i := range devices {
		d := &devices[i]

		if d.ID == "" || d.Address == "" {
			return ErrMissingField
		}

		if _, dup := seen[d.ID]; dup || s.indexLocked(d.ID) >= 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}

		seen[d.ID] = struct{}{}
	}

	next := make([]models.Device, 0, len(s.devices)+len(devices))
	next = append(next, s.devices...)
	next = append(next, devices...)

	if err := s.saveLocked(next); err != nil {
		return err
	}

	s.loadLocked()

	s.logger.Info().Int("added", len(devices)).Int("total", len(s.devices)).Msg("Inventory updated")

	return nil
}

// Rename sets the display name of id, persists, and returns the updated device.
func (s *FileStore) Rename(id, name string) (models.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Device{}, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]models.Device, len(s.devices))
	copy(next, s.devices)
	next[i].DisplayName = name

	if err := s.saveLocked(next); err != nil {
		return models.Device{}, err
	}

	s.loadLocked()

	if j := s.indexLocked(id); j >= 0 {
		return s.devices[j], nil
	}

	return models.Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FileStore) indexLocked(id string) int {
	for i := range s.devices {
		if s.devices[i].ID == id {
			return i
		}
	}

	return -1
}

func (s *FileStore) loadLocked() {
	devices, err := readFile(s.path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to load inventory, continuing with no devices")

		s.devices = nil

		return
	}

	s.devices = devices
}

func readFile(path string) ([]models.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var devices []models.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}

	return devices, nil
}

func (s *FileStore) saveLocked(devices []models.Device) error {
	if devices == nil {
		devices = []models.Device{}
	}

	payload, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}

	payload = append(payload, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), inventoryDirPerms); err != nil {
		return fmt.Errorf("create inventory directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, inventoryFilePerms); err != nil {
		return fmt.Errorf("write temporary inventory: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("persist inventory: %w", err)
	}

	return nil
}
