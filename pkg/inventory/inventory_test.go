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

package inventory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

func writeInventory(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ups-config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestOpenLoadsDevices(t *testing.T) {
	path := writeInventory(t, `[
  {"id": "ups-2", "name": "Server room", "ip": "10.40.40.2"},
  {"id": "ups-3", "name": "Lab", "ip": "10.40.40.3", "community": "private"}
]`)

	s, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)

	devices := s.List()
	require.Len(t, devices, 2)
	assert.Equal(t, "Server room", devices[0].DisplayName)
	assert.Equal(t, "public", devices[0].Community())
	assert.Equal(t, "private", devices[1].Community())

	assert.True(t, s.HasAddress("10.40.40.3"))
	assert.False(t, s.HasAddress("10.40.40.4"))
	assert.True(t, s.HasID("ups-2"))

	d, err := s.Get("ups-3")
	require.NoError(t, err)
	assert.Equal(t, "Lab", d.DisplayName)

	_, err = s.Get("ups-9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenMissingOrCorruptFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "missing.json"), logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	s, err = Open(writeInventory(t, "{not json"), logger.NewTestLogger())
	require.NoError(t, err)
	assert.Empty(t, s.List())

	_, err = Open("", logger.NewTestLogger())
	require.Error(t, err)
}

func TestAddPersistsBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ups-config.json")

	s, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)

	require.NoError(t, s.Add(
		models.Device{ID: "ups-5", DisplayName: "UPS-40-5", Address: "10.40.40.5", SharedSecret: "public"},
		models.Device{ID: "ups-6", DisplayName: "UPS-40-6", Address: "10.40.40.6"},
	))
	assert.Equal(t, 2, s.Len())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk []map[string]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	require.Len(t, onDisk, 2)
	assert.Equal(t, "10.40.40.5", onDisk[0]["ip"])
	assert.Equal(t, "UPS-40-6", onDisk[1]["name"])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	reopened, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, s.List(), reopened.List())
}

func TestAddRejectsDuplicatesWithoutWriting(t *testing.T) {
	path := writeInventory(t, `[{"id": "ups-2", "name": "A", "ip": "10.40.40.2"}]`)

	s, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)

	err = s.Add(
		models.Device{ID: "ups-7", Address: "10.40.40.7"},
		models.Device{ID: "ups-2", Address: "10.40.40.9"},
	)
	require.ErrorIs(t, err, ErrDuplicateID)

	err = s.Add(models.Device{ID: "ups-8"})
	require.ErrorIs(t, err, ErrMissingField)

	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasID("ups-7"))
}

func TestRename(t *testing.T) {
	path := writeInventory(t, `[{"id": "ups-2", "name": "Old", "ip": "10.40.40.2"}]`)

	s, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)

	d, err := s.Rename("ups-2", "  Rack 4  ")
	require.NoError(t, err)
	assert.Equal(t, "Rack 4", d.DisplayName)
	assert.Equal(t, "10.40.40.2", d.Address)

	_, err = s.Rename("ups-2", "   ")
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = s.Rename("ups-9", "X")
	require.ErrorIs(t, err, ErrNotFound)

	reopened, err := Open(path, logger.NewTestLogger())
	require.NoError(t, err)

	got, err := reopened.Get("ups-2")
	require.NoError(t, err)
	assert.Equal(t, "Rack 4", got.DisplayName)
}

func TestListReturnsCopy(t *testing.T) {
	s, err := Open(writeInventory(t, `[{"id": "ups-2", "name": "A", "ip": "10.40.40.2"}]`), logger.NewTestLogger())
	require.NoError(t, err)

	devices := s.List()
	devices[0].DisplayName = "mutated"

	got, err := s.Get("ups-2")
	require.NoError(t, err)
	assert.Equal(t, "A", got.DisplayName)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "inv.json"), logger.NewTestLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)

		go func(n int) {
			defer wg.Done()

			_ = s.Add(models.Device{ID: "ups-" + string(rune('a'+n)), Address: "10.0.0." + string(rune('a'+n))})
		}(i)

		go func() {
			defer wg.Done()

			_ = s.List()
			_ = s.HasAddress("10.0.0.a")
		}()
	}

	wg.Wait()

	assert.Equal(t, 8, s.Len())
}
