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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/upswatch/pkg/alerts"
	"github.com/carverauto/upswatch/pkg/discovery"
	"github.com/carverauto/upswatch/pkg/history"
	"github.com/carverauto/upswatch/pkg/inventory"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeQuerier map[string]models.Reading

func (f fakeQuerier) Query(_ context.Context, device models.Device) models.Reading {
	if r, ok := f[device.ID]; ok {
		r.DeviceID = device.ID
		r.DisplayName = device.DisplayName
		r.Address = device.Address
		r.Status = models.StatusOnline

		return r
	}

	return models.OfflineReading(&device, fixedNow)
}

type fakeDiscoverer struct {
	community string
	result    discovery.Result
	err       error
}

func (f *fakeDiscoverer) Discover(_ context.Context, community string) (discovery.Result, error) {
	f.community = community

	return f.result, f.err
}

type staticSnapshot []models.Reading

func (s staticSnapshot) LastBatch() []models.Reading { return s }

type fixture struct {
	inv     *inventory.FileStore
	store   *history.MemoryStore
	disc    *fakeDiscoverer
	handler http.Handler
}

func newFixture(t *testing.T, devices ...models.Device) *fixture {
	t.Helper()

	return newFixtureWith(t, devices)
}

func newFixtureWith(t *testing.T, devices []models.Device, opts ...func(*APIServer)) *fixture {
	t.Helper()

	inv, err := inventory.Open(filepath.Join(t.TempDir(), "ups-config.json"), logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, inv.Add(devices...))

	f := &fixture{
		inv:   inv,
		store: history.NewMemoryStore(),
		disc:  &fakeDiscoverer{result: discovery.Result{Devices: []models.Device{}}},
	}

	q := fakeQuerier{
		"ups-2": {Battery: models.Float(15), Load: models.Float(42), Temperature: models.Float(30), InputVoltage: models.Float(229)},
	}

	s := NewAPIServer(models.CORSConfig{AllowedOrigins: []string{"*"}},
		WithInventory(inv),
		WithQuerier(q),
		WithHistory(f.store),
		WithDiscoverer(f.disc),
		WithLogger(logger.NewTestLogger()),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("upswatch_polls_total 0\n"))
		})),
	)

	for _, o := range opts {
		o(s)
	}
	s.now = func() time.Time { return fixedNow }
	f.handler = s.Handler()

	return f
}

var twoDevices = []models.Device{
	{ID: "ups-2", DisplayName: "Server room", Address: "10.40.40.2"},
	{ID: "ups-3", DisplayName: "Lab", Address: "10.40.40.3"},
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))

	return e.Error
}

func TestListReadingsPartialFleet(t *testing.T) {
	f := newFixture(t, twoDevices...)

	rr := do(t, f.handler, http.MethodGet, "/api/ups", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Len(t, raw, 2)

	assert.Equal(t, "ups-2", raw[0]["id"])
	assert.Equal(t, "Server room", raw[0]["name"])
	assert.Equal(t, "10.40.40.2", raw[0]["ip"])
	assert.Equal(t, "online", raw[0]["status"])
	assert.InDelta(t, 229, raw[0]["inputVoltage"], 0.001)

	assert.Equal(t, "offline", raw[1]["status"])
	assert.Nil(t, raw[1]["battery"])
	assert.Contains(t, raw[1], "lastUpdate")

	assert.Equal(t, 0, f.store.Len())
}

func TestListReadingsEmptyInventory(t *testing.T) {
	f := newFixture(t)

	rr := do(t, f.handler, http.MethodGet, "/api/ups", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "No UPS configuration loaded", decodeError(t, rr))
}

func TestGetReading(t *testing.T) {
	f := newFixture(t, twoDevices...)

	rr := do(t, f.handler, http.MethodGet, "/api/ups/ups-2", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var r models.Reading
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &r))
	assert.Equal(t, "ups-2", r.DeviceID)
	assert.InDelta(t, 15, *r.Battery, 0.001)

	rr = do(t, f.handler, http.MethodGet, "/api/ups/ups-9", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadingsCachedFromLastCycle(t *testing.T) {
	lastCycle := staticSnapshot{
		{DeviceID: "ups-2", DisplayName: "old name", Address: "10.40.40.2", Status: models.StatusOffline, TimestampMillis: 1},
	}

	f := newFixtureWith(t, twoDevices, WithSnapshot(lastCycle))

	rr := do(t, f.handler, http.MethodGet, "/api/ups/ups-2?cached=true", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var r models.Reading
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &r))
	assert.Equal(t, models.StatusOffline, r.Status)
	assert.Equal(t, "Server room", r.DisplayName)
	assert.Equal(t, int64(1), r.TimestampMillis)

	// ups-3 was not in the cycle, so it is queried live
	rr = do(t, f.handler, http.MethodGet, "/api/ups?cached=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var all []models.Reading
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	require.Len(t, all, 2)
	assert.Equal(t, models.StatusOffline, all[0].Status)
	assert.Equal(t, "ups-3", all[1].DeviceID)
	assert.Equal(t, fixedNow.UnixMilli(), all[1].TimestampMillis)

	// without the flag the device is read live
	rr = do(t, f.handler, http.MethodGet, "/api/ups/ups-2", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &r))
	assert.Equal(t, models.StatusOnline, r.Status)
}

func TestReadingsCachedBeforeFirstCycleQueriesLive(t *testing.T) {
	f := newFixtureWith(t, twoDevices, WithSnapshot(staticSnapshot{}))

	rr := do(t, f.handler, http.MethodGet, "/api/ups/ups-2?cached=true", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var r models.Reading
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &r))
	assert.Equal(t, models.StatusOnline, r.Status)
	assert.InDelta(t, 15, *r.Battery, 0.001)
}

func TestHistoryRange(t *testing.T) {
	f := newFixture(t, twoDevices...)
	ctx := context.Background()

	for _, ts := range []time.Time{
		fixedNow.Add(-6 * 24 * time.Hour),
		fixedNow.Add(-2 * 24 * time.Hour),
		fixedNow.Add(-30 * time.Minute),
	} {
		require.NoError(t, f.store.Append(ctx, &models.HistorySample{
			DeviceID: "ups-2", DisplayName: "Server room", TimestampMillis: ts.UnixMilli(), Battery: models.Float(90),
		}))
	}

	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: 1},
		{query: "?range=1", want: 1},
		{query: "?range=2", want: 2},
		{query: "?range=7", want: 3},
		{query: "?range=3", want: 1},
		{query: "?range=abc", want: 1},
	}

	for _, tt := range tests {
		t.Run("range"+tt.query, func(t *testing.T) {
			rr := do(t, f.handler, http.MethodGet, "/api/ups/history"+tt.query, "")
			require.Equal(t, http.StatusOK, rr.Code)

			var samples []models.HistorySample
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &samples))
			assert.Len(t, samples, tt.want)

			for i := 1; i < len(samples); i++ {
				assert.LessOrEqual(t, samples[i-1].TimestampMillis, samples[i].TimestampMillis)
			}
		})
	}

	rr := do(t, f.handler, http.MethodGet, "/api/ups/history?range=1", "")
	assert.Contains(t, rr.Body.String(), `"timestamp":`)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	f := newFixture(t, twoDevices...)

	rr := do(t, f.handler, http.MethodGet, "/api/ups/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestDiscover(t *testing.T) {
	f := newFixture(t)
	f.disc.result = discovery.Result{
		Discovered: 1,
		Devices:    []models.Device{{ID: "ups-5", DisplayName: "UPS-40-5", Address: "10.40.40.5", SharedSecret: "private"}},
	}

	rr := do(t, f.handler, http.MethodPost, "/api/discover?community=private", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "private", f.disc.community)

	var out models.DiscoveryResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Discovered)
	assert.Equal(t, "ups-5", out.Devices[0].ID)

	// the scanner resolves an empty community to its configured one
	do(t, f.handler, http.MethodPost, "/api/discover", "")
	assert.Empty(t, f.disc.community)

	f.disc.err = errors.New("inventory write failed")
	rr = do(t, f.handler, http.MethodPost, "/api/discover", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "inventory write failed")
}

func TestRenameDevice(t *testing.T) {
	f := newFixture(t, twoDevices...)

	rr := do(t, f.handler, http.MethodPost, "/api/ups/ups-3/update", `{"name":"Lab east"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var out models.UpdateDeviceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "Lab east", out.Device.DisplayName)
	assert.Equal(t, "10.40.40.3", out.Device.Address)

	got, err := f.inv.Get("ups-3")
	require.NoError(t, err)
	assert.Equal(t, "Lab east", got.DisplayName)

	rr = do(t, f.handler, http.MethodPost, "/api/ups/ups-3/update", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Name is required", decodeError(t, rr))

	rr = do(t, f.handler, http.MethodPost, "/api/ups/ups-3/update", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, f.handler, http.MethodPost, "/api/ups/ups-9/update", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "UPS not found", decodeError(t, rr))

	got, err = f.inv.Get("ups-3")
	require.NoError(t, err)
	assert.Equal(t, "Lab east", got.DisplayName)
}

func TestAlerts(t *testing.T) {
	f := newFixture(t, twoDevices...)

	rr := do(t, f.handler, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var list []alerts.Alert
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.NotEmpty(t, list)

	assert.Equal(t, alerts.SeverityCritical, list[0].Severity)

	var sawOffline, sawBattery bool

	for _, a := range list {
		if a.DeviceID == "ups-3" && a.Severity == alerts.SeverityCritical {
			sawOffline = true
		}

		if a.DeviceID == "ups-2" && strings.Contains(strings.ToLower(a.Message), "battery") {
			sawBattery = true
		}
	}

	assert.True(t, sawOffline)
	assert.True(t, sawBattery)
}

func TestHealthAndMetricsAndCORS(t *testing.T) {
	f := newFixture(t)

	rr := do(t, f.handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, f.handler, http.MethodGet, "/metrics", "")
	assert.Contains(t, rr.Body.String(), "upswatch_polls_total")

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set("Origin", "http://dash.local")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>UPS</h1>"), 0o600))

	s := NewAPIServer(models.CORSConfig{}, WithStaticDir(dir), WithInventory(newFixture(t).inv))

	rr := do(t, s.Handler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>UPS</h1>")

	rr = do(t, s.Handler(), http.MethodGet, "/api/ups", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	s := NewAPIServer(models.CORSConfig{}, WithListenAddr("127.0.0.1:0"), WithInventory(f.inv))

	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
