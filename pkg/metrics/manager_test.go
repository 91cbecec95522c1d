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

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/recorder"
)

func TestPollAndHistoryCounters(t *testing.T) {
	m := NewManager()

	m.PollCompleted(3, 2, 1500*time.Millisecond)
	m.PollCompleted(3, 1, time.Second)
	m.PollFailed()
	m.HistoryRecorded(recorder.RecordResult{Appended: 2, Unchanged: 1, Skipped: 1, Pruned: 7})

	assert.InDelta(t, 2, testutil.ToFloat64(m.pollsTotal), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.pollFailures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.devicesOnline), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.devicesPolled), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.samplesAppended), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.samplesPruned), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.samplesSkipped.WithLabelValues("offline")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.pollDuration))
}

func TestObserveReadingsReplacesGauges(t *testing.T) {
	m := NewManager()

	m.ObserveReadings([]models.Reading{
		{DeviceID: "ups-2", DisplayName: "A", Status: models.StatusOnline, Battery: models.Float(88), Load: models.Float(40)},
		{DeviceID: "ups-3", DisplayName: "B", Status: models.StatusOffline},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(m.deviceUp.WithLabelValues("ups-2", "A")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.deviceUp.WithLabelValues("ups-3", "B")), 0)
	assert.InDelta(t, 88, testutil.ToFloat64(m.batteryCharge.WithLabelValues("ups-2", "A")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.batteryCharge))
	assert.Equal(t, 0, testutil.CollectAndCount(m.temperature))

	m.ObserveReadings([]models.Reading{
		{DeviceID: "ups-3", DisplayName: "B", Status: models.StatusOnline, Temperature: models.Float(31)},
	})

	assert.Equal(t, 1, testutil.CollectAndCount(m.deviceUp))
	assert.Equal(t, 0, testutil.CollectAndCount(m.batteryCharge))
	assert.Equal(t, 1, testutil.CollectAndCount(m.temperature))
}

func TestNotificationAndDiscoveryCounters(t *testing.T) {
	m := NewManager()

	m.TransitionObserved("offline")
	m.TransitionObserved("offline")
	m.TransitionObserved("recovered")
	m.NotificationFailed("nats")
	m.DiscoveryCompleted(3, 2*time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.transitions.WithLabelValues("offline")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.transitions.WithLabelValues("recovered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.notificationFailures.WithLabelValues("nats")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.discoveryRuns), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.devicesDiscovered), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewManager()
	m.PollCompleted(1, 1, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "upswatch_polls_total 1"))
	assert.Contains(t, string(body), "go_goroutines")
}
