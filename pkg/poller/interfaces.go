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

package poller

//go:generate mockgen -destination=mock_poller.go -package=poller github.com/carverauto/upswatch/pkg/poller Clock,Ticker

import (
	"context"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/notifier"
	"github.com/carverauto/upswatch/pkg/recorder"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// DeviceSource lists the devices to poll. Read fresh on every cycle.
type DeviceSource interface {
	List() []models.Device
}

// BatchRecorder persists a poll batch.
type BatchRecorder interface {
	Record(ctx context.Context, readings []models.Reading) (recorder.RecordResult, error)
}

// BatchObserver reacts to status changes within a poll batch.
type BatchObserver interface {
	Observe(ctx context.Context, readings []models.Reading) []notifier.Transition
}

// Metrics records poll cycle outcomes.
type Metrics interface {
	PollCompleted(devices, online int, duration time.Duration)
	PollFailed()
	HistoryRecorded(result recorder.RecordResult)
	ObserveReadings(readings []models.Reading)
}
