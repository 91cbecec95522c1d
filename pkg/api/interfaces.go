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
	"time"

	"github.com/carverauto/upswatch/pkg/discovery"
	"github.com/carverauto/upswatch/pkg/models"
)

// Inventory is the device list served and renamed by the API.
type Inventory interface {
	List() []models.Device
	Get(id string) (models.Device, error)
	Rename(id, name string) (models.Device, error)
}

// HistoryReader answers range queries over stored samples.
type HistoryReader interface {
	QueryRange(ctx context.Context, from, to time.Time) ([]models.HistorySample, error)
}

// Discoverer runs one synchronous discovery sweep.
type Discoverer interface {
	Discover(ctx context.Context, community string) (discovery.Result, error)
}

// Snapshot exposes the readings of the most recent poll cycle.
type Snapshot interface {
	LastBatch() []models.Reading
}
