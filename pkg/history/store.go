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

// Package history persists change-detected UPS samples and answers range queries.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
)

// Retention is how long samples are kept before pruning.
const Retention = 7 * 24 * time.Hour

var (
	ErrNilSample   = errors.New("history: sample is nil")
	ErrNoDeviceID  = errors.New("history: sample has no device id")
	ErrInvalidSpan = errors.New("history: range end precedes start")
)

// Store is an append-only time series of HistorySamples.
type Store interface {
	// Append persists one sample.
	Append(ctx context.Context, sample *models.HistorySample) error
	// Latest returns the most recent sample for deviceID, or nil when none exists.
	Latest(ctx context.Context, deviceID string) (*models.HistorySample, error)
	// QueryRange returns samples of every device with from <= timestamp <= to,
	// ascending by timestamp then device id.
	QueryRange(ctx context.Context, from, to time.Time) ([]models.HistorySample, error)
	// Prune deletes samples with timestamp strictly before olderThan and reports how many went.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	// WithTx runs fn against a store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}

func validateSample(sample *models.HistorySample) error {
	if sample == nil {
		return ErrNilSample
	}

	if sample.DeviceID == "" {
		return ErrNoDeviceID
	}

	return nil
}

func validateSpan(from, to time.Time) error {
	if to.Before(from) {
		return ErrInvalidSpan
	}

	return nil
}
