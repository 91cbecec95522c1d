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

// Package recorder persists poll results to history when the telemetry changed.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/carverauto/upswatch/pkg/history"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

// RecordResult summarises one recording pass.
type RecordResult struct {
	Appended  int
	Unchanged int
	Skipped   int
	Pruned    int64
}

// Recorder appends a HistorySample for every online reading whose
// (battery, load, temperature) triple differs from the device's latest sample,
// then prunes samples older than the retention window.
type Recorder struct {
	store     history.Store
	retention time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// New creates a Recorder with the default retention window.
func New(store history.Store, log logger.Logger) *Recorder {
	return &Recorder{
		store:     store,
		retention: history.Retention,
		logger:    log,
		now:       time.Now,
	}
}

// Record processes one poll batch. Appends and the prune share one transaction.
func (r *Recorder) Record(ctx context.Context, readings []models.Reading) (RecordResult, error) {
	now := r.now()
	batchTS := now.UnixMilli()

	var result RecordResult

	err := r.store.WithTx(ctx, func(tx history.Store) error {
		result = RecordResult{}

		for i := range readings {
			reading := &readings[i]

			if !reading.Online() {
				result.Skipped++
				continue
			}

			appended, err := r.recordOne(ctx, tx, reading, batchTS)
			if err != nil {
				return err
			}

			if appended {
				result.Appended++
			} else {
				result.Unchanged++
			}
		}

		pruned, err := tx.Prune(ctx, now.Add(-r.retention))
		if err != nil {
			return err
		}

		result.Pruned = pruned

		return nil
	})
	if err != nil {
		return RecordResult{}, fmt.Errorf("record batch: %w", err)
	}

	r.logger.Debug().
		Int("appended", result.Appended).
		Int("unchanged", result.Unchanged).
		Int("skipped", result.Skipped).
		Int64("pruned", result.Pruned).
		Msg("Recorded poll batch")

	return result, nil
}

func (r *Recorder) recordOne(ctx context.Context, tx history.Store, reading *models.Reading, batchTS int64) (bool, error) {
	latest, err := tx.Latest(ctx, reading.DeviceID)
	if err != nil {
		return false, err
	}

	if latest != nil && sameTelemetry(latest, reading) {
		return false, nil
	}

	ts := batchTS

	// the wall clock stepped back; keep per-device order
	if latest != nil && latest.TimestampMillis > ts {
		r.logger.Warn().
			Str("device_id", reading.DeviceID).
			Int64("previous_ts", latest.TimestampMillis).
			Int64("batch_ts", batchTS).
			Msg("Clock moved backwards, reusing previous sample timestamp")

		ts = latest.TimestampMillis
	}

	sample := &models.HistorySample{
		DeviceID:        reading.DeviceID,
		DisplayName:     reading.DisplayName,
		TimestampMillis: ts,
		Battery:         reading.Battery,
		Load:            reading.Load,
		Temperature:     reading.Temperature,
	}

	if err := tx.Append(ctx, sample); err != nil {
		return false, err
	}

	return true, nil
}

func sameTelemetry(prev *models.HistorySample, reading *models.Reading) bool {
	return equalNullable(prev.Battery, reading.Battery) &&
		equalNullable(prev.Load, reading.Load) &&
		equalNullable(prev.Temperature, reading.Temperature)
}

// equalNullable treats two nils as equal and nil versus a value as different.
func equalNullable(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
