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

package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
)

// MemoryStore keeps samples in a slice ordered by timestamp then device id.
// It backs tests and serves as the fallback when PostgreSQL is unreachable.
type MemoryStore struct {
	mu      sync.RWMutex
	samples []models.HistorySample
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, sample *models.HistorySample) error {
	if err := validateSample(sample); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertLocked(*sample)

	return nil
}

// insertLocked keeps the slice sorted; equal keys keep insertion order.
func (m *MemoryStore) insertLocked(sample models.HistorySample) {
	idx := sort.Search(len(m.samples), func(i int) bool {
		return sampleLess(&sample, &m.samples[i])
	})

	m.samples = append(m.samples, models.HistorySample{})
	copy(m.samples[idx+1:], m.samples[idx:])
	m.samples[idx] = sample
}

func sampleLess(a, b *models.HistorySample) bool {
	if a.TimestampMillis != b.TimestampMillis {
		return a.TimestampMillis < b.TimestampMillis
	}

	return a.DeviceID < b.DeviceID
}

func (m *MemoryStore) Latest(_ context.Context, deviceID string) (*models.HistorySample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.samples) - 1; i >= 0; i-- {
		if m.samples[i].DeviceID == deviceID {
			s := m.samples[i]
			return &s, nil
		}
	}

	return nil, nil
}

func (m *MemoryStore) QueryRange(_ context.Context, from, to time.Time) ([]models.HistorySample, error) {
	if err := validateSpan(from, to); err != nil {
		return nil, err
	}

	lo, hi := from.UnixMilli(), to.UnixMilli()

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := sort.Search(len(m.samples), func(i int) bool {
		return m.samples[i].TimestampMillis >= lo
	})
	end := sort.Search(len(m.samples), func(i int) bool {
		return m.samples[i].TimestampMillis > hi
	})

	out := make([]models.HistorySample, end-start)
	copy(out, m.samples[start:end])

	return out, nil
}

func (m *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixMilli()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := sort.Search(len(m.samples), func(i int) bool {
		return m.samples[i].TimestampMillis >= cutoff
	})

	m.samples = append(m.samples[:0], m.samples[n:]...)

	return int64(n), nil
}

// WithTx runs fn against a staging copy and swaps it in only when fn succeeds.
// The write lock is held for the duration of fn.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := &MemoryStore{samples: append([]models.HistorySample(nil), m.samples...)}

	if err := fn(staged); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m.samples = staged.samples

	return nil
}

// Len reports the number of stored samples.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.samples)
}
