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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

const (
	insertSampleSQL = `INSERT INTO ups_history (id, name, timestamp, battery, load, temperature)
VALUES ($1, $2, $3, $4, $5, $6)`

	latestSampleSQL = `SELECT id, COALESCE(name, ''), timestamp, battery, load, temperature
FROM ups_history
WHERE id = $1
ORDER BY timestamp DESC, seq DESC
LIMIT 1`

	rangeSamplesSQL = `SELECT id, COALESCE(name, ''), timestamp, battery, load, temperature
FROM ups_history
WHERE timestamp >= $1 AND timestamp <= $2
ORDER BY timestamp ASC, id ASC, seq ASC`

	pruneSamplesSQL = `DELETE FROM ups_history WHERE timestamp < $1`
)

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can open transactions. *pgxpool.Pool satisfies it.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGStore persists samples in the ups_history table.
type PGStore struct {
	pool   Pool
	q      Querier
	logger logger.Logger
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps an open pool. Migrations are applied separately by RunMigrations.
func NewPGStore(pool Pool, log logger.Logger) *PGStore {
	return &PGStore{pool: pool, q: pool, logger: log}
}

func (s *PGStore) Append(ctx context.Context, sample *models.HistorySample) error {
	if err := validateSample(sample); err != nil {
		return err
	}

	_, err := s.q.Exec(ctx, insertSampleSQL,
		sample.DeviceID,
		sample.DisplayName,
		sample.TimestampMillis,
		sample.Battery,
		sample.Load,
		sample.Temperature,
	)
	if err != nil {
		return fmt.Errorf("history: insert sample for %s: %w", sample.DeviceID, err)
	}

	return nil
}

func (s *PGStore) Latest(ctx context.Context, deviceID string) (*models.HistorySample, error) {
	var sample models.HistorySample

	err := scanSample(s.q.QueryRow(ctx, latestSampleSQL, deviceID), &sample)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("history: latest sample for %s: %w", deviceID, err)
	}

	return &sample, nil
}

func (s *PGStore) QueryRange(ctx context.Context, from, to time.Time) ([]models.HistorySample, error) {
	if err := validateSpan(from, to); err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, rangeSamplesSQL, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("history: query range: %w", err)
	}
	defer rows.Close()

	samples := make([]models.HistorySample, 0)

	for rows.Next() {
		var sample models.HistorySample

		if err := scanSample(rows, &sample); err != nil {
			return nil, fmt.Errorf("history: scan sample: %w", err)
		}

		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate samples: %w", err)
	}

	return samples, nil
}

func (s *PGStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, pruneSamplesSQL, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}

	return tag.RowsAffected(), nil
}

// WithTx opens a transaction on the pool. Calls on a store that is already
// bound to a transaction run fn against that same transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin transaction: %w", err)
	}

	if err := fn(&PGStore{q: tx, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("Failed to roll back history transaction")
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history: commit transaction: %w", err)
	}

	return nil
}

func scanSample(row pgx.Row, sample *models.HistorySample) error {
	return row.Scan(
		&sample.DeviceID,
		&sample.DisplayName,
		&sample.TimestampMillis,
		&sample.Battery,
		&sample.Load,
		&sample.Temperature,
	)
}
