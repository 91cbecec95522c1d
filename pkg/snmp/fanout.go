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

package snmp

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/upswatch/pkg/models"
)

// DefaultConcurrency bounds parallel device queries.
const DefaultConcurrency = 16

// Querier reads live telemetry from one device. *Client satisfies it.
type Querier interface {
	Query(ctx context.Context, device models.Device) models.Reading
}

// QueryAll queries every device concurrently, at most limit at a time, and
// returns the readings in device order once all have completed.
func QueryAll(ctx context.Context, q Querier, devices []models.Device, limit int) []models.Reading {
	readings := make([]models.Reading, len(devices))

	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group

	g.SetLimit(limit)

	for i := range devices {
		g.Go(func() error {
			readings[i] = q.Query(ctx, devices[i])

			return nil
		})
	}

	_ = g.Wait()

	return readings
}
