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

package discovery

//go:generate mockgen -destination=mock_discovery.go -package=discovery github.com/carverauto/upswatch/pkg/discovery Prober,Inventory

import (
	"context"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

// Prober checks whether an address answers like a UPS. *snmp.Client satisfies it.
type Prober interface {
	Probe(ctx context.Context, address, community string) snmp.ProbeResult
}

// Inventory is the device list discovery reads from and appends to.
type Inventory interface {
	HasAddress(ip string) bool
	HasID(id string) bool
	Add(devices ...models.Device) error
}
