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

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
)

const (
	defaultNetworkBase  = "10.40.40"
	defaultStartHost    = 2
	defaultEndHost      = 30
	defaultConcurrency  = 16
	defaultInterval     = time.Hour
	defaultInitialDelay = 5 * time.Second
	defaultProbeTimeout = 5 * time.Second
	maxHostOctet        = 254
)

// Config controls the address sweep and the auto-discovery loop.
type Config struct {
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	NetworkBase  string          `json:"network_base" yaml:"network_base"`
	Start        int             `json:"start" yaml:"start"`
	End          int             `json:"end" yaml:"end"`
	Concurrency  int             `json:"concurrency" yaml:"concurrency"`
	Interval     models.Duration `json:"interval" yaml:"interval"`
	InitialDelay models.Duration `json:"initial_delay" yaml:"initial_delay"`
	Timeout      models.Duration `json:"timeout" yaml:"timeout"`
	Community    string          `json:"community" yaml:"community"`
}

// DefaultConfig returns the sweep of 10.40.40.2 to 10.40.40.30 with auto-discovery on.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		NetworkBase:  defaultNetworkBase,
		Start:        defaultStartHost,
		End:          defaultEndHost,
		Concurrency:  defaultConcurrency,
		Interval:     models.Duration(defaultInterval),
		InitialDelay: models.Duration(defaultInitialDelay),
		Timeout:      models.Duration(defaultProbeTimeout),
		Community:    models.DefaultCommunity,
	}
}

// Validate fills defaults and rejects unusable ranges.
func (c *Config) Validate() error {
	if c.NetworkBase == "" {
		c.NetworkBase = defaultNetworkBase
	}

	addr, err := netip.ParseAddr(c.NetworkBase + ".0")
	if err != nil || !addr.Is4() {
		return fmt.Errorf("%w: %q", ErrInvalidNetworkBase, c.NetworkBase)
	}

	if c.Start == 0 && c.End == 0 {
		c.Start, c.End = defaultStartHost, defaultEndHost
	}

	if c.Start < 1 || c.End > maxHostOctet || c.Start > c.End {
		return fmt.Errorf("%w: %d-%d", ErrInvalidRange, c.Start, c.End)
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}

	if c.Interval <= 0 {
		c.Interval = models.Duration(defaultInterval)
	}

	if c.InitialDelay <= 0 {
		c.InitialDelay = models.Duration(defaultInitialDelay)
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultProbeTimeout)
	}

	if c.Community == "" {
		c.Community = models.DefaultCommunity
	}

	return nil
}

// Result summarizes one sweep.
type Result struct {
	Discovered int             `json:"discovered"`
	Devices    []models.Device `json:"ups"`
}

// Metrics records sweep outcomes.
type Metrics interface {
	DiscoveryCompleted(discovered int, duration time.Duration)
}

// subnetSuffix is the last octet of the network base, used in generated names.
func (c *Config) subnetSuffix() string {
	for i := len(c.NetworkBase) - 1; i >= 0; i-- {
		if c.NetworkBase[i] == '.' {
			return c.NetworkBase[i+1:]
		}
	}

	return c.NetworkBase
}

func (c *Config) address(host int) string {
	return fmt.Sprintf("%s.%d", c.NetworkBase, host)
}
