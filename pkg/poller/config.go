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

import (
	"time"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

const (
	defaultPollInterval = 5 * time.Minute
	defaultInitialDelay = 10 * time.Second
)

// Config represents poller configuration.
type Config struct {
	PollInterval models.Duration `json:"poll_interval" yaml:"poll_interval"`
	InitialDelay models.Duration `json:"initial_delay" yaml:"initial_delay"`
	Concurrency  int             `json:"concurrency" yaml:"concurrency"`
}

// Validate implements config.Validator interface.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.InitialDelay <= 0 {
		c.InitialDelay = models.Duration(defaultInitialDelay)
	}

	if c.Concurrency <= 0 {
		c.Concurrency = snmp.DefaultConcurrency
	}

	return nil
}

// DefaultConfig returns a 5 minute interval with a 10 second initial delay.
func DefaultConfig() Config {
	return Config{
		PollInterval: models.Duration(defaultPollInterval),
		InitialDelay: models.Duration(defaultInitialDelay),
		Concurrency:  snmp.DefaultConcurrency,
	}
}
