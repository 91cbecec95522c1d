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

package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/upswatch/pkg/alerts"
	"github.com/carverauto/upswatch/pkg/discovery"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/notifier"
	"github.com/carverauto/upswatch/pkg/poller"
	"github.com/carverauto/upswatch/pkg/snmp"
)

const (
	defaultListenAddr    = ":3001"
	defaultInventoryPath = "ups-config.json"
	defaultServiceName   = "upswatch"
	defaultDigestHour    = 8
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is the complete upswatch process configuration.
type Config struct {
	ServiceName     string                 `json:"service_name" yaml:"service_name"`
	ListenAddr      string                 `json:"listen_addr" yaml:"listen_addr"`
	InventoryPath   string                 `json:"inventory_path" yaml:"inventory_path"`
	StaticDir       string                 `json:"static_dir" yaml:"static_dir"`
	PollInterval    models.Duration        `json:"poll_interval" yaml:"poll_interval"`
	InitialDelay    models.Duration        `json:"initial_delay" yaml:"initial_delay"`
	Concurrency     int                    `json:"concurrency" yaml:"concurrency"`
	ShutdownTimeout models.Duration        `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	Logging         *logger.Config         `json:"logging" yaml:"logging"`
	SNMP            snmp.Config            `json:"snmp" yaml:"snmp"`
	Database        *models.DatabaseConfig `json:"database" yaml:"database"`
	NATS            *models.NATSConfig     `json:"nats" yaml:"nats"`
	Telegram        alerts.TelegramConfig  `json:"telegram" yaml:"telegram"`
	Digest          notifier.DigestConfig  `json:"digest" yaml:"digest"`
	Discovery       discovery.Config       `json:"discovery" yaml:"discovery"`
	Thresholds      alerts.Thresholds      `json:"thresholds" yaml:"thresholds"`
	CORS            models.CORSConfig      `json:"cors" yaml:"cors"`
}

// DefaultConfig returns the configuration used for any key the loaded source
// leaves unset. Loaders decode on top of it, so callers should start from it.
func DefaultConfig() Config {
	poll := poller.DefaultConfig()

	return Config{
		ServiceName:   defaultServiceName,
		ListenAddr:    defaultListenAddr,
		InventoryPath: defaultInventoryPath,
		PollInterval:  poll.PollInterval,
		InitialDelay:  poll.InitialDelay,
		Concurrency:   poll.Concurrency,
		Logging:       logger.DefaultConfig(),
		Database:      models.DefaultDatabaseConfig(),
		Digest:        notifier.DigestConfig{Enabled: true, Hour: defaultDigestHour},
		Discovery:     discovery.DefaultConfig(),
		Thresholds:    alerts.DefaultThresholds(),
		CORS:          models.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Validate fills defaults and validates every section.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if strings.TrimSpace(c.InventoryPath) == "" {
		c.InventoryPath = defaultInventoryPath
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	// A section without its address means the feature is off. For the
	// database that leaves history in memory, which New reports as degraded.
	if c.Database != nil && c.Database.Host == "" {
		c.Database = nil
	}

	if c.NATS != nil && c.NATS.URL == "" {
		c.NATS = nil
	}

	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("%w: database: %w", errInvalidConfig, err)
		}
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return fmt.Errorf("%w: nats: %w", errInvalidConfig, err)
		}
	}

	if err := c.SNMP.Validate(); err != nil {
		return fmt.Errorf("%w: snmp: %w", errInvalidConfig, err)
	}

	if err := c.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: digest: %w", errInvalidConfig, err)
	}

	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("%w: discovery: %w", errInvalidConfig, err)
	}

	poll := c.Poller()
	if err := poll.Validate(); err != nil {
		return fmt.Errorf("%w: poller: %w", errInvalidConfig, err)
	}

	c.PollInterval = poll.PollInterval
	c.InitialDelay = poll.InitialDelay
	c.Concurrency = poll.Concurrency

	return nil
}

// Poller returns the poll scheduler section of the configuration.
func (c *Config) Poller() poller.Config {
	return poller.Config{
		PollInterval: c.PollInterval,
		InitialDelay: c.InitialDelay,
		Concurrency:  c.Concurrency,
	}
}
