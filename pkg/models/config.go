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

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

var (
	errInvalidDuration      = fmt.Errorf("invalid duration")
	errDatabaseHostRequired = fmt.Errorf("database host is required")
	errDatabaseNameRequired = fmt.Errorf("database name is required")
	errNATSURLRequired      = fmt.Errorf("nats url is required")
)

// Duration is a time.Duration that unmarshals from "5m" style strings or nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		var n int64
		if errNum := unmarshal(&n); errNum != nil {
			return errInvalidDuration
		}

		*d = Duration(time.Duration(n))

		return nil
	}

	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidDuration, err)
	}

	*d = Duration(dur)

	return nil
}

// OrDefault returns d as a time.Duration, or def when d is not positive.
func (d Duration) OrDefault(def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}

	return time.Duration(d)
}

// DatabaseConfig points the history store at a PostgreSQL database.
type DatabaseConfig struct {
	Host            string            `json:"host" yaml:"host"`
	Port            int               `json:"port" yaml:"port"`
	Database        string            `json:"database" yaml:"database"`
	Username        string            `json:"username" yaml:"username"`
	Password        string            `json:"password" yaml:"password"`
	SSLMode         string            `json:"ssl_mode" yaml:"ssl_mode"`
	ApplicationName string            `json:"application_name" yaml:"application_name"`
	MaxConnections  int32             `json:"max_connections" yaml:"max_connections"`
	MinConnections  int32             `json:"min_connections" yaml:"min_connections"`
	MaxConnLifetime Duration          `json:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	ConnectTimeout  Duration          `json:"connect_timeout" yaml:"connect_timeout"`
	RuntimeParams   map[string]string `json:"runtime_params,omitempty" yaml:"runtime_params,omitempty"`
}

// DefaultDatabaseConfig points at a local Postgres/TimescaleDB instance.
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		Database:       "upswatch",
		Username:       "upswatch",
		SSLMode:        "disable",
		ConnectTimeout: Duration(5 * time.Second),
	}
}

// Validate ensures the database configuration is usable.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errDatabaseHostRequired
	}

	if c.Database == "" {
		return errDatabaseNameRequired
	}

	if c.Port == 0 {
		c.Port = 5432
	}

	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}

	if c.ApplicationName == "" {
		c.ApplicationName = "upswatch"
	}

	return nil
}

// NATSConfig configures NATS connectivity for transition events.
type NATSConfig struct {
	URL        string   `json:"url" yaml:"url"`
	Domain     string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	StreamName string   `json:"stream_name" yaml:"stream_name"`
	Subjects   []string `json:"subjects" yaml:"subjects"`
	CredsFile  string   `json:"creds_file,omitempty" yaml:"creds_file,omitempty"`
}

// Validate ensures the NATS configuration is valid and fills defaults.
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	if c.StreamName == "" {
		c.StreamName = "events"
	}

	if len(c.Subjects) == 0 {
		c.Subjects = []string{"events.ups.*"}
	}

	return nil
}
