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

// Package snmp queries UPS units for telemetry over SNMP.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/gosnmp/gosnmp"
)

// Telemetry OIDs from the UPS-MIB (RFC 1628).
const (
	OIDBatteryCharge = ".1.3.6.1.2.1.33.1.2.4.0"
	OIDInputVoltage  = ".1.3.6.1.2.1.33.1.3.3.1.3.1"
	OIDOutputLoad    = ".1.3.6.1.2.1.33.1.4.4.1.5.1"
	OIDBatteryTemp   = ".1.3.6.1.2.1.33.1.2.7.0"
	OIDSysName       = ".1.3.6.1.2.1.1.5.0"
)

const (
	defaultPort         = 161
	defaultTimeout      = 5 * time.Second
	defaultRetries      = 1
	defaultProbeTimeout = 2 * time.Second
	defaultProbeRetries = 1
	maxBatteryPercent   = 100
)

var errNegativeRetries = errors.New("retries must not be negative")

// telemetryOIDs is the fixed GET list for a poll.
var telemetryOIDs = []string{OIDBatteryCharge, OIDInputVoltage, OIDOutputLoad, OIDBatteryTemp}

// Config holds SNMP transport settings. Retries are pointers so an explicit
// 0 (single attempt) is kept; nil takes the default.
type Config struct {
	Port         uint16          `json:"port" yaml:"port"`
	Timeout      models.Duration `json:"timeout" yaml:"timeout"`
	Retries      *int            `json:"retries,omitempty" yaml:"retries,omitempty"`
	ProbeTimeout models.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	ProbeRetries *int            `json:"probe_retries,omitempty" yaml:"probe_retries,omitempty"`
}

// Validate fills defaults for unset fields.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.Timeout <= 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}

	if c.Retries == nil {
		c.Retries = intPtr(defaultRetries)
	}

	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = models.Duration(defaultProbeTimeout)
	}

	if c.ProbeRetries == nil {
		c.ProbeRetries = intPtr(defaultProbeRetries)
	}

	if *c.Retries < 0 {
		return fmt.Errorf("%w: retries %d", errNegativeRetries, *c.Retries)
	}

	if *c.ProbeRetries < 0 {
		return fmt.Errorf("%w: probe_retries %d", errNegativeRetries, *c.ProbeRetries)
	}

	return nil
}

func intPtr(n int) *int {
	return &n
}

// ProbeResult reports whether an address answered like a UPS.
type ProbeResult struct {
	Found bool
	Name  string
}

// Client performs telemetry queries and discovery probes.
type Client struct {
	config Config
	dialer Dialer
	logger logger.Logger
	now    func() time.Time
}

// NewClient creates a Client. A nil dialer uses gosnmp.
func NewClient(cfg Config, dialer Dialer, log logger.Logger) *Client {
	_ = cfg.Validate()

	if dialer == nil {
		dialer = GoSNMPDialer{}
	}

	return &Client{
		config: cfg,
		dialer: dialer,
		logger: log,
		now:    time.Now,
	}
}

// Query reads battery, input voltage, load and temperature from a device.
// Any transport or protocol failure yields an offline reading; no error is returned.
func (c *Client) Query(ctx context.Context, device models.Device) models.Reading {
	values, err := c.get(ctx, &Target{
		Address:   device.Address,
		Port:      c.config.Port,
		Community: device.Community(),
		Timeout:   time.Duration(c.config.Timeout),
		Retries:   *c.config.Retries,
	}, telemetryOIDs)

	now := c.now()

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("device_id", device.ID).
			Str("ip", device.Address).
			Msg("SNMP query failed")

		return models.OfflineReading(&device, now)
	}

	return models.Reading{
		DeviceID:        device.ID,
		DisplayName:     device.DisplayName,
		Address:         device.Address,
		Status:          models.StatusOnline,
		Battery:         values[OIDBatteryCharge],
		Load:            values[OIDOutputLoad],
		Temperature:     values[OIDBatteryTemp],
		InputVoltage:    values[OIDInputVoltage],
		TimestampMillis: now.UnixMilli(),
	}
}

// Probe checks whether address answers the battery charge OID with a value in [0, 100].
func (c *Client) Probe(ctx context.Context, address, community string) ProbeResult {
	if community == "" {
		community = models.DefaultCommunity
	}

	target := &Target{
		Address:   address,
		Port:      c.config.Port,
		Community: community,
		Timeout:   time.Duration(c.config.ProbeTimeout),
		Retries:   *c.config.ProbeRetries,
	}

	session, err := c.dialer.Dial(ctx, target)
	if err != nil {
		return ProbeResult{}
	}

	defer func() { _ = session.Close() }()

	packet, err := session.Get([]string{OIDBatteryCharge, OIDSysName})
	if err != nil || packet == nil || packet.Error != gosnmp.NoError {
		return ProbeResult{}
	}

	var result ProbeResult

	for i := range packet.Variables {
		pdu := &packet.Variables[i]

		switch normalizeOID(pdu.Name) {
		case OIDBatteryCharge:
			v, convErr := pduFloat(pdu)
			result.Found = convErr == nil && *v >= 0 && *v <= maxBatteryPercent
		case OIDSysName:
			result.Name = pduString(pdu)
		}
	}

	if !result.Found {
		return ProbeResult{}
	}

	c.logger.Debug().Str("ip", address).Str("sys_name", result.Name).Msg("UPS answered probe")

	return result
}

// get dials, GETs oids and converts each resolved value. Unresolved OIDs are absent from the map.
func (c *Client) get(ctx context.Context, target *Target, oids []string) (map[string]*float64, error) {
	session, err := c.dialer.Dial(ctx, target)
	if err != nil {
		return nil, err
	}

	defer func() { _ = session.Close() }()

	packet, err := session.Get(oids)
	if err != nil {
		return nil, err
	}

	if packet == nil {
		return nil, ErrEmptyPacket
	}

	if packet.Error != gosnmp.NoError {
		return nil, fmt.Errorf("%w: %s", ErrErrorStatus, packet.Error)
	}

	values := make(map[string]*float64, len(oids))

	for i := range packet.Variables {
		pdu := &packet.Variables[i]

		v, convErr := pduFloat(pdu)
		if convErr != nil {
			c.logger.Debug().
				Str("ip", target.Address).
				Str("oid", pdu.Name).
				Err(convErr).
				Msg("OID did not resolve")

			continue
		}

		values[normalizeOID(pdu.Name)] = v
	}

	return values, nil
}

func normalizeOID(oid string) string {
	if strings.HasPrefix(oid, ".") {
		return oid
	}

	return "." + oid
}

// pduFloat converts a numeric PDU. Exception types and non-numeric values fail.
func pduFloat(pdu *gosnmp.SnmpPDU) (*float64, error) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return nil, fmt.Errorf("%w: %s", ErrNoSuchObject, pdu.Type)
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		v, _ := new(big.Float).SetInt(gosnmp.ToBigInt(pdu.Value)).Float64()

		return &v, nil
	case gosnmp.OpaqueFloat:
		if f, ok := pdu.Value.(float32); ok {
			v := float64(f)
			return &v, nil
		}
	case gosnmp.OpaqueDouble:
		if f, ok := pdu.Value.(float64); ok {
			return &f, nil
		}
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64); err == nil {
				return &v, nil
			}
		}
	default:
	}

	return nil, fmt.Errorf("%w: %s", ErrNotNumeric, pdu.Type)
}

func pduString(pdu *gosnmp.SnmpPDU) string {
	if pdu.Type != gosnmp.OctetString {
		return ""
	}

	b, ok := pdu.Value.([]byte)
	if !ok {
		return ""
	}

	return strings.TrimSpace(string(b))
}
