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
	"errors"
	"testing"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	errTimeout   = errors.New("request timeout (after 1 retries)")
	fixedNow     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testDevice   = models.Device{ID: "ups-2", DisplayName: "UPS-40-2", Address: "10.40.40.2"}
	secretDevice = models.Device{ID: "ups-3", DisplayName: "Rack 3", Address: "10.40.40.3", SharedSecret: "private"}
)

func newTestClient(t *testing.T) (*Client, *MockDialer, *MockSession) {
	t.Helper()

	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)
	session := NewMockSession(ctrl)

	client := NewClient(Config{}, dialer, logger.NewTestLogger())
	client.now = func() time.Time { return fixedNow }

	return client, dialer, session
}

func TestQueryOnline(t *testing.T) {
	client, dialer, session := newTestClient(t)

	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, target *Target) (Session, error) {
			assert.Equal(t, "10.40.40.2", target.Address)
			assert.Equal(t, uint16(161), target.Port)
			assert.Equal(t, "public", target.Community)
			assert.Equal(t, 5*time.Second, target.Timeout)

			return session, nil
		})
	session.EXPECT().Get(telemetryOIDs).Return(&gosnmp.SnmpPacket{
		Error: gosnmp.NoError,
		Variables: []gosnmp.SnmpPDU{
			{Name: ".1.3.6.1.2.1.33.1.2.4.0", Type: gosnmp.Integer, Value: 50},
			{Name: ".1.3.6.1.2.1.33.1.3.3.1.3.1", Type: gosnmp.Integer, Value: 230},
			{Name: ".1.3.6.1.2.1.33.1.4.4.1.5.1", Type: gosnmp.Integer, Value: 30},
			{Name: ".1.3.6.1.2.1.33.1.2.7.0", Type: gosnmp.Integer, Value: 25},
		},
	}, nil)
	session.EXPECT().Close().Return(nil)

	reading := client.Query(context.Background(), testDevice)

	assert.Equal(t, models.StatusOnline, reading.Status)
	assert.Equal(t, "ups-2", reading.DeviceID)
	assert.Equal(t, "UPS-40-2", reading.DisplayName)
	require.NotNil(t, reading.Battery)
	assert.InDelta(t, 50, *reading.Battery, 0.001)
	require.NotNil(t, reading.Load)
	assert.InDelta(t, 30, *reading.Load, 0.001)
	require.NotNil(t, reading.Temperature)
	assert.InDelta(t, 25, *reading.Temperature, 0.001)
	require.NotNil(t, reading.InputVoltage)
	assert.InDelta(t, 230, *reading.InputVoltage, 0.001)
	assert.Equal(t, fixedNow.UnixMilli(), reading.TimestampMillis)
}

func TestConfigValidateRetries(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())
	require.NotNil(t, cfg.Retries)
	assert.Equal(t, 1, *cfg.Retries)
	assert.Equal(t, 1, *cfg.ProbeRetries)

	zero := 0
	cfg = Config{Retries: &zero, ProbeRetries: &zero}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, *cfg.Retries)
	assert.Equal(t, 0, *cfg.ProbeRetries)

	negative := -1
	cfg = Config{Retries: &negative}
	require.ErrorIs(t, cfg.Validate(), errNegativeRetries)
}

func TestQueryZeroRetriesReachesDialer(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)

	zero := 0
	client := NewClient(Config{Retries: &zero}, dialer, logger.NewTestLogger())
	client.now = func() time.Time { return fixedNow }

	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, target *Target) (Session, error) {
			assert.Equal(t, 0, target.Retries)

			return nil, errTimeout
		})

	reading := client.Query(context.Background(), testDevice)
	assert.Equal(t, models.StatusOffline, reading.Status)
}

func TestQueryPartialResolution(t *testing.T) {
	client, dialer, session := newTestClient(t)

	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(session, nil)
	session.EXPECT().Get(gomock.Any()).Return(&gosnmp.SnmpPacket{
		Error: gosnmp.NoError,
		Variables: []gosnmp.SnmpPDU{
			{Name: "1.3.6.1.2.1.33.1.2.4.0", Type: gosnmp.Gauge32, Value: uint(88)},
			{Name: "1.3.6.1.2.1.33.1.3.3.1.3.1", Type: gosnmp.NoSuchInstance},
			{Name: "1.3.6.1.2.1.33.1.4.4.1.5.1", Type: gosnmp.OctetString, Value: []byte("n/a")},
			{Name: "1.3.6.1.2.1.33.1.2.7.0", Type: gosnmp.NoSuchObject},
		},
	}, nil)
	session.EXPECT().Close().Return(nil)

	reading := client.Query(context.Background(), testDevice)

	assert.Equal(t, models.StatusOnline, reading.Status)
	require.NotNil(t, reading.Battery)
	assert.InDelta(t, 88, *reading.Battery, 0.001)
	assert.Nil(t, reading.Load)
	assert.Nil(t, reading.Temperature)
	assert.Nil(t, reading.InputVoltage)
}

func TestQueryUsesDeviceCommunity(t *testing.T) {
	client, dialer, session := newTestClient(t)

	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, target *Target) (Session, error) {
			assert.Equal(t, "private", target.Community)
			return session, nil
		})
	session.EXPECT().Get(gomock.Any()).Return(&gosnmp.SnmpPacket{Error: gosnmp.NoError}, nil)
	session.EXPECT().Close().Return(nil)

	reading := client.Query(context.Background(), secretDevice)

	assert.Equal(t, models.StatusOnline, reading.Status)
	assert.Nil(t, reading.Battery)
}

func TestQueryOffline(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *MockDialer, s *MockSession)
	}{
		{
			name: "dial failure",
			setup: func(d *MockDialer, _ *MockSession) {
				d.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, ErrConnect)
			},
		},
		{
			name: "timeout",
			setup: func(d *MockDialer, s *MockSession) {
				d.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(s, nil)
				s.EXPECT().Get(gomock.Any()).Return(nil, errTimeout)
				s.EXPECT().Close().Return(nil)
			},
		},
		{
			name: "error status",
			setup: func(d *MockDialer, s *MockSession) {
				d.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(s, nil)
				s.EXPECT().Get(gomock.Any()).Return(&gosnmp.SnmpPacket{Error: gosnmp.AuthorizationError}, nil)
				s.EXPECT().Close().Return(nil)
			},
		},
		{
			name: "nil packet",
			setup: func(d *MockDialer, s *MockSession) {
				d.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(s, nil)
				s.EXPECT().Get(gomock.Any()).Return(nil, nil)
				s.EXPECT().Close().Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, dialer, session := newTestClient(t)
			tt.setup(dialer, session)

			reading := client.Query(context.Background(), testDevice)

			assert.Equal(t, models.StatusOffline, reading.Status)
			assert.Nil(t, reading.Battery)
			assert.Nil(t, reading.Load)
			assert.Nil(t, reading.Temperature)
			assert.Nil(t, reading.InputVoltage)
			assert.Equal(t, fixedNow.UnixMilli(), reading.TimestampMillis)
		})
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		vars     []gosnmp.SnmpPDU
		getErr   error
		expected ProbeResult
	}{
		{
			name: "ups with name",
			vars: []gosnmp.SnmpPDU{
				{Name: OIDBatteryCharge, Type: gosnmp.Integer, Value: 100},
				{Name: OIDSysName, Type: gosnmp.OctetString, Value: []byte("  rack-ups-7 ")},
			},
			expected: ProbeResult{Found: true, Name: "rack-ups-7"},
		},
		{
			name: "ups without name",
			vars: []gosnmp.SnmpPDU{
				{Name: OIDBatteryCharge, Type: gosnmp.Integer, Value: 0},
				{Name: OIDSysName, Type: gosnmp.NoSuchObject},
			},
			expected: ProbeResult{Found: true},
		},
		{
			name: "battery out of range",
			vars: []gosnmp.SnmpPDU{
				{Name: OIDBatteryCharge, Type: gosnmp.Integer, Value: 250},
				{Name: OIDSysName, Type: gosnmp.OctetString, Value: []byte("switch")},
			},
		},
		{
			name: "not a ups",
			vars: []gosnmp.SnmpPDU{
				{Name: OIDBatteryCharge, Type: gosnmp.NoSuchObject},
				{Name: OIDSysName, Type: gosnmp.OctetString, Value: []byte("printer")},
			},
		},
		{
			name:   "timeout",
			getErr: errTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, dialer, session := newTestClient(t)

			dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, target *Target) (Session, error) {
					assert.Equal(t, 2*time.Second, target.Timeout)
					assert.Equal(t, 1, target.Retries)
					assert.Equal(t, "public", target.Community)

					return session, nil
				})

			var packet *gosnmp.SnmpPacket
			if tt.getErr == nil {
				packet = &gosnmp.SnmpPacket{Error: gosnmp.NoError, Variables: tt.vars}
			}

			session.EXPECT().Get([]string{OIDBatteryCharge, OIDSysName}).Return(packet, tt.getErr)
			session.EXPECT().Close().Return(nil)

			assert.Equal(t, tt.expected, client.Probe(context.Background(), "10.40.40.9", ""))
		})
	}
}

func TestProbeDialFailure(t *testing.T) {
	client, dialer, _ := newTestClient(t)

	dialer.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, ErrConnect)

	assert.Equal(t, ProbeResult{}, client.Probe(context.Background(), "10.40.40.9", "public"))
}

func TestPDUFloat(t *testing.T) {
	tests := []struct {
		name    string
		pdu     gosnmp.SnmpPDU
		want    float64
		wantErr error
	}{
		{name: "integer", pdu: gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -5}, want: -5},
		{name: "gauge", pdu: gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(42)}, want: 42},
		{name: "counter64", pdu: gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(7)}, want: 7},
		{name: "numeric string", pdu: gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte(" 21.5 ")}, want: 21.5},
		{name: "text string", pdu: gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("ok")}, wantErr: ErrNotNumeric},
		{name: "null", pdu: gosnmp.SnmpPDU{Type: gosnmp.Null}, wantErr: ErrNoSuchObject},
		{name: "end of mib", pdu: gosnmp.SnmpPDU{Type: gosnmp.EndOfMibView}, wantErr: ErrNoSuchObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pduFloat(&tt.pdu)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, *got, 0.0001)
		})
	}
}
