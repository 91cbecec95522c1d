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

//go:generate mockgen -destination=mock_snmp.go -package=snmp github.com/carverauto/upswatch/pkg/snmp Session,Dialer

package snmp

import (
	"context"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Target describes one SNMP agent endpoint and the transport settings used to reach it.
type Target struct {
	Address   string
	Port      uint16
	Community string
	Timeout   time.Duration
	Retries   int
}

// Session is a connected SNMP session.
type Session interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

// Dialer opens sessions to SNMP agents.
type Dialer interface {
	Dial(ctx context.Context, target *Target) (Session, error)
}
