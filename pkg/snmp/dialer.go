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
	"fmt"

	"github.com/gosnmp/gosnmp"
)

// GoSNMPDialer dials SNMP v2c sessions with gosnmp.
type GoSNMPDialer struct{}

type goSNMPSession struct {
	client *gosnmp.GoSNMP
}

// Dial implements Dialer.
func (GoSNMPDialer) Dial(ctx context.Context, target *Target) (Session, error) {
	client := &gosnmp.GoSNMP{
		Context:            ctx,
		Target:             target.Address,
		Port:               target.Port,
		Community:          target.Community,
		Version:            gosnmp.Version2c,
		Timeout:            target.Timeout,
		Retries:            target.Retries,
		MaxOids:            gosnmp.MaxOids,
		ExponentialTimeout: false,
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConnect, target.Address, err)
	}

	return &goSNMPSession{client: client}, nil
}

func (s *goSNMPSession) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	return s.client.Get(oids)
}

func (s *goSNMPSession) Close() error {
	if s.client.Conn == nil {
		return nil
	}

	return s.client.Conn.Close()
}
