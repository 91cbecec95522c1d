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

// Package alerts delivers notification messages and derives threshold alerts from readings.
package alerts

import (
	"context"
	"errors"
)

// Sender delivers one text message to an external endpoint.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// NopSender drops every message. Used when no transport is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, string) error { return nil }

// MultiSender delivers to every wrapped sender and joins their errors.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, message string) error {
	var errs []error

	for _, s := range m {
		if err := s.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Combine returns the senders as one Sender, skipping nils and no-ops.
func Combine(senders ...Sender) Sender {
	active := make(MultiSender, 0, len(senders))

	for _, s := range senders {
		if s == nil {
			continue
		}

		if _, nop := s.(NopSender); nop {
			continue
		}

		active = append(active, s)
	}

	switch len(active) {
	case 0:
		return NopSender{}
	case 1:
		return active[0]
	default:
		return active
	}
}
