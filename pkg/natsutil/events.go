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

// Package natsutil publishes UPSWatch events to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
)

const (
	// SubjectTransition carries device online/offline edges.
	SubjectTransition = "events.ups.transition"
	// SubjectNotification carries free text notifications such as the daily digest.
	SubjectNotification = "events.ups.notification"

	eventSource         = "upswatch/poller"
	typeTransition      = "com.carverauto.upswatch.device.transition"
	typeNotification    = "com.carverauto.upswatch.notification"
	defaultStreamName   = "events"
	connectTimeout      = 5 * time.Second
	maxReconnectAttempt = -1
)

var errNilConfig = errors.New("nats config is nil")

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js     jetstream.JetStream
	stream string
	logger logger.Logger
	now    func() time.Time
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName string, log logger.Logger) *EventPublisher {
	return &EventPublisher{
		js:     js,
		stream: streamName,
		logger: log,
		now:    time.Now,
	}
}

// PublishDeviceTransition publishes a device status change.
func (p *EventPublisher) PublishDeviceTransition(ctx context.Context, data *models.DeviceTransitionEventData) error {
	return p.publish(ctx, SubjectTransition, typeTransition, data.Timestamp, data)
}

// Send publishes message as a notification event, so the publisher can act as an alerts.Sender.
func (p *EventPublisher) Send(ctx context.Context, message string) error {
	now := p.now()

	return p.publish(ctx, SubjectNotification, typeNotification, now, models.NotificationEventData{
		Message:   message,
		Timestamp: now,
	})
}

func (p *EventPublisher) publish(ctx context.Context, subject, eventType string, ts time.Time, data interface{}) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Msg("Published event")

	return nil
}

// Connect dials NATS and returns a publisher bound to the configured stream.
// The caller owns the returned connection.
func Connect(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, *nats.Conn, error) {
	if cfg == nil {
		return nil, nil, errNilConfig
	}

	opts := []nats.Option{
		nats.Name("upswatch"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(maxReconnectAttempt),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher, err := CreateEventPublisherWithDomain(ctx, nc, cfg.Domain, cfg.StreamName, cfg.Subjects, log)
	if err != nil {
		nc.Close()

		return nil, nil, err
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("stream", cfg.StreamName).Msg("Connected to NATS JetStream")

	return publisher, nc, nil
}

// CreateEventPublisherWithDomain creates an EventPublisher with optional NATS domain support,
// creating the stream when it does not exist yet.
func CreateEventPublisherWithDomain(
	ctx context.Context, nc *nats.Conn, domain, streamName string, subjects []string, log logger.Logger) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if streamName == "" {
		streamName = defaultStreamName
	}

	subjects = ensureSubjectList(subjects, SubjectTransition)
	subjects = ensureSubjectList(subjects, SubjectNotification)

	stream, err := js.Stream(ctx, streamName)

	switch {
	case err == nil:
		info, infoErr := stream.Info(ctx)
		if infoErr != nil {
			return nil, fmt.Errorf("failed to read stream %s: %w", streamName, infoErr)
		}

		merged := info.Config.Subjects
		for _, s := range subjects {
			merged = ensureSubjectList(merged, s)
		}

		if len(merged) != len(info.Config.Subjects) {
			cfg := info.Config
			cfg.Subjects = merged

			if _, err := js.UpdateStream(ctx, cfg); err != nil {
				return nil, fmt.Errorf("failed to update stream %s subjects: %w", streamName, err)
			}
		}
	case isStreamMissingErr(err):
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		}); err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		log.Info().Str("stream", streamName).Strs("subjects", subjects).Msg("Created NATS JetStream stream")
	default:
		return nil, fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	return NewEventPublisher(js, streamName, log), nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoResponders)
}

// ensureSubjectList appends subject unless an existing pattern already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
