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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

var errServiceStart = errors.New("failed to start service")

// Service is a long-running component owned by the process lifecycle.
// Start must not block; background work runs until Stop or context cancellation.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName     string
	Services        []Service
	ShutdownTimeout time.Duration
	Logger          logger.Logger
}

// RunServer starts every service in order, blocks until ctx is cancelled or
// SIGINT/SIGTERM arrives, then stops all services concurrently.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := make([]Service, 0, len(opts.Services))

	for i, svc := range opts.Services {
		if err := svc.Start(sigCtx); err != nil {
			stopAll(log, started, timeout)

			return fmt.Errorf("%w %d: %w", errServiceStart, i, err)
		}

		started = append(started, svc)
	}

	log.Info().Str("service", opts.ServiceName).Int("components", len(started)).Msg("Service started")

	<-sigCtx.Done()

	log.Info().Str("service", opts.ServiceName).Msg("Shutting down")

	return stopAll(log, started, timeout)
}

func stopAll(log logger.Logger, services []Service, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var g errgroup.Group

	for _, svc := range services {
		g.Go(func() error {
			if err := svc.Stop(ctx); err != nil {
				log.Error().Err(err).Msg("Error stopping component")

				return err
			}

			return nil
		})
	}

	return g.Wait()
}
