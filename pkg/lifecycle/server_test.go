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
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (f *fakeService) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}

	f.started.Store(true)

	return nil
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a, b := &fakeService{}, &fakeService{}

	done := make(chan error, 1)

	go func() {
		done <- RunServer(ctx, &ServerOptions{
			ServiceName: "test",
			Services:    []Service{a, b},
			Logger:      logger.NewTestLogger(),
		})
	}()

	require.Eventually(t, func() bool { return a.started.Load() && b.started.Load() }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunServer did not return")
	}

	assert.True(t, a.stopped.Load())
	assert.True(t, b.stopped.Load())
}

func TestRunServerStartFailureStopsStarted(t *testing.T) {
	a := &fakeService{}
	b := &fakeService{startErr: errors.New("boom")}

	err := RunServer(context.Background(), &ServerOptions{Services: []Service{a, b}})

	require.ErrorIs(t, err, errServiceStart)
	assert.True(t, a.stopped.Load())
	assert.False(t, b.stopped.Load())
}

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger("upswatch", &logger.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, log.WithComponent("x").GetLevel())

	_, err = CreateComponentLogger("upswatch", &logger.Config{Level: "nope"})
	require.Error(t, err)
}
