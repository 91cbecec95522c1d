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

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvConfigLoaderConfigJSON(t *testing.T) {
	t.Setenv("TEST_CONFIG_JSON", `{"name":"json","port":8080,"poll_interval":"1m"}`)
	t.Setenv("TEST_NAME", "ignored")

	var cfg testConfig

	loader := NewEnvConfigLoader(logger.NewTestLogger(), "TEST_")
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, "json", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Minute, time.Duration(cfg.Interval))
}

func TestEnvConfigLoaderDotEnvFile(t *testing.T) {
	path := writeFile(t, "upswatch.env", "DOTENV_NAME=from-file\nDOTENV_PORT=4000\n")

	t.Setenv("DOTENV_PORT", "5000")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_NAME") })

	var cfg testConfig

	loader := NewEnvConfigLoader(nil, "DOTENV_")
	require.NoError(t, loader.Load(context.Background(), path, &cfg))

	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 5000, cfg.Port, "process environment wins over the file")
}

func TestEnvConfigLoaderRejectsNonStruct(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "NOPE_")

	var s string

	require.ErrorIs(t, loader.Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
	require.ErrorIs(t, loader.Load(context.Background(), "", nil), ErrDstMustBeNonNilPointer)
}

func TestEnvConfigLoaderSkipsInvalidValues(t *testing.T) {
	t.Setenv("BAD_PORT", "not-a-number")
	t.Setenv("BAD_NAME", "ok")

	var cfg testConfig

	require.NoError(t, NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", &cfg))

	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, "ok", cfg.Name)
}

type sectionConfig struct {
	Name     string          `json:"name"`
	Database *testDatabase   `json:"database"`
	Timeout  models.Duration `json:"timeout"`
	Ratio    float64         `json:"ratio"`
	Port     uint16          `json:"port"`
	Retries  *int            `json:"retries"`
}

type testDatabase struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func TestEnvConfigLoaderPointerSections(t *testing.T) {
	t.Run("absent section stays nil", func(t *testing.T) {
		t.Setenv("SEC_NAME", "x")

		var cfg sectionConfig

		require.NoError(t, NewEnvConfigLoader(nil, "SEC_").Load(context.Background(), "", &cfg))

		assert.Equal(t, "x", cfg.Name)
		assert.Nil(t, cfg.Database)
		assert.Nil(t, cfg.Retries)
	})

	t.Run("optional scalar keeps explicit zero", func(t *testing.T) {
		t.Setenv("SEC_RETRIES", "0")

		var cfg sectionConfig

		require.NoError(t, NewEnvConfigLoader(nil, "SEC_").Load(context.Background(), "", &cfg))

		require.NotNil(t, cfg.Retries)
		assert.Equal(t, 0, *cfg.Retries)
	})

	t.Run("present section is allocated", func(t *testing.T) {
		t.Setenv("SEC_DATABASE_HOST", "db.local")
		t.Setenv("SEC_DATABASE_PORT", "5433")
		t.Setenv("SEC_TIMEOUT", "2s")
		t.Setenv("SEC_RATIO", "0.5")
		t.Setenv("SEC_PORT", "161")

		var cfg sectionConfig

		require.NoError(t, NewEnvConfigLoader(nil, "SEC_").Load(context.Background(), "", &cfg))

		require.NotNil(t, cfg.Database)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 2*time.Second, time.Duration(cfg.Timeout))
		assert.InDelta(t, 0.5, cfg.Ratio, 1e-9)
		assert.Equal(t, uint16(161), cfg.Port)
	})

	t.Run("unset variables keep defaults", func(t *testing.T) {
		cfg := sectionConfig{Name: "default", Database: &testDatabase{Host: "keep"}}

		require.NoError(t, NewEnvConfigLoader(nil, "SEC_").Load(context.Background(), "", &cfg))

		assert.Equal(t, "default", cfg.Name)
		assert.Equal(t, "keep", cfg.Database.Host)
	})
}
