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

// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	outputStdout  = "stdout"
	outputStderr  = "stderr"
	outputConsole = "console"
)

type Config struct {
	Level      string      `json:"level" yaml:"level"`
	Debug      bool        `json:"debug" yaml:"debug"`
	Output     string      `json:"output" yaml:"output"`
	TimeFormat string      `json:"time_format" yaml:"time_format"`
	OTel       *OTelConfig `json:"otel,omitempty" yaml:"otel,omitempty"`
}

// Writer returns the output stream named by the config. "console" writes
// human readable lines to stderr.
func (c *Config) Writer() io.Writer {
	switch c.Output {
	case outputStderr:
		return os.Stderr
	case outputConsole:
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	default:
		return os.Stdout
	}
}

// ParsedLevel resolves the configured level. Debug wins over Level.
func (c *Config) ParsedLevel() (zerolog.Level, error) {
	if c.Debug {
		return zerolog.DebugLevel, nil
	}

	if c.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(c.Level)
}

// New builds a timestamped Logger from config. A nil config uses DefaultConfig.
// With OTel enabled every line is also exported; call ShutdownOTel on exit.
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := config.ParsedLevel()
	if err != nil {
		return nil, err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	out := config.Writer()

	if config.OTel != nil && config.OTel.Enabled {
		otelWriter, err := NewOTelWriter(context.Background(), config.OTel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTel logging: %w", err)
		}

		out = zerolog.MultiLevelWriter(out, otelWriter)
	}

	return Wrap(zerolog.New(out).Level(level).With().Timestamp().Logger()), nil
}

// Wrap adapts a zerolog.Logger to Logger.
func Wrap(zl zerolog.Logger) Logger {
	return &zeroLogger{Logger: zl}
}

// zeroLogger gets the level methods and With from the embedded logger.
type zeroLogger struct {
	zerolog.Logger
}

func (l *zeroLogger) WithComponent(component string) zerolog.Logger {
	return l.Logger.With().Str("component", component).Logger()
}

func (l *zeroLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return l.Logger.With().Fields(fields).Logger()
}

func (l *zeroLogger) SetLevel(level zerolog.Level) {
	l.Logger = l.Logger.Level(level)
}

func (l *zeroLogger) SetDebug(debug bool) {
	if debug {
		l.SetLevel(zerolog.DebugLevel)

		return
	}

	l.SetLevel(zerolog.InfoLevel)
}
