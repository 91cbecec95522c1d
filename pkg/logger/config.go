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

package logger

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/upswatch/pkg/models"
)

// DefaultConfig reads LOG_LEVEL, DEBUG, LOG_OUTPUT and LOG_TIME_FORMAT.
func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBool("DEBUG"),
		Output:     getEnvOrDefault("LOG_OUTPUT", outputStdout),
		TimeFormat: os.Getenv("LOG_TIME_FORMAT"),
		OTel:       DefaultOTelConfig(),
	}
}

// DefaultOTelConfig reads the standard OTEL_EXPORTER_OTLP_LOGS_* variables.
// Export stays off unless OTEL_LOGS_ENABLED is set.
func DefaultOTelConfig() *OTelConfig {
	headers := make(map[string]string)

	if raw := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS"); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			if k, v, ok := strings.Cut(pair, "="); ok {
				headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		}
	}

	timeout := defaultOTelBatchTimeout

	if raw := os.Getenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			timeout = d
		}
	}

	return &OTelConfig{
		Enabled:      getEnvBool("OTEL_LOGS_ENABLED"),
		Endpoint:     os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"),
		Headers:      headers,
		ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", defaultOTelServiceName),
		BatchTimeout: models.Duration(timeout),
		Insecure:     getEnvBool("OTEL_EXPORTER_OTLP_LOGS_INSECURE"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBool(key string) bool {
	value := os.Getenv(key)
	if value == "yes" || value == "on" {
		return true
	}

	b, err := strconv.ParseBool(value)

	return err == nil && b
}
