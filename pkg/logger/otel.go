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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"

	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/version"
)

var (
	ErrOTelDisabled         = errors.New("OTel log export is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
)

const (
	defaultOTelServiceName  = "upswatch"
	defaultOTelBatchTimeout = 5 * time.Second
	defaultOTelScope        = "upswatch"
	componentField          = "component"
	maxAttributeValueLength = 4096
)

// OTelConfig ships every log line to an OTLP/gRPC collector in addition to
// the local output.
type OTelConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	ServiceName  string            `json:"service_name" yaml:"service_name"`
	BatchTimeout models.Duration   `json:"batch_timeout" yaml:"batch_timeout"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
}

// OTelWriter converts zerolog JSON lines into OTel log records. The
// component field picks the instrumentation scope.
type OTelWriter struct {
	provider *sdklog.LoggerProvider
	ctx      context.Context

	mu      sync.Mutex
	loggers map[string]otellog.Logger
}

//nolint:gochecknoglobals // flushed once at process exit by ShutdownOTel
var (
	otelMu       sync.Mutex
	otelProvider *sdklog.LoggerProvider
)

// NewOTelWriter starts a batching OTLP log exporter and registers it as the
// global logger provider.
func NewOTelWriter(ctx context.Context, config *OTelConfig) (*OTelWriter, error) {
	if config == nil || !config.Enabled {
		return nil, ErrOTelDisabled
	}

	if config.Endpoint == "" {
		return nil, ErrOTelEndpointRequired
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(config.Endpoint)}

	if config.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}

	if len(config.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(config.Headers))
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = defaultOTelServiceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.GetVersion()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	timeout := time.Duration(config.BatchTimeout)
	if timeout <= 0 {
		timeout = defaultOTelBatchTimeout
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(timeout))),
	)

	otelMu.Lock()
	otelProvider = provider
	otelMu.Unlock()

	global.SetLoggerProvider(provider)

	return newOTelWriter(ctx, provider), nil
}

func newOTelWriter(ctx context.Context, provider *sdklog.LoggerProvider) *OTelWriter {
	return &OTelWriter{
		provider: provider,
		ctx:      ctx,
		loggers:  make(map[string]otellog.Logger),
	}
}

// Write never fails: a line that is not JSON is dropped so local logging
// keeps working.
func (w *OTelWriter) Write(p []byte) (int, error) {
	var entry map[string]interface{}
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	var record otellog.Record

	record.SetObservedTimestamp(time.Now())

	if ts, ok := entry[zerolog.TimestampFieldName].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			record.SetTimestamp(parsed)
			delete(entry, zerolog.TimestampFieldName)
		}
	}

	if level, ok := entry[zerolog.LevelFieldName].(string); ok {
		record.SetSeverity(severityFor(level))
		record.SetSeverityText(level)
		delete(entry, zerolog.LevelFieldName)
	}

	if msg, ok := entry[zerolog.MessageFieldName].(string); ok {
		record.SetBody(otellog.StringValue(msg))
		delete(entry, zerolog.MessageFieldName)
	}

	scope := defaultOTelScope
	if component, ok := entry[componentField].(string); ok && component != "" {
		scope = component
		delete(entry, componentField)
	}

	for key, value := range entry {
		record.AddAttributes(otellog.KeyValue{Key: key, Value: attributeValue(value)})
	}

	w.scopeLogger(scope).Emit(w.ctx, record)

	return len(p), nil
}

func (w *OTelWriter) scopeLogger(scope string) otellog.Logger {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.loggers[scope]
	if !ok {
		l = w.provider.Logger(scope)
		w.loggers[scope] = l
	}

	return l
}

// attributeValue keeps JSON scalars typed; whole numbers become int64.
func attributeValue(value interface{}) otellog.Value {
	switch v := value.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(truncate(v))
	case bool:
		return otellog.BoolValue(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return otellog.Int64Value(int64(v))
		}

		return otellog.Float64Value(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return otellog.StringValue(truncate(fmt.Sprint(v)))
		}

		return otellog.StringValue(truncate(string(encoded)))
	}
}

func truncate(s string) string {
	if len(s) <= maxAttributeValueLength {
		return s
	}

	s = s[:maxAttributeValueLength]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}

	return s
}

func severityFor(level string) otellog.Severity {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return otellog.SeverityInfo
	}

	switch parsed {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// ShutdownOTel flushes and stops the exporter started by New. It is a no-op
// when export was never enabled.
func ShutdownOTel(ctx context.Context) error {
	otelMu.Lock()
	provider := otelProvider
	otelProvider = nil
	otelMu.Unlock()

	if provider == nil {
		return nil
	}

	return provider.Shutdown(ctx)
}
