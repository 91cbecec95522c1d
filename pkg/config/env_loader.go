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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")

	errUnsupportedEnvType = errors.New("unsupported field type")
)

var durationTypes = map[reflect.Type]bool{
	reflect.TypeOf(time.Duration(0)):   true,
	reflect.TypeOf(models.Duration(0)): true,
}

// EnvConfigLoader fills a config struct from environment variables.
// Names are the prefix plus the upper-cased json tag, joined with "_" for
// nested sections: UPSWATCH_DISCOVERY_ENABLED sets Discovery.Enabled.
// Fields without a matching variable keep whatever value dst already holds.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader. When path names a dotenv file it is loaded
// first; variables already present in the process environment win.
// <PREFIX>CONFIG_JSON, when set, replaces per-field lookup entirely.
func (e *EnvConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if err := e.loadDotEnv(path); err != nil {
		return err
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	if v.Elem().Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	if raw := os.Getenv(e.prefix + "CONFIG_JSON"); raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		e.debug().Msg("Loaded configuration from CONFIG_JSON")

		return nil
	}

	set := e.walk(v.Elem(), e.prefix)

	e.debug().Int("fields", set).Msg("Loaded configuration from environment")

	return nil
}

func (e *EnvConfigLoader) loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file '%s': %w", path, err)
	}

	e.debug().Str("path", path).Msg("Loaded env file")

	return nil
}

// walk assigns every field of v that has a variable and returns how many were set.
func (e *EnvConfigLoader) walk(v reflect.Value, prefix string) int {
	t := v.Type()
	set := 0

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		envName := prefix + strings.ToUpper(name)

		if isSection(field.Type()) {
			set += e.walkSection(field, envName+"_")

			continue
		}

		raw, ok := os.LookupEnv(envName)
		if !ok || raw == "" {
			continue
		}

		if err := assign(field, raw); err != nil {
			e.debug().Str("env", envName).Err(err).Msg("Ignoring environment variable")

			continue
		}

		set++
	}

	return set
}

// walkSection descends into a nested struct. A nil pointer section is only
// allocated when at least one of its variables is present.
func (e *EnvConfigLoader) walkSection(field reflect.Value, prefix string) int {
	if field.Kind() != reflect.Ptr {
		return e.walk(field, prefix)
	}

	if !field.IsNil() {
		return e.walk(field.Elem(), prefix)
	}

	section := reflect.New(field.Type().Elem())

	set := e.walk(section.Elem(), prefix)
	if set > 0 {
		field.Set(section)
	}

	return set
}

func (e *EnvConfigLoader) debug() *zerolog.Event {
	if e.logger == nil {
		return nil
	}

	return e.logger.Debug()
}

func isSection(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t.Kind() == reflect.Struct && !durationTypes[t]
}

func assign(field reflect.Value, raw string) error {
	if durationTypes[field.Type()] {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}

		field.SetInt(int64(d))

		return nil
	}

	switch field.Kind() {
	case reflect.Ptr:
		// optional scalar; only allocated when its variable is present
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), raw); err != nil {
			return err
		}

		field.Set(elem)
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return json.Unmarshal([]byte(raw), field.Addr().Interface())
		}

		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))

		for i, part := range parts {
			slice.Index(i).SetString(strings.TrimSpace(part))
		}

		field.Set(slice)
	case reflect.Map:
		return json.Unmarshal([]byte(raw), field.Addr().Interface())
	default:
		return fmt.Errorf("%w: %s", errUnsupportedEnvType, field.Kind())
	}

	return nil
}
