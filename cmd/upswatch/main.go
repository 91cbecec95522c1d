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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/carverauto/upswatch/cmd/upswatch/app"
	"github.com/carverauto/upswatch/pkg/config"
	"github.com/carverauto/upswatch/pkg/lifecycle"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/version"
)

const otelShutdownTimeout = 10 * time.Second

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/upswatch/upswatch.json", "Path to upswatch config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())

		return nil
	}

	ctx := context.Background()

	cfg := app.DefaultConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	appLogger, err := lifecycle.CreateComponentLogger(cfg.ServiceName, cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()

		if err := logger.ShutdownOTel(shutdownCtx); err != nil {
			log.Printf("Failed to flush OTel logs: %v", err)
		}
	}()

	a, err := app.New(ctx, &cfg, appLogger)
	if err != nil {
		return err
	}

	return a.Run(ctx)
}
