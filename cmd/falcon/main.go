/*
 * Copyright 2025 tomoncle.
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

// Command falcon connects to the configured database, optionally creates the
// tables of the registered models, dumps the catalog and serves /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"github.com/tomoncle/falcon"
	"github.com/tomoncle/falcon/config"
	"github.com/tomoncle/falcon/database"
	_ "github.com/tomoncle/falcon/models"
	"github.com/tomoncle/falcon/utils"
)

var log = utils.NewLogger("FALCON")

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file")
	createTables := pflag.Bool("create-tables", false, "create missing tables of the registered models")
	dumpCatalog := pflag.String("dump-catalog", "", "write the table catalog as YAML to this file, - for stdout")
	metricsAddr := pflag.String("metrics-addr", "", "serve prometheus metrics on this address")
	pflag.Parse()

	if err := run(*configPath, *createTables, *dumpCatalog, *metricsAddr); err != nil {
		log.WithError(err).Error("falcon failed")
		os.Exit(1)
	}
}

func run(configPath string, createTables bool, dumpCatalog, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	utils.Configure(cfg.Log)
	if createTables {
		cfg.Database.SchemaConfig.CreateTablesOnStartup = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Metrics.Addr != "" {
		provider, handler, err := setupMetrics()
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		defer func() { _ = provider.Shutdown(context.Background()) }()
		cfg.Database.ConnectionConfig.EnableMetrics = true

		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		server = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	if _, err := database.InitDB(ctx, &cfg.Database); err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()
	falcon.SetRepositoryOptions(cfg.Repository.Options()...)

	if dumpCatalog != "" {
		if err := writeCatalog(dumpCatalog); err != nil {
			return err
		}
	}

	health, _ := json.Marshal(database.GetHealthStatus(ctx))
	log.WithField("tables", database.GetCatalog().Tables()).Infof("Database ready: %s", health)

	if server == nil {
		return nil
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", server.Addr).Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeCatalog(path string) error {
	if path == "-" {
		return database.GetCatalog().Export(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return database.GetCatalog().Export(f)
}
