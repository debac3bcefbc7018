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

package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{TypeMySQL, TypePostgres, "postgresql", TypePostgresPgx, TypeSQLite, "sqlite3"}

// BaseDatabaseFactory owns one database manager and the catalog built on top
// of its connection.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	catalog *Catalog
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from cfg after applying
// DB_* environment overrides.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	overrideFromEnv(cfg)

	supported := false
	for _, t := range supportedTypes {
		if cfg.Type == t {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*dst = b
		}
	}
}

// envDuration accepts Go durations ("30s") and plain seconds ("30").
func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := cast.ToInt64E(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	if d, err := cast.ToDurationE(v); err == nil {
		*dst = d
	}
}

// overrideFromEnv overrides configuration values from environment variables.
func overrideFromEnv(cfg *ConnectionConfig) {
	envString("DB_TYPE", &cfg.Type)
	envString("DB_HOST", &cfg.Host)
	envInt("DB_PORT", &cfg.Port)
	envString("DB_USERNAME", &cfg.Username)
	envString("DB_PASSWORD", &cfg.Password)
	envString("DB_NAME", &cfg.DBName)
	envString("DB_DSN", &cfg.DSN)
	envString("DB_SSLMODE", &cfg.SSLMode)

	envInt("DB_MAX_IDLE_CONNS", &cfg.MaxIdleConns)
	envInt("DB_MAX_OPEN_CONNS", &cfg.MaxOpenConns)
	envDuration("DB_CONN_MAX_LIFETIME", &cfg.ConnMaxLifetime)

	envBool("DB_ENABLE_RECONNECT", &cfg.EnableReconnect)
	envDuration("DB_RECONNECT_INTERVAL", &cfg.ReconnectInterval)

	envBool("DB_ENABLE_QUERY_LOG", &cfg.EnableQueryLog)
	envDuration("DB_SLOW_QUERY_TIME", &cfg.SlowQueryTime)
}

// InitializeDatabase connects, optionally creates model tables, and builds
// the catalog from the registered models.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, schemaCfg SchemaConfig) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if schemaCfg.CreateTablesOnStartup {
		if err := f.manager.CreateTables(ctx, schemaCfg.WithForeignKeys); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	if schemaCfg.SeedDir != "" {
		seeder := NewSeeder(f.manager.GetDB(), schemaCfg.SeedDir, schemaCfg.SeedEnvironment)
		seeder.SetLogger(f.logger)
		if _, err := seeder.Run(ctx); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	db := f.manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)
	catalog, err := NewRegisteredCatalog(db)
	if err != nil {
		return err
	}
	f.catalog = catalog

	if schemaCfg.CatalogFile != "" {
		if err := f.exportCatalog(schemaCfg.CatalogFile); err != nil {
			return err
		}
	}
	f.logger.Info("Database initialization completed", "tables", len(catalog.Tables()))
	return nil
}

func (f *BaseDatabaseFactory) exportCatalog(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	defer file.Close()
	return f.catalog.Export(file)
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetCatalog returns nil before InitializeDatabase succeeds.
func (f *BaseDatabaseFactory) GetCatalog() *Catalog {
	return f.catalog
}

func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
