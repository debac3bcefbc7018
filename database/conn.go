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
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
)

func currentFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	if f := currentFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetCatalog returns the global catalog, or nil before InitDB.
func GetCatalog() *Catalog {
	if f := currentFactory(); f != nil {
		return f.GetCatalog()
	}
	return nil
}

func GetDatabaseManager() AbstractDatabaseManager {
	if f := currentFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// InitDB connects the global database described by cfg, creates tables when
// configured to, and builds the catalog of registered models.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.ConnectionConfig); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, cfg.SchemaConfig); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	globalMu.Lock()
	prev := globalFactory
	globalFactory = factory
	globalMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return factory.GetDB(), nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory = nil
	globalMu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := currentFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

func GetDatabaseStats() *DBStats {
	if f := currentFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}
