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
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
	"go.opentelemetry.io/otel"
)

// opener resolves a connection config to a driver name, a DSN and the bun
// dialect speaking that driver's SQL.
type opener func(c *ConnectionConfig) (driver, dsn string, dialect schema.Dialect)

var openers = map[string]opener{
	TypeMySQL: func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return "mysql", mysqlDSN(c), mysqldialect.New()
	},
	TypePostgres: func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return "postgres", postgresDSN(c), pgdialect.New()
	},
	"postgresql": func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return "postgres", postgresDSN(c), pgdialect.New()
	},
	TypePostgresPgx: func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return "pgx", postgresDSN(c), pgdialect.New()
	},
	TypeSQLite: func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return sqliteshim.ShimName, sqliteDSN(c), sqlitedialect.New()
	},
	"sqlite3": func(c *ConnectionConfig) (string, string, schema.Dialect) {
		return sqliteshim.ShimName, sqliteDSN(c), sqlitedialect.New()
	},
}

// mysqlDSN builds the driver DSN. clientFoundRows makes RowsAffected count
// matched rows, so an update that changes nothing is not taken for a miss.
func mysqlDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func postgresDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", fmt.Sprint(int(c.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(c *ConnectionConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.DBName + ".db"
}

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu        sync.RWMutex
	db        *bun.DB
	connected bool
	lastError error
	status    *HealthStatus

	reconnectTries int
	stopMonitor    context.CancelFunc
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by bun.
// A nil config falls back to DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	return &defaultDatabaseManager{
		config: config,
		logger: GetLogger(),
		status: &HealthStatus{},
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.open(ctx); err != nil {
		return err
	}
	if dm.config.HealthCheckInterval > 0 && dm.stopMonitor == nil {
		monitorCtx, cancel := context.WithCancel(context.Background())
		dm.stopMonitor = cancel
		go dm.monitor(monitorCtx)
	}
	return nil
}

// open dials the configured store. dm.mu must be held.
func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	if dm.connected && dm.db != nil {
		return nil
	}
	open, ok := openers[dm.config.Type]
	if !ok {
		return fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	driver, dsn, dialect := open(dm.config)

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, dialect)
	if err := dm.installHooks(db); err != nil {
		_ = db.Close()
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.db, dm.connected, dm.lastError = db, true, nil
	dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

func (dm *defaultDatabaseManager) installHooks(db *bun.DB) error {
	if dm.config.EnableQueryLog {
		if dm.config.ColorQueryLog {
			db.AddQueryHook(NewQueryHook(WithQueryHookEnv("BUNDEBUG")))
		} else {
			db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
				bundebug.FromEnv("BUNDEBUG"),
			))
		}
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	if dm.config.EnableMetrics {
		hook, err := NewMetricsHook(otel.GetMeterProvider().Meter(meterName))
		if err != nil {
			return fmt.Errorf("failed to create metrics hook: %w", err)
		}
		db.AddQueryHook(hook)
	}
	return nil
}

// shut closes the current handle. dm.mu must be held.
func (dm *defaultDatabaseManager) shut() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.connected = nil, false
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

// Disconnect closes the handle and stops the health monitor.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.stopMonitor != nil {
		dm.stopMonitor()
		dm.stopMonitor = nil
	}
	return dm.shut()
}

// Reconnect replaces the handle; the health monitor keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.shut(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.open(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	if db := dm.GetDB(); db != nil {
		return db.DB
	}
	return nil
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	db := dm.GetDB()
	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = "database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	stats := db.DB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.mu.Lock()
	dm.status, dm.lastError = status, err
	dm.mu.Unlock()
	return status
}

// monitor pings the store every HealthCheckInterval and reconnects on
// failure when enabled, giving up after MaxReconnectTries in a row.
func (dm *defaultDatabaseManager) monitor(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status := dm.HealthCheck(checkCtx)
		cancel()
		if status.Healthy {
			dm.reconnectTries = 0
			continue
		}
		if !dm.config.EnableReconnect {
			continue
		}
		if dm.reconnectTries >= dm.config.MaxReconnectTries {
			dm.logger.Error("Max reconnect attempts reached", "tries", dm.reconnectTries)
			continue
		}

		dm.reconnectTries++
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		reconnectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		err := dm.Reconnect(reconnectCtx)
		cancel()
		if err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
			continue
		}
		dm.reconnectTries = 0
		dm.logger.Info("Reconnect succeeded")
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	s := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// CreateTables creates the tables of every registered model that does not
// exist yet.
func (dm *defaultDatabaseManager) CreateTables(ctx context.Context, withForeignKeys bool) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	models := RegisteredModelInstances()
	if err := CreateTables(ctx, db, withForeignKeys, models...); err != nil {
		return err
	}
	dm.logger.Info("Model tables ready", "count", len(models))
	return nil
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
