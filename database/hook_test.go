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
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) SetLevel(LogLevel)            {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func event(query string, age time.Duration, err error) *bun.QueryEvent {
	return &bun.QueryEvent{Query: query, StartTime: time.Now().Add(-age), Err: err}
}

func TestQueryHook(t *testing.T) {
	var buf bytes.Buffer
	h := NewQueryHook(WithQueryHookWriter(&buf), WithQueryHookVerbose(false))

	h.AfterQuery(context.Background(), event("SELECT 1", 0, nil))
	assert.Empty(t, buf.String())

	h.AfterQuery(context.Background(), event("DELETE FROM users", 0, errors.New("locked")))
	assert.Contains(t, buf.String(), "DELETE FROM users")
	assert.Contains(t, buf.String(), "locked")
}

func TestQueryHook_Env(t *testing.T) {
	var buf bytes.Buffer
	h := NewQueryHook(WithQueryHookWriter(&buf), WithQueryHookEnv("FALCON_TEST_BUNDEBUG"))

	t.Setenv("FALCON_TEST_BUNDEBUG", "0")
	h.AfterQuery(context.Background(), event("SELECT 1", 0, nil))
	assert.Empty(t, buf.String())

	t.Setenv("FALCON_TEST_BUNDEBUG", "2")
	h.AfterQuery(context.Background(), event("SELECT 2", 0, nil))
	assert.Contains(t, buf.String(), "SELECT 2")
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	h := NewSlowQueryHook(50*time.Millisecond, logger)

	h.AfterQuery(context.Background(), event("SELECT 1", time.Millisecond, nil))
	h.AfterQuery(context.Background(), event("SELECT 2", time.Second, errors.New("boom")))
	assert.Empty(t, logger.warns)

	h.AfterQuery(context.Background(), event("SELECT 3", time.Second, nil))
	assert.Equal(t, []string{"Database slow query detected"}, logger.warns)
}

func TestMetricsHook(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h, err := NewMetricsHook(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	h.AfterQuery(ctx, event("SELECT 1", time.Millisecond, nil))
	h.AfterQuery(ctx, event("INSERT INTO users", time.Millisecond, errors.New("UNIQUE constraint failed: users.email")))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["falcon_db_queries_total"])
	assert.Equal(t, int64(1), sums["falcon_db_query_errors_total"])
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_RECONNECT_INTERVAL", "1500ms")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := DefaultConnectionConfig()
	overrideFromEnv(cfg)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 3307, cfg.Port)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReconnectInterval)
	assert.Equal(t, 100, cfg.MaxOpenConns)
}

func TestFactory_UnsupportedType(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestInitDB_SQLite(t *testing.T) {
	RegisterModel((*author)(nil), 10)
	RegisterModel((*book)(nil), 20)

	cfg := &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		SchemaConfig:     SchemaConfig{CreateTablesOnStartup: true, WithForeignKeys: true},
	}
	cfg.ConnectionConfig.DSN = "file:initdb_test?mode=memory&cache=shared"
	cfg.ConnectionConfig.HealthCheckInterval = 0
	cfg.ConnectionConfig.MaxOpenConns = 1

	db, err := InitDB(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	require.NotNil(t, GetCatalog())
	assert.True(t, GetCatalog().HasVisibilityField("authors"))
	assert.True(t, GetHealthStatus(context.Background()).Healthy)

	n, err := db.NewSelect().Model((*book)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
