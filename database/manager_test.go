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
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	c := &ConnectionConfig{Host: "db", Port: 3306, Username: "root", Password: "secret", DBName: "falcon"}
	cfg, err := mysql.ParseDSN(mysqlDSN(c))
	require.NoError(t, err)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "falcon", cfg.DBName)
	assert.True(t, cfg.ClientFoundRows)
	assert.True(t, cfg.ParseTime)

	c.DSN = "user@tcp(other)/x"
	assert.Equal(t, c.DSN, mysqlDSN(c))
}

func TestPostgresDSN(t *testing.T) {
	c := &ConnectionConfig{Host: "pg", Port: 5432, Username: "u", Password: "p@ss", DBName: "falcon", ConnectTimeout: 5 * time.Second}
	assert.Equal(t, "postgres://u:p%40ss@pg:5432/falcon?connect_timeout=5&sslmode=disable", postgresDSN(c))
}

func TestManager_SQLite(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.DSN = "file:manager_test?mode=memory&cache=shared"
	cfg.HealthCheckInterval = 0
	cfg.SlowQueryTime = 0

	dm := NewDatabaseManager(cfg)
	ctx := context.Background()
	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.Connect(ctx))
	require.NotNil(t, dm.GetDB())

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.Empty(t, status.LastError)

	require.NoError(t, dm.Reconnect(ctx))
	require.NoError(t, dm.Ping(ctx))

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.Error(t, dm.Ping(ctx))
	assert.False(t, dm.HealthCheck(ctx).Healthy)
	assert.Equal(t, &DBStats{}, dm.GetStats())
}

func TestManager_UnsupportedType(t *testing.T) {
	dm := NewDatabaseManager(&ConnectionConfig{Type: "oracle"})
	assert.EqualError(t, dm.Connect(context.Background()), "unsupported database type: oracle")
}
