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

// Package config loads the falcon settings from an optional YAML file, a
// .env file and FALCON_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/repository"
	"github.com/tomoncle/falcon/types"
	"github.com/tomoncle/falcon/utils"
)

const EnvPrefix = "FALCON"

type RepositoryConfig struct {
	DefaultPageSize int  `mapstructure:"default_page_size"`
	LogErrors       bool `mapstructure:"log_errors"`
}

// Options turns the settings into repository options. Failed operations
// are logged through the database logger only when LogErrors is set.
func (c RepositoryConfig) Options() []repository.Option {
	opts := []repository.Option{repository.WithDefaultPageSize(c.DefaultPageSize)}
	if c.LogErrors {
		opts = append(opts, repository.WithErrorReporter(repository.NewLogReporter(database.GetLogger())))
	}
	return opts
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics endpoint
}

type Config struct {
	Database   database.Config  `mapstructure:"database"`
	Log        utils.LogOptions `mapstructure:"log"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	conn := database.DefaultConnectionConfig()
	defaults := map[string]interface{}{
		"database.connection.type":                  conn.Type,
		"database.connection.host":                  "localhost",
		"database.connection.port":                  0,
		"database.connection.username":              "",
		"database.connection.password":              "",
		"database.connection.dbname":                conn.DBName,
		"database.connection.dsn":                   "",
		"database.connection.sslmode":               "disable",
		"database.connection.max_idle_conns":        conn.MaxIdleConns,
		"database.connection.max_open_conns":        conn.MaxOpenConns,
		"database.connection.conn_max_lifetime":     conn.ConnMaxLifetime,
		"database.connection.conn_max_idle_time":    conn.ConnMaxIdleTime,
		"database.connection.connect_timeout":       conn.ConnectTimeout,
		"database.connection.read_timeout":          conn.ReadTimeout,
		"database.connection.write_timeout":         conn.WriteTimeout,
		"database.connection.enable_reconnect":      conn.EnableReconnect,
		"database.connection.reconnect_interval":    conn.ReconnectInterval,
		"database.connection.max_reconnect_tries":   conn.MaxReconnectTries,
		"database.connection.health_check_interval": conn.HealthCheckInterval,
		"database.connection.enable_query_log":      false,
		"database.connection.color_query_log":       true,
		"database.connection.slow_query_time":       conn.SlowQueryTime,
		"database.connection.enable_metrics":        false,
		"database.schema.create_tables_on_startup":  false,
		"database.schema.with_foreign_keys":         true,
		"database.schema.catalog_file":              "",
		"database.schema.seed_dir":                  "",
		"database.schema.seed_environment":          "",
		"log.level":                                 utils.EnvDefaultString("LOG_LEVEL", "info"),
		"log.format":                                utils.EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		"log.file_enabled":                          utils.EnvDefaultBool("FILE_LOG_ENABLED", false),
		"log.file_dir":                              utils.EnvDefaultString("FILE_LOG_DIR", "logs"),
		"log.max_age_days":                          7,
		"repository.default_page_size":             types.DefaultPageSize,
		"repository.log_errors":                     true,
		"metrics.addr":                              "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = gotenv.Load(".env") // variables already set win
	}
}

// Load reads path when it is not empty. FALCON_DATABASE_CONNECTION_TYPE
// overrides database.connection.type, and so on for every key.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Repository.DefaultPageSize < 1 {
		return fmt.Errorf("repository.default_page_size must be positive, got %d", c.Repository.DefaultPageSize)
	}
	if c.Database.ConnectionConfig.Type == "" {
		return fmt.Errorf("database.connection.type is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
