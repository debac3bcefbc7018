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
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tomoncle/falcon/database"

// MetricsHook records query counts and latencies per SQL operation.
type MetricsHook struct {
	queries  metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

var _ bun.QueryHook = (*MetricsHook)(nil)

func NewMetricsHook(meter metric.Meter) (*MetricsHook, error) {
	h := &MetricsHook{}
	var err error

	h.queries, err = meter.Int64Counter(
		"falcon_db_queries_total",
		metric.WithDescription("Total number of executed queries"),
	)
	if err != nil {
		return nil, err
	}

	h.failures, err = meter.Int64Counter(
		"falcon_db_query_errors_total",
		metric.WithDescription("Total number of failed queries"),
	)
	if err != nil {
		return nil, err
	}

	h.duration, err = meter.Float64Histogram(
		"falcon_db_query_duration_seconds",
		metric.WithDescription("Query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := attribute.String("operation", event.Operation())
	h.queries.Add(ctx, 1, metric.WithAttributes(op))
	h.duration.Record(ctx, time.Since(event.StartTime).Seconds(), metric.WithAttributes(op))

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		_, kind := IsSqlError(event.Err)
		h.failures.Add(ctx, 1, metric.WithAttributes(op, attribute.String("kind", kind.String())))
	}
}
