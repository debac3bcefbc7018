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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
)

type nopReporter struct{}

func (nopReporter) Report(context.Context, string, string, error) {}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(ctx context.Context, operation, table string, err error)

func (f ErrorReporterFunc) Report(ctx context.Context, operation, table string, err error) {
	f(ctx, operation, table, err)
}

// LogReporter logs failures: caller mistakes and misses at debug level,
// everything else as errors.
type LogReporter struct {
	logger database.Logger
}

func NewLogReporter(logger database.Logger) *LogReporter {
	if logger == nil {
		logger = database.GetLogger()
	}
	return &LogReporter{logger: logger}
}

func (l *LogReporter) Report(_ context.Context, operation, table string, err error) {
	kind := Classify(err)
	fields := []interface{}{"operation", operation, "table", table, "kind", kind.Name(), "error", err}
	switch {
	case kind == types.KindNotFound, isCallerError(err):
		l.logger.Debug("Repository request rejected", fields...)
	default:
		l.logger.Error("Repository operation failed", fields...)
	}
}

func isCallerError(err error) bool {
	return errors.Is(err, types.ErrRequestFormat) || errors.Is(err, types.ErrCapability) || errors.Is(err, types.ErrDuplicateKey)
}
