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
	"database/sql"

	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
)

// Records are returned as pointers to the table's model struct, lists as a
// slice of such pointers.

// ReadRepository defines the lookups. Both hide soft deleted records.
type ReadRepository interface {
	Find(ctx context.Context, table string, payload types.FindPayload) (*types.Result, error)

	FindOne(ctx context.Context, table string, payload types.FindOnePayload) (interface{}, error)
}

// WriteRepository defines the mutations available on every table.
type WriteRepository interface {
	Create(ctx context.Context, table string, payload types.CreatePayload) (interface{}, error)

	BulkCreate(ctx context.Context, table string, bodies []types.JsonObject) (*types.BulkResult, error)

	Update(ctx context.Context, table string, payload types.UpdatePayload) (interface{}, error)

	HardDelete(ctx context.Context, table string, id interface{}) (interface{}, error)
}

// SoftDeleteRepository defines the mutations of tables with a visible column.
type SoftDeleteRepository interface {
	SoftDelete(ctx context.Context, table string, id interface{}) (interface{}, error)

	Restore(ctx context.Context, table string, id interface{}) (interface{}, error)
}

// Repository combines every operation and binds them to a transaction on
// demand.
type Repository interface {
	ReadRepository
	WriteRepository
	SoftDeleteRepository

	// WithTx returns a repository running every operation inside tx.
	WithTx(tx bun.Tx) Repository
	// RunInTx runs fn with a transactional repository, committing when fn
	// returns nil.
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo Repository) error) error
	Catalog() *database.Catalog
}

// ErrorReporter receives every failed operation. Reporting never changes the
// returned error.
type ErrorReporter interface {
	Report(ctx context.Context, operation, table string, err error)
}
