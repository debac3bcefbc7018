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
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/query"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

const (
	opFind       = "find"
	opFindOne    = "findOne"
	opCreate     = "create"
	opBulkCreate = "bulkCreate"
	opUpdate     = "update"
	opSoftDelete = "softDelete"
	opRestore    = "restore"
	opHardDelete = "hardDelete"
)

// updatedAtColumn is refreshed on every update when the table declares it.
const updatedAtColumn = "updated_at"

type baseRepositoryImpl struct {
	db         bun.IDB
	inTx       bool
	catalog    *database.Catalog
	translator *query.Translator
	reporter   ErrorReporter
	pageSize   int
}

// Option configures a repository.
type Option func(*baseRepositoryImpl)

// WithErrorReporter forwards every failed operation to reporter.
func WithErrorReporter(reporter ErrorReporter) Option {
	return func(r *baseRepositoryImpl) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithDefaultPageSize sets the page size used when a page is requested
// without a limit.
func WithDefaultPageSize(n int) Option {
	return func(r *baseRepositoryImpl) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// NewRepository returns a repository over the tables of catalog. db may be a
// *bun.DB or a bun.Tx.
func NewRepository(db bun.IDB, catalog *database.Catalog, opts ...Option) Repository {
	r := &baseRepositoryImpl{
		db:       db,
		catalog:  catalog,
		reporter: nopReporter{},
		pageSize: types.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := db.(bun.Tx); ok {
		r.inTx = true
	}
	r.translator = query.NewTranslator(catalog, query.WithDefaultPageSize(r.pageSize))
	return r
}

func (r *baseRepositoryImpl) Catalog() *database.Catalog { return r.catalog }

func (r *baseRepositoryImpl) WithTx(tx bun.Tx) Repository {
	clone := *r
	clone.db = tx
	clone.inTx = true
	return &clone
}

func (r *baseRepositoryImpl) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, repo Repository) error) error {
	return r.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

func (r *baseRepositoryImpl) report(ctx context.Context, op, table string, err error) {
	if err != nil {
		r.reporter.Report(ctx, op, table, err)
	}
}

// table resolves a table name. Unknown names are a store failure, the same
// way an unknown collection fails at the store.
func (r *baseRepositoryImpl) table(name, op string) (*schema.Table, error) {
	t, err := r.catalog.MustLookup(name)
	if err != nil {
		return nil, &types.StoreError{Table: name, Op: op, Err: err}
	}
	if len(t.PKs) != 1 {
		return nil, &types.StoreError{Table: name, Op: op, Err: fmt.Errorf("table %s must have exactly one primary key", t.Name)}
	}
	return t, nil
}

// newRecord returns a *T for the table's model.
func newRecord(t *schema.Table) interface{} {
	return reflect.New(t.Type).Interface()
}

// newRecords returns a *[]*T holding an empty slice, so that an empty
// result marshals as [] rather than null.
func newRecords(t *schema.Table) reflect.Value {
	typ := reflect.SliceOf(reflect.PointerTo(t.Type))
	ptr := reflect.New(typ)
	ptr.Elem().Set(reflect.MakeSlice(typ, 0, 0))
	return ptr
}

// coerceID converts id to the Go type of the primary key.
func coerceID(t *schema.Table, id interface{}) (interface{}, error) {
	if id == nil {
		return nil, types.NewRequestFormatError("id", "missing")
	}
	pk := t.PKs[0]
	typ := pk.IndirectType

	var (
		v   interface{}
		err error
	)
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err = cast.ToInt64E(id)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err = cast.ToUint64E(id)
	case reflect.String:
		v, err = cast.ToStringE(id)
		if err == nil && v == "" {
			err = fmt.Errorf("empty")
		}
	default:
		return id, nil
	}
	if err != nil {
		return nil, &types.RequestFormatError{Field: "id", Err: err}
	}
	return reflect.ValueOf(v).Convert(typ).Interface(), nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// decodeBody fills the model record from a JSON body keyed by json names.
// Unknown keys are rejected.
func decodeBody(body types.JsonObject, record interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook(),
		ErrorUnused:      true,
		Squash:           true,
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           record,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]interface{}(body)); err != nil {
		return &types.RequestFormatError{Field: "body", Err: err}
	}
	return nil
}

// columnValue converts a patch value to the Go type of the column.
func columnValue(f *schema.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	dst := reflect.New(f.IndirectType)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook(),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           dst.Interface(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(value); err != nil {
		return nil, types.NewRequestFormatError("data", "%s: %v", f.Name, err)
	}
	return dst.Elem().Interface(), nil
}
