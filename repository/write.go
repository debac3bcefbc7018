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
	"reflect"
	"sort"
	"time"

	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

func (r *baseRepositoryImpl) Create(ctx context.Context, table string, payload types.CreatePayload) (record interface{}, err error) {
	defer func() { r.report(ctx, opCreate, table, err) }()

	t, err := r.table(table, opCreate)
	if err != nil {
		return nil, err
	}
	record = newRecord(t)
	if err := decodeBody(payload.Body, record); err != nil {
		return nil, err
	}
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, classify(table, opCreate, nil, err)
	}

	id := t.PKs[0].Value(reflect.ValueOf(record).Elem()).Interface()
	created, err := r.reload(ctx, t, id, nil, payload.Include)
	if err != nil {
		return nil, classify(table, opCreate, id, err)
	}
	return created, nil
}

// BulkCreate inserts every body in one statement. Bodies colliding with a
// unique key are dropped by the store and counted as skipped.
func (r *baseRepositoryImpl) BulkCreate(ctx context.Context, table string, bodies []types.JsonObject) (result *types.BulkResult, err error) {
	defer func() { r.report(ctx, opBulkCreate, table, err) }()

	t, err := r.table(table, opBulkCreate)
	if err != nil {
		return nil, err
	}
	result = &types.BulkResult{}
	if len(bodies) == 0 {
		return result, nil
	}

	records := newRecords(t)
	for _, body := range bodies {
		record := newRecord(t)
		if err := decodeBody(body, record); err != nil {
			return nil, err
		}
		records.Elem().Set(reflect.Append(records.Elem(), reflect.ValueOf(record)))
	}

	// INSERT IGNORE would also turn NOT NULL and truncation errors into
	// warnings, so dialects without ON CONFLICT insert row by row.
	if !r.db.Dialect().Features().Has(feature.InsertOnConflict) {
		return r.insertEach(ctx, t, records.Elem())
	}
	res, err := r.db.NewInsert().Model(records.Interface()).
		On("CONFLICT DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return nil, classify(table, opBulkCreate, nil, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, classify(table, opBulkCreate, nil, err)
	}
	result.Inserted = int(n)
	result.Skipped = len(bodies) - result.Inserted
	return result, nil
}

// insertEach inserts records one by one in a single transaction. Only
// duplicate key errors are skipped; any other failure rolls the batch back.
func (r *baseRepositoryImpl) insertEach(ctx context.Context, t *schema.Table, records reflect.Value) (*types.BulkResult, error) {
	result := &types.BulkResult{}
	insert := func(ctx context.Context, db bun.IDB) error {
		for i := 0; i < records.Len(); i++ {
			_, err := db.NewInsert().Model(records.Index(i).Interface()).Exec(ctx)
			switch {
			case err == nil:
				result.Inserted++
			case database.IsDuplicateKey(err):
				result.Skipped++
			default:
				return err
			}
		}
		return nil
	}

	var err error
	if r.inTx {
		err = insert(ctx, r.db)
	} else {
		err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return insert(ctx, tx)
		})
	}
	if err != nil {
		return nil, classify(t.Name, opBulkCreate, nil, err)
	}
	return result, nil
}

// touch sets updated_at on tables that declare it, unless the patch does.
func touch(upd *bun.UpdateQuery, t *schema.Table, patched map[string]bool) *bun.UpdateQuery {
	f, ok := t.FieldMap[updatedAtColumn]
	if !ok || patched[updatedAtColumn] || f.IndirectType != reflect.TypeOf(time.Time{}) {
		return upd
	}
	return upd.Set("? = ?", bun.Ident(updatedAtColumn), time.Now())
}

// Update patches the record with payload.ID. Hidden records do not match.
func (r *baseRepositoryImpl) Update(ctx context.Context, table string, payload types.UpdatePayload) (record interface{}, err error) {
	defer func() { r.report(ctx, opUpdate, table, err) }()

	t, err := r.table(table, opUpdate)
	if err != nil {
		return nil, err
	}
	id, err := coerceID(t, payload.ID)
	if err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, types.NewRequestFormatError("data", "nothing to update")
	}
	match, err := r.translator.Match(table, payload.Where)
	if err != nil {
		return nil, err
	}

	upd := r.db.NewUpdate().Model(newRecord(t))
	keys := payload.Data.Keys()
	sort.Strings(keys)
	patched := make(map[string]bool, len(keys))
	for _, key := range keys {
		f, err := r.column(t, "data", key)
		if err != nil {
			return nil, err
		}
		switch {
		case f.IsPK:
			return nil, types.NewRequestFormatError("data", "primary key %s cannot be changed", f.Name)
		case f.Name == database.VisibilityColumn && r.catalog.HasVisibilityField(table):
			return nil, types.NewRequestFormatError("data", "%s changes through softDelete and restore only", f.Name)
		}
		v, err := columnValue(f, payload.Data[key])
		if err != nil {
			return nil, err
		}
		upd = upd.Set("? = ?", bun.Ident(f.Name), v)
		patched[f.Name] = true
	}
	upd = touch(upd, t, patched)

	if err := r.exec(ctx, upd, t, id, idFilter(t, id, match)); err != nil {
		return nil, classify(table, opUpdate, id, err)
	}
	if record, err = r.reload(ctx, t, id, payload.Select, payload.Include); err != nil {
		return nil, classify(table, opUpdate, id, err)
	}
	return record, nil
}

// exec runs upd restricted to f and reports a miss as NotFoundError.
func (r *baseRepositoryImpl) exec(ctx context.Context, upd *bun.UpdateQuery, t *schema.Table, id interface{}, f types.Filter) error {
	where, args, err := r.where(t, f, false)
	if err != nil {
		return err
	}
	res, err := upd.Where(where, args...).Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.NotFoundError{Table: t.Name, ID: id}
	}
	return nil
}

func (r *baseRepositoryImpl) SoftDelete(ctx context.Context, table string, id interface{}) (record interface{}, err error) {
	defer func() { r.report(ctx, opSoftDelete, table, err) }()
	return r.setVisible(ctx, opSoftDelete, table, id, false)
}

func (r *baseRepositoryImpl) Restore(ctx context.Context, table string, id interface{}) (record interface{}, err error) {
	defer func() { r.report(ctx, opRestore, table, err) }()
	return r.setVisible(ctx, opRestore, table, id, true)
}

// setVisible flips the visible column of the record with id to visible. A
// record already in that state does not match.
func (r *baseRepositoryImpl) setVisible(ctx context.Context, op, table string, id interface{}, visible bool) (interface{}, error) {
	t, err := r.table(table, op)
	if err != nil {
		return nil, err
	}
	if !r.catalog.HasVisibilityField(table) {
		return nil, &types.CapabilityError{Table: table, Operation: op}
	}
	if id, err = coerceID(t, id); err != nil {
		return nil, err
	}

	upd := r.db.NewUpdate().Model(newRecord(t)).
		Set("? = ?", bun.Ident(database.VisibilityColumn), visible)
	upd = touch(upd, t, nil)
	match := idFilter(t, id, types.Filter{Conditions: []types.Condition{
		{Field: database.VisibilityColumn, Op: types.OpEquals, Value: !visible},
	}})
	if err := r.exec(ctx, upd, t, id, match); err != nil {
		return nil, classify(table, op, id, err)
	}

	record, err := r.reload(ctx, t, id, nil, nil)
	if err != nil {
		return nil, classify(table, op, id, err)
	}
	return record, nil
}

// HardDelete removes the record with id whatever its visibility and returns
// it as it was.
func (r *baseRepositoryImpl) HardDelete(ctx context.Context, table string, id interface{}) (record interface{}, err error) {
	defer func() { r.report(ctx, opHardDelete, table, err) }()

	t, err := r.table(table, opHardDelete)
	if err != nil {
		return nil, err
	}
	if id, err = coerceID(t, id); err != nil {
		return nil, err
	}
	if record, err = r.reload(ctx, t, id, nil, nil); err != nil {
		return nil, classify(table, opHardDelete, id, err)
	}

	res, err := r.db.NewDelete().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return nil, classify(table, opHardDelete, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, &types.NotFoundError{Table: table, ID: id}
	}
	return record, nil
}
