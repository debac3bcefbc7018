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

	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
	"golang.org/x/sync/errgroup"
)

// shape applies the projection and the relations to load.
func (r *baseRepositoryImpl) shape(sel *bun.SelectQuery, t *schema.Table, columns, include []string) (*bun.SelectQuery, error) {
	if len(columns) > 0 {
		pk := t.PKs[0].Name
		sel = sel.ColumnExpr("?TableAlias.?", bun.Ident(pk))
		for _, name := range columns {
			f, err := r.column(t, "select", name)
			if err != nil {
				return nil, err
			}
			if f.Name != pk {
				sel = sel.ColumnExpr("?TableAlias.?", bun.Ident(f.Name))
			}
		}
	}
	for _, name := range include {
		rel, ok := r.catalog.Relation(t.Name, name)
		if !ok {
			return nil, types.NewRequestFormatError("include", "unknown relation %q on %s", name, t.Name)
		}
		sel = sel.Relation(rel.Field.GoName)
	}
	return sel, nil
}

func (r *baseRepositoryImpl) filtered(sel *bun.SelectQuery, t *schema.Table, f types.Filter) (*bun.SelectQuery, error) {
	where, args, err := r.where(t, f, true)
	if err != nil {
		return nil, err
	}
	if where != "" {
		sel = sel.Where(where, args...)
	}
	return sel, nil
}

func (r *baseRepositoryImpl) Find(ctx context.Context, table string, payload types.FindPayload) (result *types.Result, err error) {
	defer func() { r.report(ctx, opFind, table, err) }()

	t, err := r.table(table, opFind)
	if err != nil {
		return nil, err
	}
	q, err := r.translator.Find(table, payload)
	if err != nil {
		return nil, err
	}

	docs := newRecords(t)
	list, err := r.filtered(r.db.NewSelect().Model(docs.Interface()), t, q.Filter)
	if err != nil {
		return nil, err
	}
	if list, err = r.shape(list, t, q.Select, q.Include); err != nil {
		return nil, err
	}
	switch {
	case q.Sort != nil:
		f, err := r.column(t, "sortBy", q.Sort.Field)
		if err != nil {
			return nil, err
		}
		list = list.OrderExpr("?TableAlias.? "+string(q.Sort.Direction), bun.Ident(f.Name))
	case q.Paginated():
		// stable pages
		list = list.OrderExpr("?TableAlias.? ASC", bun.Ident(t.PKs[0].Name))
	}

	if !q.Paginated() {
		if err := list.Scan(ctx); err != nil {
			return nil, classify(table, opFind, nil, err)
		}
		return &types.Result{Docs: docs.Elem().Interface()}, nil
	}

	list = list.Offset(q.Page.GetOffset()).Limit(q.Page.GetPageSize())
	count, err := r.filtered(r.db.NewSelect().Model(newRecord(t)), t, q.Filter)
	if err != nil {
		return nil, err
	}

	var total int
	scan := func(ctx context.Context) error { return list.Scan(ctx) }
	countRows := func(ctx context.Context) (err error) {
		total, err = count.Count(ctx)
		return err
	}
	if r.inTx {
		// one connection, one statement at a time
		if err = scan(ctx); err == nil {
			err = countRows(ctx)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return scan(gctx) })
		g.Go(func() error { return countRows(gctx) })
		err = g.Wait()
	}
	if err != nil {
		return nil, classify(table, opFind, nil, err)
	}
	return &types.Result{
		Docs: docs.Elem().Interface(),
		Page: types.NewPageInfo(q.Page, total),
	}, nil
}

func (r *baseRepositoryImpl) FindOne(ctx context.Context, table string, payload types.FindOnePayload) (record interface{}, err error) {
	defer func() { r.report(ctx, opFindOne, table, err) }()

	t, err := r.table(table, opFindOne)
	if err != nil {
		return nil, err
	}
	q, err := r.translator.FindOne(table, payload)
	if err != nil {
		return nil, err
	}

	record = newRecord(t)
	sel, err := r.filtered(r.db.NewSelect().Model(record), t, q.Filter)
	if err != nil {
		return nil, err
	}
	if sel, err = r.shape(sel, t, q.Select, q.Include); err != nil {
		return nil, err
	}
	if err := sel.Limit(1).Scan(ctx); err != nil {
		return nil, classify(table, opFindOne, nil, err)
	}
	return record, nil
}

// reload reads the record with id back, ignoring visibility.
func (r *baseRepositoryImpl) reload(ctx context.Context, t *schema.Table, id interface{}, columns, include []string) (interface{}, error) {
	record := newRecord(t)
	sel, err := r.filtered(r.db.NewSelect().Model(record), t, idFilter(t, id, types.Filter{}))
	if err != nil {
		return nil, err
	}
	if sel, err = r.shape(sel, t, columns, include); err != nil {
		return nil, err
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return record, nil
}
