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

package query

import (
	"github.com/tomoncle/falcon/types"
)

// VisibilityField is the column whose presence enables soft delete.
const VisibilityField = "visible"

// Catalog answers whether a table declares the visibility column and
// which column a request field name refers to.
type Catalog interface {
	HasVisibilityField(table string) bool
	ColumnName(table, field string) (string, bool)
}

// Translator turns loosely typed payloads into types.Query values.
type Translator struct {
	catalog  Catalog
	pageSize int
}

// Option configures a Translator.
type Option func(*Translator)

// WithDefaultPageSize sets the limit used when a page is requested
// without one.
func WithDefaultPageSize(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// NewTranslator returns a Translator consulting catalog for visibility.
func NewTranslator(catalog Catalog, opts ...Option) *Translator {
	t := &Translator{catalog: catalog, pageSize: types.DefaultPageSize}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Find normalizes a list request. Visibility is injected when the table
// supports it.
func (t *Translator) Find(table string, payload types.FindPayload) (*types.Query, error) {
	filter, err := ParseFilter(payload.Where)
	if err != nil {
		return nil, err
	}
	sort, err := ParseSort(payload.SortBy)
	if err != nil {
		return nil, err
	}
	page, err := ParsePage(payload.Query, t.pageSize)
	if err != nil {
		return nil, err
	}
	return &types.Query{
		Table:   table,
		Filter:  t.Visible(table, filter),
		Sort:    sort,
		Page:    page,
		Select:  payload.Select,
		Include: payload.Include,
	}, nil
}

// FindOne normalizes a single record lookup.
func (t *Translator) FindOne(table string, payload types.FindOnePayload) (*types.Query, error) {
	filter, err := ParseFilter(payload.Where)
	if err != nil {
		return nil, err
	}
	return &types.Query{
		Table:   table,
		Filter:  t.Visible(table, filter),
		Select:  payload.Select,
		Include: payload.Include,
	}, nil
}

// Match normalizes the extra filter of an update.
func (t *Translator) Match(table string, where interface{}) (types.Filter, error) {
	filter, err := ParseFilter(where)
	if err != nil {
		return types.Filter{}, err
	}
	return t.Visible(table, filter), nil
}

// Visible drops any caller condition on the visibility column, whatever
// name it is spelled with, and appends visible = true last. Tables without
// the column are left untouched.
func (t *Translator) Visible(table string, filter types.Filter) types.Filter {
	if t.catalog == nil || !t.catalog.HasVisibilityField(table) {
		return filter
	}
	onVisibility := func(field string) bool {
		if field == VisibilityField {
			return true
		}
		column, ok := t.catalog.ColumnName(table, field)
		return ok && column == VisibilityField
	}
	return filter.WithoutFunc(onVisibility).And(types.Condition{
		Field: VisibilityField,
		Op:    types.OpEquals,
		Value: true,
	})
}
