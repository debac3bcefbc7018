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
	"reflect"
	"strings"

	"github.com/spf13/cast"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

var comparisons = map[types.Operator]string{
	types.OpLt:  "<",
	types.OpLte: "<=",
	types.OpGt:  ">",
	types.OpGte: ">=",
}

// whereBuilder renders a filter as one SQL condition with bun placeholders.
// Columns are qualified with ?TableAlias for selects, which may join
// relations; updates and deletes use bare columns.
type whereBuilder struct {
	r       *baseRepositoryImpl
	table   *schema.Table
	qualify bool

	args []interface{}
}

func (r *baseRepositoryImpl) where(t *schema.Table, f types.Filter, qualify bool) (string, []interface{}, error) {
	b := &whereBuilder{r: r, table: t, qualify: qualify}
	sql, err := b.filter(f)
	if err != nil {
		return "", nil, err
	}
	return sql, b.args, nil
}

// column resolves a filter field to its column name.
func (r *baseRepositoryImpl) column(t *schema.Table, param, name string) (*schema.Field, error) {
	f, ok := r.catalog.Field(t.Name, name)
	if !ok {
		return nil, types.NewRequestFormatError(param, "unknown field %q on %s", name, t.Name)
	}
	return f, nil
}

func (b *whereBuilder) ident(col string) string {
	b.args = append(b.args, bun.Ident(col))
	if b.qualify {
		return "?TableAlias.?"
	}
	return "?"
}

func (b *whereBuilder) filter(f types.Filter) (string, error) {
	parts := make([]string, 0, len(f.Conditions)+1)
	for _, c := range f.Conditions {
		sql, err := b.condition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(f.Any) > 0 {
		alts := make([]string, 0, len(f.Any))
		for _, alt := range f.Any {
			sql, err := b.filter(alt)
			if err != nil {
				return "", err
			}
			if sql == "" {
				sql = "1 = 1"
			}
			alts = append(alts, "("+sql+")")
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	return strings.Join(parts, " AND "), nil
}

func (b *whereBuilder) condition(c types.Condition) (string, error) {
	field, err := b.r.column(b.table, "where", c.Field)
	if err != nil {
		return "", err
	}
	col := field.Name

	switch c.Op {
	case types.OpEquals:
		if c.Value == nil {
			return b.ident(col) + " IS NULL", nil
		}
		return b.ident(col) + " = " + b.arg(c.Value), nil
	case types.OpNot:
		if c.Value == nil {
			return b.ident(col) + " IS NOT NULL", nil
		}
		return b.ident(col) + " <> " + b.arg(c.Value), nil
	case types.OpIn, types.OpNotIn:
		values := listValues(c.Value)
		if len(values) == 0 {
			if c.Op == types.OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		kw := " IN "
		if c.Op == types.OpNotIn {
			kw = " NOT IN "
		}
		return b.ident(col) + kw + "(" + b.arg(bun.In(values)) + ")", nil
	case types.OpLt, types.OpLte, types.OpGt, types.OpGte:
		return b.ident(col) + " " + comparisons[c.Op] + " " + b.arg(c.Value), nil
	case types.OpContains, types.OpStartsWith, types.OpEndsWith:
		s, err := cast.ToStringE(c.Value)
		if err != nil {
			return "", types.NewRequestFormatError("where", "%s on %s needs a string", c.Op, c.Field)
		}
		switch c.Op {
		case types.OpContains:
			s = "%" + s + "%"
		case types.OpStartsWith:
			s = s + "%"
		default:
			s = "%" + s
		}
		return b.ident(col) + " LIKE " + b.arg(s), nil
	default:
		return "", types.NewRequestFormatError("where", "unknown operator %q", c.Op)
	}
}

func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return "?"
}

func listValues(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []interface{}{v}
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// idFilter matches the record with id, AND-ed with extra.
func idFilter(t *schema.Table, id interface{}, extra types.Filter) types.Filter {
	conds := make([]types.Condition, 0, len(extra.Conditions)+1)
	conds = append(conds, types.Condition{Field: t.PKs[0].Name, Op: types.OpEquals, Value: id})
	return types.Filter{Conditions: append(conds, extra.Conditions...), Any: extra.Any}
}
