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

package types

// Operator is a comparison applied by a Condition.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNot        Operator = "not"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
)

var operators = map[Operator]struct{}{
	OpEquals: {}, OpNot: {}, OpIn: {}, OpNotIn: {}, OpLt: {}, OpLte: {},
	OpGt: {}, OpGte: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
}

// IsValid reports whether op is a known operator.
func (op Operator) IsValid() bool {
	_, ok := operators[op]
	return ok
}

// Condition constrains one column. A nil Value with OpEquals means IS NULL.
type Condition struct {
	Field string
	Op    Operator
	Value interface{}
}

// Filter is a conjunction of conditions, optionally AND-ed with a
// disjunction of nested filters.
type Filter struct {
	Conditions []Condition
	Any        []Filter
}

// IsEmpty reports whether the filter matches every row.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0 && len(f.Any) == 0
}

// Without returns a copy of the filter with every top-level condition on
// field removed.
func (f Filter) Without(field string) Filter {
	return f.WithoutFunc(func(name string) bool { return name == field })
}

// WithoutFunc returns a copy of the filter with every top-level condition
// whose field satisfies drop removed.
func (f Filter) WithoutFunc(drop func(field string) bool) Filter {
	out := Filter{Any: f.Any}
	for _, c := range f.Conditions {
		if !drop(c.Field) {
			out.Conditions = append(out.Conditions, c)
		}
	}
	return out
}

// And returns a copy of the filter with c appended last.
func (f Filter) And(c Condition) Filter {
	conds := make([]Condition, 0, len(f.Conditions)+1)
	conds = append(conds, f.Conditions...)
	return Filter{Conditions: append(conds, c), Any: f.Any}
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort orders by a single field.
type Sort struct {
	Field     string
	Direction Direction
}

// Query is the normalized, store agnostic form of a find request.
type Query struct {
	Table   string
	Filter  Filter
	Sort    *Sort
	Page    *PageRequest
	Select  []string
	Include []string
}

// Paginated reports whether a page was requested.
func (q *Query) Paginated() bool {
	return q.Page != nil
}
