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
	"reflect"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"github.com/tomoncle/falcon/types"
)

// orKey groups alternative filters.
const orKey = "OR"

// ParseFilter accepts nil, a JSON encoded string or a decoded object.
// Empty input yields an empty filter.
func ParseFilter(where interface{}) (types.Filter, error) {
	switch w := where.(type) {
	case nil:
		return types.Filter{}, nil
	case string:
		w = strings.TrimSpace(w)
		if w == "" {
			return types.Filter{}, nil
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(w), &m); err != nil {
			return types.Filter{}, &types.RequestFormatError{Field: "where", Err: err}
		}
		return filterFromMap(m)
	case []byte:
		return ParseFilter(string(w))
	case types.JsonObject:
		return filterFromMap(w)
	case map[string]interface{}:
		return filterFromMap(w)
	default:
		return types.Filter{}, types.NewRequestFormatError("where", "unsupported filter type %T", where)
	}
}

func filterFromMap(m map[string]interface{}) (types.Filter, error) {
	var f types.Filter
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		value := m[field]
		if field == orKey {
			alts, err := alternatives(value)
			if err != nil {
				return types.Filter{}, err
			}
			f.Any = append(f.Any, alts...)
			continue
		}
		conds, err := conditions(field, value)
		if err != nil {
			return types.Filter{}, err
		}
		f.Conditions = append(f.Conditions, conds...)
	}
	return f, nil
}

func alternatives(value interface{}) ([]types.Filter, error) {
	if !isList(value) {
		return nil, types.NewRequestFormatError("where", "%s expects an array of filters", orKey)
	}
	items := reflect.ValueOf(value)
	out := make([]types.Filter, 0, items.Len())
	for i := 0; i < items.Len(); i++ {
		m, ok := asMap(items.Index(i).Interface())
		if !ok {
			return nil, types.NewRequestFormatError("where", "%s expects an array of filters", orKey)
		}
		sub, err := filterFromMap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func conditions(field string, value interface{}) ([]types.Condition, error) {
	if field == "" {
		return nil, types.NewRequestFormatError("where", "empty field name")
	}
	ops, ok := asMap(value)
	if !ok {
		if isList(value) {
			return nil, types.NewRequestFormatError("where", "field %q: use {\"in\": [...]} to match a list", field)
		}
		return []types.Condition{{Field: field, Op: types.OpEquals, Value: value}}, nil
	}
	names := make([]string, 0, len(ops))
	for k := range ops {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]types.Condition, 0, len(ops))
	for _, name := range names {
		op := types.Operator(name)
		if !op.IsValid() {
			return nil, types.NewRequestFormatError("where", "field %q: unknown operator %q", field, name)
		}
		arg := ops[name]
		if op == types.OpIn || op == types.OpNotIn {
			if !isList(arg) {
				return nil, types.NewRequestFormatError("where", "field %q: %s expects an array", field, name)
			}
		}
		out = append(out, types.Condition{Field: field, Op: op, Value: arg})
	}
	return out, nil
}

func isList(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case types.JsonObject:
		return m, true
	}
	return nil, false
}

// ParseSort reads "field:direction". Quote characters are stripped first;
// a missing direction means ascending. Empty input yields nil.
func ParseSort(sortBy string) (*types.Sort, error) {
	s := strings.TrimSpace(strings.NewReplacer("'", "", `"`, "").Replace(sortBy))
	if s == "" {
		return nil, nil
	}
	field, dir, _ := strings.Cut(s, ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, types.NewRequestFormatError("sortBy", "missing field in %q", sortBy)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return &types.Sort{Field: field, Direction: types.Asc}, nil
	case "desc":
		return &types.Sort{Field: field, Direction: types.Desc}, nil
	default:
		return nil, types.NewRequestFormatError("sortBy", "unknown direction %q", dir)
	}
}

// ParsePage returns nil unless params carries a page. The page and limit
// may be strings or numbers; limit falls back to defaultSize.
func ParsePage(params types.JsonObject, defaultSize int) (*types.PageRequest, error) {
	raw, ok := params["page"]
	if !ok || raw == nil || raw == "" {
		return nil, nil
	}
	page, err := cast.ToIntE(raw)
	if err != nil {
		return nil, &types.RequestFormatError{Field: "page", Err: err}
	}
	limit := defaultSize
	if rawLimit, ok := params["limit"]; ok && rawLimit != nil && rawLimit != "" {
		if limit, err = cast.ToIntE(rawLimit); err != nil {
			return nil, &types.RequestFormatError{Field: "limit", Err: err}
		}
		if limit < 1 {
			limit = defaultSize
		}
	}
	return types.NewPageRequest(page, limit), nil
}
