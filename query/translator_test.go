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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/falcon/types"
)

type fakeCatalog map[string]bool

func (c fakeCatalog) HasVisibilityField(table string) bool { return c[table] }

// ColumnName knows the Go spelling of the visibility column only.
func (c fakeCatalog) ColumnName(table, field string) (string, bool) {
	if field == "Visible" || field == "visible" {
		return "visible", true
	}
	return "", false
}

func TestParseFilter_EmptyInputs(t *testing.T) {
	for _, in := range []interface{}{nil, "", "   ", types.JsonObject{}, map[string]interface{}{}} {
		f, err := ParseFilter(in)
		require.NoError(t, err)
		assert.True(t, f.IsEmpty(), "input %#v", in)
	}
}

func TestParseFilter_MalformedJSON(t *testing.T) {
	_, err := ParseFilter(`{"name": `)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrRequestFormat))

	var rfe *types.RequestFormatError
	require.True(t, errors.As(err, &rfe))
	assert.Equal(t, "where", rfe.Field)
}

func TestParseFilter_UnsupportedType(t *testing.T) {
	_, err := ParseFilter(42)
	assert.ErrorIs(t, err, types.ErrRequestFormat)
}

func TestParseFilter_JSONString(t *testing.T) {
	f, err := ParseFilter(`{"role": "admin", "age": {"gte": 18, "lt": 65}, "deletedAt": null}`)
	require.NoError(t, err)
	assert.Equal(t, []types.Condition{
		{Field: "age", Op: types.OpGte, Value: float64(18)},
		{Field: "age", Op: types.OpLt, Value: float64(65)},
		{Field: "deletedAt", Op: types.OpEquals, Value: nil},
		{Field: "role", Op: types.OpEquals, Value: "admin"},
	}, f.Conditions)
}

func TestParseFilter_Or(t *testing.T) {
	f, err := ParseFilter(types.JsonObject{
		"OR": []interface{}{
			map[string]interface{}{"name": "a"},
			types.JsonObject{"name": map[string]interface{}{"startsWith": "b"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, f.Any, 2)
	assert.Equal(t, types.Condition{Field: "name", Op: types.OpEquals, Value: "a"}, f.Any[0].Conditions[0])
	assert.Equal(t, types.Condition{Field: "name", Op: types.OpStartsWith, Value: "b"}, f.Any[1].Conditions[0])
}

func TestParseFilter_BadOperators(t *testing.T) {
	cases := []interface{}{
		`{"name": {"like": "x"}}`,
		`{"id": {"in": 3}}`,
		`{"id": [1, 2]}`,
		`{"OR": {"id": 1}}`,
		`{"OR": [1]}`,
	}
	for _, in := range cases {
		_, err := ParseFilter(in)
		assert.ErrorIs(t, err, types.ErrRequestFormat, "input %v", in)
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("createdAt:desc")
	require.NoError(t, err)
	assert.Equal(t, &types.Sort{Field: "createdAt", Direction: types.Desc}, s)

	s, err = ParseSort("'name:asc'")
	require.NoError(t, err)
	assert.Equal(t, &types.Sort{Field: "name", Direction: types.Asc}, s)

	s, err = ParseSort(`"name"`)
	require.NoError(t, err)
	assert.Equal(t, &types.Sort{Field: "name", Direction: types.Asc}, s)

	s, err = ParseSort("Name:DESC")
	require.NoError(t, err)
	assert.Equal(t, types.Desc, s.Direction)

	s, err = ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestParseSort_Invalid(t *testing.T) {
	_, err := ParseSort(":desc")
	assert.ErrorIs(t, err, types.ErrRequestFormat)

	_, err = ParseSort("name:sideways")
	assert.ErrorIs(t, err, types.ErrRequestFormat)

	// only the first colon splits
	_, err = ParseSort("name:asc:desc")
	assert.ErrorIs(t, err, types.ErrRequestFormat)
}

func TestParsePage(t *testing.T) {
	p, err := ParsePage(types.JsonObject{"limit": "5"}, 10)
	require.NoError(t, err)
	assert.Nil(t, p, "no page means no pagination")

	p, err = ParsePage(types.JsonObject{"page": "3"}, 10)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 3, p.GetPage())
	assert.Equal(t, 10, p.GetPageSize())
	assert.Equal(t, 20, p.GetOffset())

	p, err = ParsePage(types.JsonObject{"page": float64(2), "limit": "25"}, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, p.GetOffset())

	p, err = ParsePage(types.JsonObject{"page": "0", "limit": "0"}, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, 7, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())
}

func TestParsePage_Invalid(t *testing.T) {
	_, err := ParsePage(types.JsonObject{"page": "abc"}, 10)
	assert.ErrorIs(t, err, types.ErrRequestFormat)

	_, err = ParsePage(types.JsonObject{"page": "1", "limit": "ten"}, 10)
	assert.ErrorIs(t, err, types.ErrRequestFormat)
}

func TestTranslator_VisibilityInjectedLast(t *testing.T) {
	tr := NewTranslator(fakeCatalog{"users": true})

	q, err := tr.Find("users", types.FindPayload{
		Where: `{"visible": false, "name": "bob"}`,
	})
	require.NoError(t, err)
	require.Len(t, q.Filter.Conditions, 2)
	assert.Equal(t, "name", q.Filter.Conditions[0].Field)
	assert.Equal(t, types.Condition{Field: "visible", Op: types.OpEquals, Value: true}, q.Filter.Conditions[1])
	assert.Nil(t, q.Page)
}

func TestTranslator_VisibilityAnySpelling(t *testing.T) {
	tr := NewTranslator(fakeCatalog{"users": true})

	q, err := tr.FindOne("users", types.FindOnePayload{Where: types.JsonObject{"Visible": false}})
	require.NoError(t, err)
	assert.Equal(t, []types.Condition{{Field: "visible", Op: types.OpEquals, Value: true}}, q.Filter.Conditions)
}

func TestTranslator_NoVisibilityColumn(t *testing.T) {
	tr := NewTranslator(fakeCatalog{"sessions": false})

	q, err := tr.FindOne("sessions", types.FindOnePayload{Where: types.JsonObject{"visible": false}})
	require.NoError(t, err)
	assert.Equal(t, []types.Condition{{Field: "visible", Op: types.OpEquals, Value: false}}, q.Filter.Conditions)

	q, err = tr.FindOne("unknown", types.FindOnePayload{})
	require.NoError(t, err)
	assert.True(t, q.Filter.IsEmpty())
}

func TestTranslator_MatchAndPageSize(t *testing.T) {
	tr := NewTranslator(fakeCatalog{"users": true}, WithDefaultPageSize(3))

	f, err := tr.Match("users", nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Condition{{Field: "visible", Op: types.OpEquals, Value: true}}, f.Conditions)

	q, err := tr.Find("users", types.FindPayload{Query: types.JsonObject{"page": "2"}, SortBy: "name:desc"})
	require.NoError(t, err)
	require.NotNil(t, q.Page)
	assert.Equal(t, 3, q.Page.GetPageSize())
	assert.Equal(t, &types.Sort{Field: "name", Direction: types.Desc}, q.Sort)
}
