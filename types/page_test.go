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

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageInfo_Invariants(t *testing.T) {
	for _, total := range []int{0, 1, 9, 10, 11, 25, 100} {
		for _, limit := range []int{1, 3, 10} {
			for page := 1; page <= 5; page++ {
				info := NewPageInfo(NewPageRequest(page, limit), total)
				name := fmt.Sprintf("total=%d limit=%d page=%d", total, limit, page)

				assert.Equal(t, int(math.Ceil(float64(total)/float64(limit))), info.TotalPages, name)
				assert.Equal(t, total > page*limit, info.HasNextPage, name)
				assert.Equal(t, page > 1, info.HasPrevPage, name)
				if info.HasNextPage {
					require.NotNil(t, info.NextPage, name)
					assert.Equal(t, page+1, *info.NextPage, name)
				} else {
					assert.Nil(t, info.NextPage, name)
				}
				if info.HasPrevPage {
					require.NotNil(t, info.PrevPage, name)
					assert.Equal(t, page-1, *info.PrevPage, name)
				} else {
					assert.Nil(t, info.PrevPage, name)
				}
			}
		}
	}
}

func TestPageRequest_Defaults(t *testing.T) {
	p := NewPageRequest(-2, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewPageRequest(4, 25)
	assert.Equal(t, 75, p.GetOffset())
}

func TestResult_MarshalJSON(t *testing.T) {
	docs := []JsonObject{{"id": 1}}

	b, err := json.Marshal(&Result{Docs: docs})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(b))

	b, err = json.Marshal(&Result{Docs: docs, Page: NewPageInfo(NewPageRequest(1, 10), 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"docs": [{"id":1}],
		"totalDocs": 1, "limit": 10, "page": 1, "totalPages": 1,
		"hasNextPage": false, "nextPage": null,
		"hasPrevPage": false, "prevPage": null
	}`, string(b))
}

func TestJsonObject_ValueScan(t *testing.T) {
	v, err := JsonObject{"theme": "dark"}.Value()
	require.NoError(t, err)

	var fromString JsonObject
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, "dark", fromString["theme"])

	var fromBytes JsonObject
	require.NoError(t, fromBytes.Scan([]byte(`{"n":1}`)))
	assert.Equal(t, float64(1), fromBytes["n"])

	var empty JsonObject
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	assert.Error(t, empty.Scan(42))
}

func TestErrors_Is(t *testing.T) {
	cause := errors.New("boom")
	assert.ErrorIs(t, &RequestFormatError{Field: "where", Err: cause}, ErrRequestFormat)
	assert.ErrorIs(t, &RequestFormatError{Field: "where", Err: cause}, cause)
	assert.ErrorIs(t, &CapabilityError{Table: "t", Operation: "softDelete"}, ErrCapability)
	assert.ErrorIs(t, &NotFoundError{Table: "t", ID: 1}, ErrNotFound)
	assert.ErrorIs(t, &DuplicateKeyError{Table: "t", Err: cause}, ErrDuplicateKey)
	assert.ErrorIs(t, &StoreError{Table: "t", Err: cause}, ErrStore)
	assert.Equal(t, "boom", (&StoreError{Err: cause}).Error())
	assert.Equal(t, "t 1 not found", (&NotFoundError{Table: "t", ID: 1}).Error())
}

func TestErrorKind_Enum(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", KindNotFound.String())
	assert.Equal(t, "DUPLICATE_KEY", KindDuplicateKey.Name())
	assert.Equal(t, 0, KindOther.Number())
	assert.False(t, ErrorKind(9).IsValid())
	assert.Equal(t, IllegalName, ErrorKind(9).Name())
	assert.Equal(t, IllegalValue, ErrorKind(-1).Number())
}
