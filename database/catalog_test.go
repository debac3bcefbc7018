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

package database

import (
	"bytes"
	"context"
	"database/sql"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"gopkg.in/yaml.v3"
)

type author struct {
	bun.BaseModel `bun:"table:authors,alias:author"`

	ID      int64   `bun:"id,pk,autoincrement" json:"id"`
	Name    string  `bun:"full_name,notnull" json:"name"`
	Visible bool    `bun:"visible,notnull,nullzero,default:true" json:"visible"`
	Books   []*book `bun:"rel:has-many,join:id=author_id" json:"books,omitempty"`
}

type book struct {
	bun.BaseModel `bun:"table:books,alias:book"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id"`
	AuthorID int64   `bun:"author_id" json:"authorId"`
	Title    string  `bun:"title,unique" json:"title"`
	Author   *author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestCatalog(t *testing.T) (*bun.DB, *Catalog) {
	db := newTestDB(t)
	c, err := NewCatalog(db, (*author)(nil), (*book)(nil))
	require.NoError(t, err)
	return db, c
}

func TestCatalog_Lookup(t *testing.T) {
	_, c := newTestCatalog(t)

	byName, ok := c.Lookup("authors")
	require.True(t, ok)
	byModel, ok := c.Lookup("author")
	require.True(t, ok)
	assert.Same(t, byName, byModel)

	_, ok = c.Lookup("ghosts")
	assert.False(t, ok)
	_, err := c.MustLookup("ghosts")
	assert.ErrorIs(t, err, ErrUnknownTable)

	assert.Equal(t, []string{"authors", "books"}, c.Tables())
}

func TestCatalog_HasVisibilityField(t *testing.T) {
	_, c := newTestCatalog(t)
	assert.True(t, c.HasVisibilityField("authors"))
	assert.True(t, c.HasVisibilityField("author"))
	assert.False(t, c.HasVisibilityField("books"))
	assert.False(t, c.HasVisibilityField("ghosts"))
}

func TestCatalog_FieldAndRelation(t *testing.T) {
	_, c := newTestCatalog(t)

	for _, name := range []string{"full_name", "name", "Name"} {
		f, ok := c.Field("authors", name)
		require.True(t, ok, name)
		assert.Equal(t, "full_name", f.Name)
	}
	_, ok := c.Field("authors", "missing")
	assert.False(t, ok)

	rel, ok := c.Relation("authors", "books")
	require.True(t, ok)
	assert.Equal(t, "Books", rel.Field.GoName)
	_, ok = c.Relation("books", "Author")
	assert.True(t, ok)
	_, ok = c.Relation("books", "publisher")
	assert.False(t, ok)

	name, ok := c.NameOf(reflect.TypeOf(&book{}))
	require.True(t, ok)
	assert.Equal(t, "books", name)
}

func TestNewCatalog_RejectsNonStruct(t *testing.T) {
	_, err := NewCatalog(newTestDB(t), 42)
	assert.Error(t, err)
}

func TestCatalog_Export(t *testing.T) {
	_, c := newTestCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, c.Export(&buf))

	var doc struct {
		Tables []tableDoc `yaml:"tables"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "authors", doc.Tables[0].Name)
	assert.True(t, doc.Tables[0].SoftDelete)
	assert.False(t, doc.Tables[1].SoftDelete)
	assert.Equal(t, "has-many", doc.Tables[0].Relations[0].Kind)
	assert.Equal(t, "books", doc.Tables[0].Relations[0].Table)
}

func TestCreateTables(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, CreateTables(ctx, db, true, (*author)(nil), (*book)(nil)))
	// idempotent
	require.NoError(t, CreateTables(ctx, db, true, (*author)(nil), (*book)(nil)))

	_, err := db.NewInsert().Model(&author{Name: "Le Guin"}).Exec(ctx)
	require.NoError(t, err)
	var got author
	require.NoError(t, db.NewSelect().Model(&got).Limit(1).Scan(ctx))
	assert.True(t, got.Visible)

	require.NoError(t, DropTables(ctx, db, (*author)(nil), (*book)(nil)))
	_, err = db.NewSelect().Model((*author)(nil)).Count(ctx)
	_, kind := IsSqlError(err)
	assert.Equal(t, NoTableErr, kind)
}

func TestModelRegistry(t *testing.T) {
	r := NewModelRegistry()
	r.Register(NewModelAdapter((*book)(nil), 20))
	r.Register(NewModelAdapter((*author)(nil), 10))
	r.Register(NewModelAdapter((*author)(nil), 10))

	instances := r.Instances()
	require.Len(t, instances, 2)
	assert.IsType(t, (*author)(nil), instances[0])
	assert.IsType(t, (*book)(nil), instances[1])
}
