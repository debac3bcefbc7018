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
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
	"gopkg.in/yaml.v3"
)

// VisibilityColumn is the boolean column that marks a record as soft deleted
// when false. Tables without it do not support soft delete.
const VisibilityColumn = "visible"

type catalogEntry struct {
	table  *schema.Table
	fields map[string]*schema.Field
}

// Catalog maps table names to bun table metadata. It is built once from the
// registered models and is read-only afterwards.
type Catalog struct {
	entries map[string]*catalogEntry
	byType  map[reflect.Type]*catalogEntry
}

// NewCatalog builds a catalog for models, which must be struct pointers.
// Each table is reachable by its SQL name and by its model name.
func NewCatalog(db bun.IDB, models ...interface{}) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]*catalogEntry),
		byType:  make(map[reflect.Type]*catalogEntry),
	}
	for _, model := range models {
		typ := reflect.TypeOf(model)
		for typ != nil && typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ == nil || typ.Kind() != reflect.Struct {
			return nil, fmt.Errorf("catalog: model %T is not a struct", model)
		}
		table := db.Dialect().Tables().Get(typ)
		entry := &catalogEntry{table: table, fields: fieldIndex(table)}
		for _, name := range []string{table.Name, table.ModelName} {
			if prev, ok := c.entries[name]; ok && prev.table != table {
				return nil, fmt.Errorf("catalog: name %q used by %s and %s", name, prev.table.TypeName, table.TypeName)
			}
			c.entries[name] = entry
		}
		c.byType[typ] = entry
	}
	return c, nil
}

// NewRegisteredCatalog builds a catalog from the default model registry.
func NewRegisteredCatalog(db bun.IDB) (*Catalog, error) {
	return NewCatalog(db, RegisteredModelInstances()...)
}

// fieldIndex resolves column name, json name and Go name to a field. Column
// names win over the other two.
func fieldIndex(table *schema.Table) map[string]*schema.Field {
	idx := make(map[string]*schema.Field, len(table.Fields)*3)
	for _, f := range table.Fields {
		idx[f.GoName] = f
		if name := jsonName(f); name != "" {
			idx[name] = f
		}
	}
	for _, f := range table.Fields {
		idx[f.Name] = f
	}
	return idx
}

func jsonName(f *schema.Field) string {
	name, _, _ := strings.Cut(f.StructField.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func (c *Catalog) Lookup(name string) (*schema.Table, bool) {
	entry, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return entry.table, true
}

// MustLookup is Lookup returning ErrUnknownTable.
func (c *Catalog) MustLookup(name string) (*schema.Table, error) {
	if t, ok := c.Lookup(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// HasVisibilityField reports whether table supports soft delete. Unknown
// tables report false.
func (c *Catalog) HasVisibilityField(table string) bool {
	entry, ok := c.entries[table]
	if !ok {
		return false
	}
	f, ok := entry.table.FieldMap[VisibilityColumn]
	return ok && f.IndirectType.Kind() == reflect.Bool
}

// Field resolves name against table by column name, json name or Go name.
func (c *Catalog) Field(table, name string) (*schema.Field, bool) {
	entry, ok := c.entries[table]
	if !ok {
		return nil, false
	}
	f, ok := entry.fields[name]
	return f, ok
}

// ColumnName returns the column a Go, json or column name of table refers to.
func (c *Catalog) ColumnName(table, name string) (string, bool) {
	f, ok := c.Field(table, name)
	if !ok {
		return "", false
	}
	return f.Name, true
}

// Relation resolves name to a relation of table, ignoring case.
func (c *Catalog) Relation(table, name string) (*schema.Relation, bool) {
	entry, ok := c.entries[table]
	if !ok {
		return nil, false
	}
	if rel, ok := entry.table.Relations[name]; ok {
		return rel, true
	}
	for key, rel := range entry.table.Relations {
		if strings.EqualFold(key, name) || strings.EqualFold(jsonName(rel.Field), name) {
			return rel, true
		}
	}
	return nil, false
}

// NameOf returns the SQL table name of a model type.
func (c *Catalog) NameOf(typ reflect.Type) (string, bool) {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	entry, ok := c.byType[typ]
	if !ok {
		return "", false
	}
	return entry.table.Name, true
}

// Tables returns the SQL table names, sorted.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.byType))
	for _, entry := range c.byType {
		names = append(names, entry.table.Name)
	}
	sort.Strings(names)
	return names
}

type columnDoc struct {
	Name     string `yaml:"name"`
	JSON     string `yaml:"json,omitempty"`
	Type     string `yaml:"type"`
	Primary  bool   `yaml:"primary,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

type relationDoc struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Table string `yaml:"table"`
}

type tableDoc struct {
	Name       string        `yaml:"name"`
	Model      string        `yaml:"model"`
	SoftDelete bool          `yaml:"soft_delete"`
	Columns    []columnDoc   `yaml:"columns"`
	Relations  []relationDoc `yaml:"relations,omitempty"`
}

var relationKinds = map[int]string{
	schema.HasOneRelation:     "has-one",
	schema.BelongsToRelation:  "belongs-to",
	schema.HasManyRelation:    "has-many",
	schema.ManyToManyRelation: "many-to-many",
}

// Export writes the catalog as YAML.
func (c *Catalog) Export(w io.Writer) error {
	docs := make([]tableDoc, 0, len(c.byType))
	for _, name := range c.Tables() {
		table := c.entries[name].table
		doc := tableDoc{
			Name:       table.Name,
			Model:      table.ModelName,
			SoftDelete: c.HasVisibilityField(table.Name),
		}
		for _, f := range table.Fields {
			doc.Columns = append(doc.Columns, columnDoc{
				Name:     f.Name,
				JSON:     jsonName(f),
				Type:     f.CreateTableSQLType,
				Primary:  f.IsPK,
				Nullable: !f.NotNull && !f.IsPK,
			})
		}
		relNames := make([]string, 0, len(table.Relations))
		for key := range table.Relations {
			relNames = append(relNames, key)
		}
		sort.Strings(relNames)
		for _, key := range relNames {
			rel := table.Relations[key]
			doc.Relations = append(doc.Relations, relationDoc{
				Name:  key,
				Kind:  relationKinds[rel.Type],
				Table: rel.JoinTable.Name,
			})
		}
		docs = append(docs, doc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]interface{}{"tables": docs}); err != nil {
		return err
	}
	return enc.Close()
}
