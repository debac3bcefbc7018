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

package falcon

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/models"
	"github.com/tomoncle/falcon/repository"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newRepo(t *testing.T) repository.Repository {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.CreateTables(ctx, db, true, database.RegisteredModelInstances()...))
	catalog, err := database.NewRegisteredCatalog(db)
	require.NoError(t, err)
	return repository.NewRepository(db, catalog)
}

func TestService(t *testing.T) {
	users, err := NewServiceWithRepository[models.User](newRepo(t))
	require.NoError(t, err)
	assert.Equal(t, "users", users.Table())
	ctx := context.Background()

	ann, err := users.Create(ctx, types.JsonObject{"firstName": "Ann", "lastName": "A", "email": "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "user", ann.Role)

	got, err := users.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.Email, got.Email)

	page, err := users.Find(ctx, types.FindPayload{Query: types.JsonObject{"page": 1}})
	require.NoError(t, err)
	require.NotNil(t, page.PageInfo)
	assert.Equal(t, 1, page.TotalDocs)
	assert.Len(t, page.Docs, 1)

	_, err = users.SoftDelete(ctx, ann.ID)
	require.NoError(t, err)
	_, err = users.Get(ctx, ann.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = users.Restore(ctx, ann.ID)
	require.NoError(t, err)
	updated, err := users.Update(ctx, types.UpdatePayload{ID: ann.ID, Data: types.JsonObject{"role": "admin"}})
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)

	deleted, err := users.Delete(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, deleted.ID)
}

type unregistered struct {
	ID int64 `bun:"id,pk"`
}

func TestService_Unbound(t *testing.T) {
	_, err := NewServiceWithRepository[unregistered](newRepo(t))
	assert.ErrorIs(t, err, database.ErrUnknownTable)
}

func TestService_BindsAfterInitDB(t *testing.T) {
	ctx := context.Background()
	demos := NewService[models.Demo]()

	_, err := demos.Get(ctx, 1)
	assert.EqualError(t, err, "database not initialized")
	assert.Empty(t, demos.Table())

	cfg := database.Config{
		ConnectionConfig: *database.DefaultConnectionConfig(),
		SchemaConfig:     database.SchemaConfig{CreateTablesOnStartup: true},
	}
	cfg.ConnectionConfig.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.HealthCheckInterval = 0
	_, err = database.InitDB(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	SetRepositoryOptions(repository.WithDefaultPageSize(2))
	t.Cleanup(func() { SetRepositoryOptions() })

	assert.Equal(t, "demos", demos.Table())
	_, err = demos.BulkCreate(ctx,
		types.JsonObject{"title": "a"}, types.JsonObject{"title": "b"}, types.JsonObject{"title": "c"})
	require.NoError(t, err)

	page, err := demos.Find(ctx, types.FindPayload{Query: types.JsonObject{"page": 1}})
	require.NoError(t, err)
	require.NotNil(t, page.PageInfo)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 3, page.TotalDocs)
	assert.Len(t, page.Docs, 2)
}
