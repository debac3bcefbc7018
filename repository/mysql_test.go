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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
)

func setupMySQLMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, mysqldialect.New())
	t.Cleanup(func() { _ = db.Close() })

	catalog, err := database.NewCatalog(db, testModels...)
	require.NoError(t, err)
	return NewRepository(db, catalog), mock
}

func TestMySQL_CreateDuplicateKey(t *testing.T) {
	repo, mock := setupMySQLMock(t)
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann@example.com' for key 'email'"})

	_, err := repo.Create(context.Background(), "users", types.CreatePayload{Body: types.JsonObject{
		"firstName": "Ann", "lastName": "A", "email": "ann@example.com",
	}})
	var dup *types.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "users", dup.Table)
	assert.Equal(t, types.KindDuplicateKey, Classify(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_BulkCreateSkipsDuplicatesOnly(t *testing.T) {
	repo, mock := setupMySQLMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `demos`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `demos`").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO `demos`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'title'"})
	mock.ExpectCommit()

	result, err := repo.BulkCreate(context.Background(), "demos", []types.JsonObject{
		{"title": "a"}, {"title": "b"}, {"title": "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, &types.BulkResult{Inserted: 2, Skipped: 1}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_BulkCreateNotNullFails(t *testing.T) {
	repo, mock := setupMySQLMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `demos`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `demos`").
		WillReturnError(&mysql.MySQLError{Number: 1048, Message: "Column 'title' cannot be null"})
	mock.ExpectRollback()

	result, err := repo.BulkCreate(context.Background(), "demos", []types.JsonObject{
		{"title": "a"}, {"description": "no title"},
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, types.ErrStore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_UpdateMiss(t *testing.T) {
	repo, mock := setupMySQLMock(t)
	mock.ExpectExec("UPDATE `demos`.*WHERE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), "demos", types.UpdatePayload{
		ID:   7,
		Data: types.JsonObject{"title": "renamed"},
	})
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.EqualValues(t, 7, nf.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_StoreErrorPassesMessage(t *testing.T) {
	repo, mock := setupMySQLMock(t)
	mock.ExpectQuery("SELECT .* FROM `demos`").
		WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

	_, err := repo.Find(context.Background(), "demos", types.FindPayload{})
	assert.ErrorIs(t, err, types.ErrStore)
	assert.Equal(t, "Error 1205: Lock wait timeout exceeded", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}
