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
	"database/sql"
	"errors"

	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
)

// Classify maps an error returned by a repository, or a raw store error, to
// NOT_FOUND, DUPLICATE_KEY or OTHER.
func Classify(err error) types.ErrorKind {
	switch {
	case err == nil:
		return types.KindOther
	case errors.Is(err, types.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return types.KindNotFound
	case errors.Is(err, types.ErrDuplicateKey), database.IsDuplicateKey(err):
		return types.KindDuplicateKey
	default:
		return types.KindOther
	}
}

// classify wraps a store error into the typed error callers match on. Errors
// that are already typed pass through.
func classify(table, op string, id interface{}, err error) error {
	if err == nil {
		return nil
	}
	var (
		rf *types.RequestFormatError
		ce *types.CapabilityError
		nf *types.NotFoundError
		dk *types.DuplicateKeyError
		se *types.StoreError
	)
	if errors.As(err, &rf) || errors.As(err, &ce) || errors.As(err, &nf) || errors.As(err, &dk) || errors.As(err, &se) {
		return err
	}
	switch Classify(err) {
	case types.KindNotFound:
		return &types.NotFoundError{Table: table, ID: id, Err: err}
	case types.KindDuplicateKey:
		return &types.DuplicateKeyError{Table: table, Err: err}
	default:
		return &types.StoreError{Table: table, Op: op, Err: err}
	}
}
