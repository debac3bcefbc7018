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
	"fmt"
	"reflect"
	"sync"

	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/repository"
	"github.com/tomoncle/falcon/types"
)

// Service is the typed view of one table. T is a registered model struct.
type Service[T any] interface {
	// Table returns the SQL name of T's table, or "" while the service
	// cannot bind.
	Table() string

	// Get returns the visible record with id.
	Get(ctx context.Context, id interface{}) (*T, error)

	// FindOne returns the first visible record matching payload.
	FindOne(ctx context.Context, payload types.FindOnePayload) (*T, error)

	// Find returns the visible records matching payload. PageInfo is nil
	// unless a page was requested.
	Find(ctx context.Context, payload types.FindPayload) (*types.Pagination[T], error)

	Create(ctx context.Context, body types.JsonObject, include ...string) (*T, error)

	BulkCreate(ctx context.Context, bodies ...types.JsonObject) (*types.BulkResult, error)

	Update(ctx context.Context, payload types.UpdatePayload) (*T, error)

	SoftDelete(ctx context.Context, id interface{}) (*T, error)

	Restore(ctx context.Context, id interface{}) (*T, error)

	// Delete removes the record with id physically.
	Delete(ctx context.Context, id interface{}) (*T, error)
}

var (
	repoOptsMu sync.RWMutex
	repoOpts   []repository.Option
)

// SetRepositoryOptions sets the options NewService applies when it builds
// its repository over the global database. Services already bound keep
// theirs. Without a call, failed operations are logged and the default page
// size applies.
func SetRepositoryOptions(opts ...repository.Option) {
	repoOptsMu.Lock()
	defer repoOptsMu.Unlock()
	repoOpts = append([]repository.Option(nil), opts...)
}

func repositoryOptions() []repository.Option {
	repoOptsMu.RLock()
	defer repoOptsMu.RUnlock()
	if repoOpts == nil {
		return []repository.Option{repository.WithErrorReporter(repository.NewLogReporter(database.GetLogger()))}
	}
	return repoOpts
}

type baseServiceImpl[T any] struct {
	mu    sync.Mutex
	repo  repository.Repository
	table string
}

// NewService returns a Service over the global database and catalog. The
// repository is created on first use after database.InitDB, so the service
// may be declared before it runs.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithRepository returns a Service over repo.
func NewServiceWithRepository[T any](repo repository.Repository) (Service[T], error) {
	s := &baseServiceImpl[T]{}
	if err := s.bind(repo); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *baseServiceImpl[T]) bind(repo repository.Repository) error {
	if repo == nil || repo.Catalog() == nil {
		return fmt.Errorf("database not initialized")
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	name, ok := repo.Catalog().NameOf(typ)
	if !ok {
		return fmt.Errorf("%w: model %s is not registered", database.ErrUnknownTable, typ)
	}
	s.repo, s.table = repo, name
	return nil
}

// baseRepo binds the service on first use. Only a successful bind sticks.
func (s *baseServiceImpl[T]) baseRepo() (repository.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil {
		return s.repo, nil
	}
	catalog := database.GetCatalog()
	if catalog == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if err := s.bind(repository.NewRepository(database.GetDB(), catalog, repositoryOptions()...)); err != nil {
		return nil, err
	}
	return s.repo, nil
}

func typed[T any](record interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	v, ok := record.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected record type %T", record)
	}
	return v, nil
}

// Table returns "" until the service can bind to a database.
func (s *baseServiceImpl[T]) Table() string {
	if _, err := s.baseRepo(); err != nil {
		return ""
	}
	return s.table
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id interface{}) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	record, err := repo.FindOne(ctx, s.table, types.FindOnePayload{Where: types.JsonObject{"id": id}})
	return typed[T](record, err)
}

func (s *baseServiceImpl[T]) FindOne(ctx context.Context, payload types.FindOnePayload) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.FindOne(ctx, s.table, payload))
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, payload types.FindPayload) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	res, err := repo.Find(ctx, s.table, payload)
	if err != nil {
		return nil, err
	}
	docs, ok := res.Docs.([]*T)
	if !ok {
		return nil, fmt.Errorf("unexpected docs type %T", res.Docs)
	}
	return &types.Pagination[T]{PageInfo: res.Page, Docs: docs}, nil
}

func (s *baseServiceImpl[T]) Create(ctx context.Context, body types.JsonObject, include ...string) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.Create(ctx, s.table, types.CreatePayload{Body: body, Include: include}))
}

func (s *baseServiceImpl[T]) BulkCreate(ctx context.Context, bodies ...types.JsonObject) (*types.BulkResult, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.BulkCreate(ctx, s.table, bodies)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, payload types.UpdatePayload) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.Update(ctx, s.table, payload))
}

func (s *baseServiceImpl[T]) SoftDelete(ctx context.Context, id interface{}) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.SoftDelete(ctx, s.table, id))
}

func (s *baseServiceImpl[T]) Restore(ctx context.Context, id interface{}) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.Restore(ctx, s.table, id))
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id interface{}) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return typed[T](repo.HardDelete(ctx, s.table, id))
}
