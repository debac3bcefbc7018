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
	"reflect"
	"sort"
	"sync"
)

var defaultRegistry = NewModelRegistry()

// SQLModel is a bun model known to the catalog. Instance returns a struct
// pointer; tables are created in ascending Priority so that referenced
// tables exist first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry keeps one entry per model type.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[reflect.Type]SQLModel
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[reflect.Type]SQLModel)}
}

// Register adds model, replacing an earlier registration of the same type.
func (r *ModelRegistry) Register(model SQLModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[reflect.TypeOf(model.Instance())] = model
}

// Models returns the registered models by priority, then by type name.
func (r *ModelRegistry) Models() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SQLModel, 0, len(r.models))
	for _, m := range r.models {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		if pi, pj := result[i].Priority(), result[j].Priority(); pi != pj {
			return pi < pj
		}
		return reflect.TypeOf(result[i].Instance()).String() < reflect.TypeOf(result[j].Instance()).String()
	})
	return result
}

// Instances returns Instance() of every model in Models order.
func (r *ModelRegistry) Instances() []interface{} {
	models := r.Models()
	out := make([]interface{}, len(models))
	for i, m := range models {
		out[i] = m.Instance()
	}
	return out
}

type modelAdapter struct {
	instance interface{}
	priority int
}

func (a *modelAdapter) Instance() interface{} { return a.instance }
func (a *modelAdapter) Priority() int         { return a.priority }

// NewModelAdapter wraps a struct pointer and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &modelAdapter{instance: instance, priority: priority}
}

// RegisterModel adds instance to the default registry.
func RegisterModel(instance interface{}, priority int) {
	defaultRegistry.Register(NewModelAdapter(instance, priority))
}

func RegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisteredModelInstances() []interface{} {
	return defaultRegistry.Instances()
}
