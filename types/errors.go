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
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrRequestFormat = errors.New("malformed request")
	ErrCapability    = errors.New("operation not supported")
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrStore         = errors.New("store failure")
)

// RequestFormatError reports a filter, sort, page, id or body the caller
// got wrong.
type RequestFormatError struct {
	Field string
	Err   error
}

func (e *RequestFormatError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *RequestFormatError) Unwrap() error { return e.Err }

func (e *RequestFormatError) Is(target error) bool { return target == ErrRequestFormat }

// NewRequestFormatError builds a RequestFormatError from a format string.
func NewRequestFormatError(field, format string, args ...interface{}) *RequestFormatError {
	return &RequestFormatError{Field: field, Err: fmt.Errorf(format, args...)}
}

// CapabilityError reports an operation the table does not support.
type CapabilityError struct {
	Table     string
	Operation string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s is not supported on table %q: no visible column", e.Operation, e.Table)
}

func (e *CapabilityError) Is(target error) bool { return target == ErrCapability }

// NotFoundError reports a lookup or mutation that matched no record.
type NotFoundError struct {
	Table string
	ID    interface{}
	Err   error
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %v not found", e.Table, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Table)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateKeyError reports a unique constraint violation.
type DuplicateKeyError struct {
	Table string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s: %v", e.Table, e.Err)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// StoreError carries any other store failure. Its message is the store's.
type StoreError struct {
	Table string
	Op    string
	Err   error
}

func (e *StoreError) Error() string { return e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }
