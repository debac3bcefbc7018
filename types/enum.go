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

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// ErrorKind is the class a store failure falls into.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotFound
	KindDuplicateKey
)

var errorKindNames = [...]string{"OTHER", "NOT_FOUND", "DUPLICATE_KEY"}

var errorKindDescs = [...]string{
	"unclassified store failure",
	"no record matched the where clause",
	"unique constraint violation",
}

var _ BaseEnum = KindOther

func (k ErrorKind) IsValid() bool {
	return k >= KindOther && k <= KindDuplicateKey
}

func (k ErrorKind) Number() int {
	if !k.IsValid() {
		return IllegalValue
	}
	return int(k)
}

func (k ErrorKind) String() string {
	return k.Name()
}

func (k ErrorKind) Name() string {
	if !k.IsValid() {
		return IllegalName
	}
	return errorKindNames[k]
}

func (k ErrorKind) Desc() string {
	if !k.IsValid() {
		return IllegalDesc
	}
	return errorKindDescs[k]
}
