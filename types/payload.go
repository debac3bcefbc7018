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

// FindPayload is a list request as a request layer decodes it.
//
// Query holds the raw query string parameters; pagination is requested iff
// it carries "page". Where is either a JsonObject or a JSON encoded string.
// SortBy has the form "field:direction".
type FindPayload struct {
	Query   JsonObject  `json:"query,omitempty"`
	SortBy  string      `json:"sortBy,omitempty"`
	Where   interface{} `json:"where,omitempty"`
	Select  []string    `json:"select,omitempty"`
	Include []string    `json:"include,omitempty"`
}

// FindOnePayload selects a single record.
type FindOnePayload struct {
	Where   interface{} `json:"where,omitempty"`
	Select  []string    `json:"select,omitempty"`
	Include []string    `json:"include,omitempty"`
}

// CreatePayload is a record body plus the relations to load on the result.
type CreatePayload struct {
	Body    JsonObject `json:"body"`
	Include []string   `json:"include,omitempty"`
}

// UpdatePayload patches the record with ID. Where narrows the match further.
type UpdatePayload struct {
	ID      interface{} `json:"id"`
	Data    JsonObject  `json:"data"`
	Where   interface{} `json:"where,omitempty"`
	Select  []string    `json:"select,omitempty"`
	Include []string    `json:"include,omitempty"`
}

// BulkResult reports how many bodies were stored and how many were dropped
// on a unique key collision.
type BulkResult struct {
	Inserted int `json:"count"`
	Skipped  int `json:"skipped"`
}
