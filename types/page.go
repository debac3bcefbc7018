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
	"github.com/goccy/go-json"
)

// DefaultPageSize is used when a page is requested without a limit.
const DefaultPageSize = 10

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	page     int
	pageSize int
}

// NewPageRequest constructs a PageRequest. Out of range values are clamped
// lazily by the getters.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize}
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

// GetOffset is the number of rows to skip.
func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// PageInfo carries the navigation metadata of one page.
type PageInfo struct {
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	NextPage    *int `json:"nextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	PrevPage    *int `json:"prevPage"`
}

// NewPageInfo computes the page metadata for total matching rows.
func NewPageInfo(req *PageRequest, total int) *PageInfo {
	page, limit := req.GetPage(), req.GetPageSize()
	info := &PageInfo{
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  (total + limit - 1) / limit,
		HasNextPage: total > page*limit,
		HasPrevPage: page > 1,
	}
	if info.HasNextPage {
		next := page + 1
		info.NextPage = &next
	}
	if info.HasPrevPage {
		prev := page - 1
		info.PrevPage = &prev
	}
	return info
}

// Pagination holds typed page items along with the page metadata.
type Pagination[T any] struct {
	*PageInfo
	Docs []*T `json:"docs"`
}

// Result is what a find returns: the docs and, only when a page was
// requested, the page metadata.
type Result struct {
	Docs interface{}
	Page *PageInfo
}

// Paginated reports whether the result carries page metadata.
func (r *Result) Paginated() bool {
	return r.Page != nil
}

// MarshalJSON renders a bare array when unpaginated and the
// {docs, totalDocs, ...} envelope otherwise.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Page == nil {
		return json.Marshal(r.Docs)
	}
	return json.Marshal(struct {
		Docs interface{} `json:"docs"`
		*PageInfo
	}{r.Docs, r.Page})
}
