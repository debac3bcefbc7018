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

// Package models declares the tables served by the repository. Importing it
// registers every model with the database package.
package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/falcon/database"
	"github.com/tomoncle/falcon/types"
	"github.com/uptrace/bun"
)

func init() {
	database.RegisterModel((*User)(nil), 10)
	database.RegisterModel((*Demo)(nil), 10)
	database.RegisterModel((*Session)(nil), 20)
}

// Timestamps are filled by the store on insert.
type Timestamps struct {
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:user"`

	ID        int64            `bun:"id,pk,autoincrement" json:"id"`
	FirstName string           `bun:"first_name,notnull" json:"firstName"`
	LastName  string           `bun:"last_name,notnull" json:"lastName"`
	Phone     *string          `bun:"phone" json:"phone"`
	Email     string           `bun:"email,notnull,unique" json:"email"`
	Role      string           `bun:"role,notnull,nullzero,default:'user'" json:"role"`
	Profile   types.JsonObject `bun:"profile,type:text" json:"profile,omitempty"`
	Visible   bool             `bun:"visible,notnull,nullzero,default:true" json:"visible"`
	Timestamps

	Sessions []*Session `bun:"rel:has-many,join:id=user_id" json:"sessions,omitempty"`
}

type Demo struct {
	bun.BaseModel `bun:"table:demos,alias:demo"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Title       string `bun:"title,notnull" json:"title"`
	Description string `bun:"description" json:"description"`
	Visible     bool   `bun:"visible,notnull,nullzero,default:true" json:"visible"`
	Timestamps
}

// Session has no visible column, so it only supports hard delete.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:session"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    int64     `bun:"user_id,notnull" json:"userId"`
	Token     string    `bun:"token,notnull,unique" json:"token"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expiresAt"`
	Timestamps

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Session)(nil)

func (s *Session) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
