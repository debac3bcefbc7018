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
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/uptrace/bun"
)

const commonSeedGroup = "common"

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SeedFile is one SQL file found under the seed directory.
type SeedFile struct {
	Path  string
	Group string // "common" or the environment name
	Order int
}

// SeedResult is the outcome of running one SeedFile.
type SeedResult struct {
	File         string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
}

// Seeder runs the SQL files under <dir>/common and then <dir>/environments/<env>.
// Files run in the order of their numeric prefix ("010_users.sql"), each in
// its own transaction.
type Seeder struct {
	db          bun.IDB
	dir         string
	environment string
	logger      Logger
}

func NewSeeder(db bun.IDB, dir, environment string) *Seeder {
	return &Seeder{db: db, dir: dir, environment: environment, logger: GetLogger()}
}

func (s *Seeder) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Files lists the seed files in execution order. Missing group directories
// are skipped.
func (s *Seeder) Files() ([]SeedFile, error) {
	files, err := collectSeedFiles(filepath.Join(s.dir, commonSeedGroup), commonSeedGroup)
	if err != nil {
		return nil, err
	}
	if s.environment != "" {
		envFiles, err := collectSeedFiles(filepath.Join(s.dir, "environments", s.environment), s.environment)
		if err != nil {
			return nil, err
		}
		files = append(files, envFiles...)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Group != files[j].Group {
			return files[i].Group == commonSeedGroup
		}
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// Run executes every seed file and stops at the first failure.
func (s *Seeder) Run(ctx context.Context) ([]SeedResult, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list seed files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Debug("No seed files found", "dir", s.dir)
		return nil, nil
	}

	results := make([]SeedResult, 0, len(files))
	for _, file := range files {
		result, err := s.runFile(ctx, file)
		if err != nil {
			s.logger.Error("Seed file failed", "file", file.Path, "error", err)
			return results, fmt.Errorf("seed %s: %w", file.Path, err)
		}
		s.logger.Info("Seed file executed",
			"file", result.File,
			"statements", result.Statements,
			"rows_affected", result.RowsAffected,
			"duration", result.Duration,
		)
		results = append(results, result)
	}
	return results, nil
}

func (s *Seeder) runFile(ctx context.Context, file SeedFile) (SeedResult, error) {
	start := time.Now()
	result := SeedResult{File: file.Path}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return result, err
	}
	statements := splitStatements(string(content))
	result.Statements = len(statements)

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
			n, _ := res.RowsAffected()
			result.RowsAffected += n
		}
		return nil
	})
	result.Duration = time.Since(start)
	return result, err
}

func collectSeedFiles(dir, group string) ([]SeedFile, error) {
	var files []SeedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SeedFile{Path: path, Group: group, Order: seedOrder(d.Name())})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

// seedOrder reads the numeric prefix; unprefixed files run last.
func seedOrder(name string) int {
	if m := seedOrderPattern.FindStringSubmatch(name); len(m) > 1 {
		return cast.ToInt(strings.TrimLeft(m[1], "0"))
	}
	return 999
}

// splitStatements breaks a script on lines ending with ';'. Line comments
// and blank lines are dropped.
func splitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
