// Package storage is the relational collaborator for the workflow graph. It
// executes model-generated SQL read-only, renders results as small text
// tables, serves schema descriptions for prompt building and resolves user
// ids to email addresses.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/cache"
	logx "github.com/propchat-core/server/pkg/logger"
)

// BlockedSQLMessage is the sentinel returned when the safety filter rejects a
// statement. A block is a policy decision, not an error; the turn continues.
const BlockedSQLMessage = "(blocked potentially unsafe SQL)"

// NoRowsMessage is the sentinel for a statement that returned an empty set.
const NoRowsMessage = "(no rows)"

// unsafeSQL matches write/DDL keywords as whole words, case-insensitively.
// Matching whole words rather than raw substrings keeps statements like
// "SELECT created_at FROM listings" executable.
var unsafeSQL = regexp.MustCompile(`(?i)\b(drop|alter|insert|update|delete|create|truncate|grant|revoke)\b`)

// IsUnsafe reports whether the statement contains a blocked write/DDL keyword.
func IsUnsafe(sql string) bool {
	return unsafeSQL.MatchString(sql)
}

// Service runs statements against Postgres with per-statement read-only
// transactions and memoizes rendered results through the shared cache.
type Service struct {
	pool      *pgxpool.Pool
	cache     model.Cache
	table     string
	maxRows   int
	resultTTL time.Duration
}

func NewService(pool *pgxpool.Pool, c model.Cache, cfg model.StorageConfig, resultTTL time.Duration) *Service {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 200
	}
	table := cfg.PropertiesTable
	if table == "" {
		table = "properties"
	}
	return &Service{pool: pool, cache: c, table: table, maxRows: maxRows, resultTTL: resultTTL}
}

// RunSQL executes a read-only statement and returns a pipe-delimited text
// table, the no-rows sentinel, or an error string. It never returns an error
// to the caller. Unsafe statements are blocked before any cache or database
// access; everything else is memoized under the sql namespace, including
// error text, so a repeatedly failing statement does not hammer the database.
func (s *Service) RunSQL(ctx context.Context, sql string) string {
	if IsUnsafe(sql) {
		logx.Warn().Str("sql", sql).Msg("blocked unsafe SQL before execution")
		return BlockedSQLMessage
	}

	if cached, ok := s.cache.Get(ctx, cache.NamespaceSQL, sql); ok {
		return cached
	}

	result := s.execute(ctx, sql)
	s.cache.Set(ctx, cache.NamespaceSQL, sql, result, s.resultTTL)
	return result
}

func (s *Service) execute(ctx context.Context, sql string) string {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Sprintf("SQL execution error: %v", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return fmt.Sprintf("SQL execution error: %v", err)
	}

	cols := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, string(fd.Name))
	}

	var data [][]string
	for rows.Next() && len(data) < s.maxRows {
		values, err := rows.Values()
		if err != nil {
			rows.Close()
			return fmt.Sprintf("SQL execution error: %v", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				row[i] = "NULL"
				continue
			}
			row[i] = fmt.Sprint(v)
		}
		data = append(data, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("SQL execution error: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Sprintf("SQL execution error: %v", err)
	}

	return RenderRows(cols, data)
}

// RenderRows formats a result set as a pipe-delimited text table with a
// header row, or the no-rows sentinel for an empty set.
func RenderRows(cols []string, rows [][]string) string {
	if len(rows) == 0 {
		return NoRowsMessage
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(cols, " | "))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}
