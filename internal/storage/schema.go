package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/propchat-core/server/internal/cache"
)

// SchemaInfo describes the properties table for prompt building: column
// names with types when includeTypes is set, a bare comma-separated column
// list otherwise. The description is read-mostly and memoized under the
// schema namespace.
func (s *Service) SchemaInfo(ctx context.Context, includeTypes bool) (string, error) {
	cacheKey := fmt.Sprintf("schema:%s:%t", s.table, includeTypes)
	if cached, ok := s.cache.Get(ctx, cache.NamespaceSchema, cacheKey); ok {
		return cached, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, s.table)
	if err != nil {
		return "", fmt.Errorf("query schema for %s: %w", s.table, err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", fmt.Errorf("scan schema row: %w", err)
		}
		if includeTypes {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, dataType))
		} else {
			parts = append(parts, name)
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read schema rows: %w", err)
	}

	result := fmt.Sprintf("public.%s columns: %s", s.table, strings.Join(parts, ", "))
	s.cache.Set(ctx, cache.NamespaceSchema, cacheKey, result, s.resultTTL)
	return result, nil
}
