// Package parsers extracts structured output from model responses.
package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/propchat-core/server/internal/agent/model"
	errx "github.com/propchat-core/server/internal/core/error"
	logx "github.com/propchat-core/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxSQLLen     = 16 * 1024 // 16KB for a single statement
)

// ParseSQLResponse parses the structured SQL-generation output. The model is
// instructed to return a JSON object with exactly one sql_query field; this
// tolerates surrounding prose and markdown code fences but rejects anything
// without a parseable object. An empty sql_query is a valid outcome meaning
// "no SQL needed".
func ParseSQLResponse(content string) (out *model.SQLOutput, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "sql_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("sql parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			out = nil
		}
	}()

	if len(content) > maxContentLen {
		return nil, fmt.Errorf("sql response too large: %d bytes", len(content))
	}

	raw := stripCodeFence(strings.TrimSpace(content))

	obj := extractObject(raw)
	if obj == "" {
		return nil, fmt.Errorf("no JSON object in sql response")
	}

	var parsed model.SQLOutput
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil, fmt.Errorf("decode sql response: %w", err)
	}

	parsed.SQLQuery = strings.TrimSpace(parsed.SQLQuery)
	if len(parsed.SQLQuery) > maxSQLLen {
		return nil, fmt.Errorf("sql statement too large: %d bytes", len(parsed.SQLQuery))
	}
	return &parsed, nil
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// drop the language tag line
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractObject returns the first top-level {...} span, so prose around the
// object does not break decoding.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
