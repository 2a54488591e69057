package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSQLResponsePlainObject(t *testing.T) {
	out, err := ParseSQLResponse(`{"sql_query": "SELECT avg(price) FROM properties"}`)
	require.NoError(t, err)
	assert.Equal(t, "SELECT avg(price) FROM properties", out.SQLQuery)
}

func TestParseSQLResponseCodeFence(t *testing.T) {
	content := "```json\n{\"sql_query\": \"SELECT count(*) FROM properties WHERE city = 'Bangkok'\"}\n```"
	out, err := ParseSQLResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM properties WHERE city = 'Bangkok'", out.SQLQuery)
}

func TestParseSQLResponseSurroundingProse(t *testing.T) {
	content := "Here is the query you asked for:\n{\"sql_query\": \"SELECT 1\"}\nLet me know if you need more."
	out, err := ParseSQLResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out.SQLQuery)
}

func TestParseSQLResponseEmptyQuery(t *testing.T) {
	// empty sql_query is valid and means no SQL is needed
	out, err := ParseSQLResponse(`{"sql_query": ""}`)
	require.NoError(t, err)
	assert.Equal(t, "", out.SQLQuery)
}

func TestParseSQLResponseTrimsWhitespace(t *testing.T) {
	out, err := ParseSQLResponse(`{"sql_query": "  SELECT 1  "}`)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out.SQLQuery)
}

func TestParseSQLResponseNoObject(t *testing.T) {
	_, err := ParseSQLResponse("I cannot produce SQL for that question.")
	assert.Error(t, err)
}

func TestParseSQLResponseMalformedJSON(t *testing.T) {
	_, err := ParseSQLResponse(`{"sql_query": "SELECT 1`)
	assert.Error(t, err)
}

func TestParseSQLResponseOversizedContent(t *testing.T) {
	_, err := ParseSQLResponse(strings.Repeat("a", maxContentLen+1))
	assert.Error(t, err)
}

func TestParseSQLResponseOversizedStatement(t *testing.T) {
	content := `{"sql_query": "` + strings.Repeat("x", maxSQLLen+1) + `"}`
	_, err := ParseSQLResponse(content)
	assert.Error(t, err)
}
