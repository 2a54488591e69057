package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestRenderSQLSystem(t *testing.T) {
	out, err := RenderSQLSystem(context.Background(),
		"average condo price this year",
		"public.properties columns: price (numeric)",
		[]string{"price: listing price in THB"},
		testNow,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "average condo price this year")
	assert.Contains(t, out, "public.properties columns: price (numeric)")
	assert.Contains(t, out, "price: listing price in THB")
	assert.Contains(t, out, "2026")
	assert.NotContains(t, out, "{{")
}

func TestRenderSQLSystemEmptyContext(t *testing.T) {
	out, err := RenderSQLSystem(context.Background(), "q", "schema", nil, testNow)
	require.NoError(t, err)
	assert.Contains(t, out, "No additional context provided.")
}

func TestRenderReportSystemResolvesYears(t *testing.T) {
	out, err := RenderReportSystem(context.Background(), testNow)
	require.NoError(t, err)
	assert.Contains(t, out, "2026")
	assert.Contains(t, out, "2025")
	assert.NotContains(t, out, "{{")
}

func TestRenderAssistantSystemResolvesYears(t *testing.T) {
	out, err := RenderAssistantSystem(context.Background(), testNow)
	require.NoError(t, err)
	assert.Contains(t, out, "2026")
	assert.Contains(t, out, "2025")
	assert.NotContains(t, out, "{{")
}

func TestRenderRewrite(t *testing.T) {
	out, err := RenderRewrite(context.Background(), "condo prices this year", testNow)
	require.NoError(t, err)
	assert.Contains(t, out, "condo prices this year")
	assert.Contains(t, out, "2026")
	assert.Contains(t, out, "2025")
	assert.NotContains(t, out, "{{")
}
