// Package prompts renders the workflow's prompt templates through Eino prompt
// components so prompt callbacks fire on every render.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/sql_prompt.txt
var sqlSystemPrompt string

//go:embed template/report_prompt.txt
var reportSystemPrompt string

//go:embed template/assistant_prompt.txt
var assistantSystemPrompt string

//go:embed template/rewrite_prompt.txt
var rewritePrompt string

// RenderSQLSystem renders the SQL-generation system prompt with the question,
// schema description and retrieved column context embedded.
func RenderSQLSystem(ctx context.Context, userQuery, schema string, docContext []string, now time.Time) (string, error) {
	contextStr := "No additional context provided."
	if len(docContext) > 0 {
		contextStr = strings.Join(docContext, "\n")
	}
	return render(ctx, sqlSystemPrompt, map[string]any{
		"UserQuery": userQuery,
		"Schema":    schema,
		"Context":   contextStr,
		"Year":      now.Year(),
	})
}

// RenderReportSystem renders the analyst-style report prompt, used when the
// turn will produce a report (and possibly an email body).
func RenderReportSystem(ctx context.Context, now time.Time) (string, error) {
	return render(ctx, reportSystemPrompt, yearVars(now))
}

// RenderAssistantSystem renders the dual-purpose assistant prompt that also
// handles greetings and small talk.
func RenderAssistantSystem(ctx context.Context, now time.Time) (string, error) {
	return render(ctx, assistantSystemPrompt, yearVars(now))
}

// RenderRewrite renders the relative-time rewriting instruction for a query.
func RenderRewrite(ctx context.Context, query string, now time.Time) (string, error) {
	vars := yearVars(now)
	vars["Query"] = query
	return render(ctx, rewritePrompt, vars)
}

func yearVars(now time.Time) map[string]any {
	return map[string]any{
		"Year":     now.Year(),
		"LastYear": now.Year() - 1,
	}
}

// render formats a Go-template prompt via the Eino prompt component to both
// substitute variables and emit prompt callbacks.
func render(ctx context.Context, template string, vars map[string]any) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(template),
	)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return msgs[0].Content, nil
}
