package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Cache is the namespaced key-value store with TTL used for memoization.
// Implementations must degrade to "no cache" on backend failure: a read error
// is a miss, a write error is silently dropped. Caching is advisory and never
// on the critical path for correctness.
type Cache interface {
	Get(ctx context.Context, namespace, value string) (string, bool)
	Set(ctx context.Context, namespace, value, payload string, ttl time.Duration)
	GetJSON(ctx context.Context, namespace, value string, out any) bool
	SetJSON(ctx context.Context, namespace, value string, payload any, ttl time.Duration)
}

// Searcher is the similarity-search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Database executes read-only SQL and describes the schema. RunSQL never
// returns an error: execution failures, policy blocks and empty results are
// all rendered as text so the turn can continue.
type Database interface {
	RunSQL(ctx context.Context, sql string) string
	SchemaInfo(ctx context.Context, includeTypes bool) (string, error)
}

// UserDirectory resolves a user id to an email address on file. An unknown
// user resolves to an empty string, not an error.
type UserDirectory interface {
	UserEmail(ctx context.Context, userID string) (string, error)
}

// ChatCompleter is the opaque text-in/text-out LLM function.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []*schema.Message) (string, error)
}

// SQLGenerator is the structured-output LLM function constrained to a single
// sql_query field.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, messages []*schema.Message) (SQLOutput, error)
}

// EmailSender delivers a report. Side-effecting, at most once per call; the
// result is always a value, never a raised error.
type EmailSender interface {
	Send(ctx context.Context, report, recipient string) EmailResult
}
