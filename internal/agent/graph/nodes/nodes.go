// Package nodes implements the workflow's processing steps. Every node is a
// pure function from one State to the next: it clones the incoming record,
// writes its contribution and returns the clone. Collaborator failures are
// absorbed at the node boundary and surface as state fields, never as errors
// escaping to the graph runner.
package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// Node identifiers. These are the closed set of graph states; branch
// conditions may only return names from this set (or compose.END).
const (
	NodeRetrieve     = "retrieve"
	NodeRewriteQuery = "rewrite_query"
	NodePlanSQL      = "plan_sql"
	NodeRunSQL       = "run_sql"
	NodeReport       = "report"
	NodeEmail        = "email"
)

// Message-window bounds. The report node keeps a wider window than the email
// node: post-email conversational context is less valuable.
const (
	ReportMessageWindow = 10
	EmailMessageWindow  = 6
)

// Clock supplies the current time for relative-year resolution in prompts.
// Injected so tests can pin the year.
type Clock func() time.Time

// NewSQLCondition routes plan_sql output: run the statement when one was
// produced, otherwise skip straight to the report.
func NewSQLCondition() func(context.Context, *model.State) (string, error) {
	return func(ctx context.Context, s *model.State) (string, error) {
		if s.NeedsSQL {
			return NodeRunSQL, nil
		}
		return NodeReport, nil
	}
}

// NewEmailCondition routes report output: deliver by email when the current
// question asked for it, otherwise the turn is done.
func NewEmailCondition() func(context.Context, *model.State) (string, error) {
	return func(ctx context.Context, s *model.State) (string, error) {
		if s.NeedsEmail {
			logx.Debug().Str("question", s.Question).Msg("routing to email delivery")
			return NodeEmail, nil
		}
		return compose.END, nil
	}
}

// NewTurnContextPreHandler seeds the graph-local turn context from the entry
// state and counts node executions.
func NewTurnContextPreHandler() func(context.Context, *model.State, *model.TurnContext) (*model.State, error) {
	return func(ctx context.Context, s *model.State, tc *model.TurnContext) (*model.State, error) {
		if tc.ConversationID == "" {
			tc.ConversationID = s.ConversationID
			tc.UserID = s.UserID
		}
		tc.Steps++
		logTurnStep(tc)
		return s, nil
	}
}

// NewStepCountPreHandler counts a node execution in the turn context.
func NewStepCountPreHandler() func(context.Context, *model.State, *model.TurnContext) (*model.State, error) {
	return func(ctx context.Context, s *model.State, tc *model.TurnContext) (*model.State, error) {
		tc.Steps++
		logTurnStep(tc)
		return s, nil
	}
}

// logTurnStep traces the turn's node count so a turn that walks toward the
// run-steps ceiling is visible in the logs before the graph aborts it.
func logTurnStep(tc *model.TurnContext) {
	logx.Debug().
		Str("conversation_id", tc.ConversationID).
		Str("user_id", tc.UserID).
		Int("steps", tc.Steps).
		Msg("turn step")
}
