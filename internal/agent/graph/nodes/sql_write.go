package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/propchat-core/server/internal/agent/graph/prompts"
	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// NewPlanSQLNode creates the SQL-generation node. It builds a schema-aware
// prompt from the question and retrieved column context and requests
// structured output constrained to a single sql_query field. Any failure —
// schema lookup, model call, parse — yields empty SQL so the graph routes to
// the no-SQL branch instead of failing the turn.
func NewPlanSQLNode(gen model.SQLGenerator, db model.Database, clock Clock) *compose.Lambda {
	return compose.InvokableLambda(planSQL(gen, db, clock))
}

func planSQL(gen model.SQLGenerator, db model.Database, clock Clock) func(context.Context, *model.State) (*model.State, error) {
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		next := s.Clone()

		sqlText := generateSQL(ctx, gen, db, s, clock)
		next.LLMSQL = sqlText
		next.NeedsSQL = sqlText != ""
		return next, nil
	}
}

func generateSQL(ctx context.Context, gen model.SQLGenerator, db model.Database, s *model.State, clock Clock) string {
	schemaInfo, err := db.SchemaInfo(ctx, true)
	if err != nil {
		logx.Warn().Err(err).Msg("schema lookup failed, skipping SQL generation")
		return ""
	}

	systemPrompt, err := prompts.RenderSQLSystem(ctx, s.Question, schemaInfo, s.Context, clock())
	if err != nil {
		logx.Warn().Err(err).Msg("SQL prompt render failed, skipping SQL generation")
		return ""
	}

	out, err := gen.GenerateSQL(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf("Generate SQL for: %s", s.Question)),
	})
	if err != nil {
		logx.Warn().Err(err).Str("question", s.Question).Msg("SQL generation failed, routing to no-SQL branch")
		return ""
	}

	return out.SQLQuery
}
