package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/propchat-core/server/internal/agent/graph/intent"
	"github.com/propchat-core/server/internal/agent/graph/prompts"
	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// NewRewriteNode creates the query-rewriting node. It resolves relative year
// references ("this year", "last year") to concrete years so SQL generation
// sees an unambiguous question. Email-intent questions pass through
// untouched: rewriting could alter or drop an address embedded in the text
// that the email node later needs to extract. An LLM failure falls back to
// the original question; rewriting is never worth failing a turn.
func NewRewriteNode(llm model.ChatCompleter, clock Clock) *compose.Lambda {
	return compose.InvokableLambda(rewrite(llm, clock))
}

func rewrite(llm model.ChatCompleter, clock Clock) func(context.Context, *model.State) (*model.State, error) {
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		next := s.Clone()

		if intent.IsEmailRequest(s.Question) {
			logx.Debug().Str("question", s.Question).Msg("email request detected, keeping original query")
			return next, nil
		}

		promptText, err := prompts.RenderRewrite(ctx, s.Question, clock())
		if err != nil {
			logx.Warn().Err(err).Msg("rewrite prompt render failed, keeping original query")
			return next, nil
		}

		rewritten, err := llm.Complete(ctx, []*schema.Message{schema.UserMessage(promptText)})
		if err != nil || rewritten == "" {
			logx.Warn().Err(err).Str("question", s.Question).Msg("query rewrite failed, keeping original query")
			return next, nil
		}

		next.Question = rewritten
		return next, nil
	}
}
