package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/propchat-core/server/internal/agent/graph/intent"
	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/cache"
	logx "github.com/propchat-core/server/pkg/logger"
)

// NewEmailNode creates the report-delivery node. Recipient resolution order:
// an address embedded in the question, then the address on file for the user,
// then the question again as a last resort. The report text prefers a cached
// turn snapshot (current question first, then the first history message) over
// the state's own report, so "email me that" can deliver a previously
// computed answer. Exactly one delivery attempt is made; failure becomes an
// explanatory assistant message, never a turn error.
func NewEmailNode(sender model.EmailSender, users model.UserDirectory, c model.Cache) *compose.Lambda {
	return compose.InvokableLambda(email(sender, users, c))
}

func email(sender model.EmailSender, users model.UserDirectory, c model.Cache) func(context.Context, *model.State) (*model.State, error) {
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		if !s.NeedsEmail {
			return s, nil
		}

		next := s.Clone()

		recipient := resolveRecipient(ctx, users, s)
		report := resolveReport(ctx, c, s)

		result := sender.Send(ctx, report, recipient)
		next.Email = model.EmailState{Requested: true, Result: &result}

		var reply string
		if result.OK {
			reply = fmt.Sprintf(" Report emailed to %s.", recipient)
		} else {
			reply = " " + result.Message
		}
		next.AppendMessage(schema.AssistantMessage(reply, nil), EmailMessageWindow)

		return next, nil
	}
}

func resolveRecipient(ctx context.Context, users model.UserDirectory, s *model.State) string {
	if addr := intent.ExtractAddress(s.Question); addr != "" {
		return addr
	}

	if s.UserID != "" {
		addr, err := users.UserEmail(ctx, s.UserID)
		if err != nil {
			logx.Warn().Err(err).Str("user_id", s.UserID).Msg("user email lookup failed")
		} else if addr != "" {
			return addr
		}
	}

	return intent.ExtractAddress(s.Question)
}

// resolveReport prefers a cached snapshot's report over the freshly computed
// one. Lookup keys: the current question, then the first history message —
// the phrasing the earlier answer was cached under.
func resolveReport(ctx context.Context, c model.Cache, s *model.State) string {
	keys := []string{s.Question}
	if len(s.Messages) > 0 && s.Messages[0] != nil && s.Messages[0].Content != "" {
		keys = append(keys, s.Messages[0].Content)
	}

	for _, key := range keys {
		var snap model.TurnSnapshot
		if c.GetJSON(ctx, cache.NamespaceQuery, key, &snap) && snap.Report != "" {
			return snap.Report
		}
	}

	return s.Report
}
