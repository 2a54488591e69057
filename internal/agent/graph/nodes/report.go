package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/propchat-core/server/internal/agent/graph/intent"
	"github.com/propchat-core/server/internal/agent/graph/prompts"
	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/cache"
	logx "github.com/propchat-core/server/pkg/logger"
)

// NewReportNode creates the report-generation node. The node makes a single
// replay-or-compute decision at entry: a query_cache hit with a non-empty
// report restores the cached turn (context, SQL, result, report) and skips
// the model call entirely. Email intent is the one field a replay must NOT
// restore — it is recomputed from the live question every time, because a
// cached answer may have been produced under a different intent.
func NewReportNode(llm model.ChatCompleter, c model.Cache, clock Clock, queryTTL time.Duration) *compose.Lambda {
	return compose.InvokableLambda(report(llm, c, clock, queryTTL))
}

func report(llm model.ChatCompleter, c model.Cache, clock Clock, queryTTL time.Duration) func(context.Context, *model.State) (*model.State, error) {
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		next := s.Clone()

		var snap model.TurnSnapshot
		if c.GetJSON(ctx, cache.NamespaceQuery, s.Question, &snap) && snap.Report != "" {
			logx.Debug().Str("question", s.Question).Msg("replaying cached turn result")
			restoreSnapshot(next, &snap)
			applyEmailIntent(next)
			if !next.NeedsEmail {
				next.AppendMessage(schema.AssistantMessage(next.Report, nil), ReportMessageWindow)
			}
			return next, nil
		}

		applyEmailIntent(next)
		next.Report = generateReport(ctx, llm, next, clock)

		if !next.NeedsEmail {
			next.AppendMessage(schema.AssistantMessage(next.Report, nil), ReportMessageWindow)
		}

		c.SetJSON(ctx, cache.NamespaceQuery, next.Question, model.TurnSnapshot{
			Question:       next.Question,
			Context:        next.Context,
			LLMSQL:         next.LLMSQL,
			SQLResult:      next.SQLResult,
			Report:         next.Report,
			NeedsEmail:     next.NeedsEmail,
			EmailRequested: next.Email.Requested,
		}, queryTTL)

		return next, nil
	}
}

// restoreSnapshot overlays the cached turn onto the state. NeedsEmail and the
// email placeholder are deliberately left alone.
func restoreSnapshot(s *model.State, snap *model.TurnSnapshot) {
	if snap.Question != "" {
		s.Question = snap.Question
	}
	s.Context = snap.Context
	s.LLMSQL = snap.LLMSQL
	s.SQLResult = snap.SQLResult
	s.Report = snap.Report
}

// applyEmailIntent classifies the current question and mirrors the outcome
// into the email placeholder.
func applyEmailIntent(s *model.State) {
	s.NeedsEmail = intent.IsEmailRequest(s.Question)
	s.Email = model.EmailState{Requested: s.NeedsEmail}
}

func generateReport(ctx context.Context, llm model.ChatCompleter, s *model.State, clock Clock) string {
	systemPrompt, err := renderSystemPrompt(ctx, s.NeedsEmail, clock)
	if err != nil {
		logx.Warn().Err(err).Msg("report prompt render failed")
		return fmt.Sprintf("I could not generate a report for this question: %v", err)
	}

	input := make([]*schema.Message, 0, len(s.Messages)+2)
	input = append(input, schema.SystemMessage(systemPrompt))
	input = append(input, s.Messages...)

	if s.SQLResult != "" {
		input = append(input, schema.SystemMessage(
			fmt.Sprintf("SQL result:\n%s\nColumn context: %v", s.SQLResult, s.Context)))
	}

	report, err := llm.Complete(ctx, input)
	if err != nil {
		logx.Error().Err(err).Str("question", s.Question).Msg("report generation failed")
		return fmt.Sprintf("I could not generate a report for this question: %v", err)
	}
	return report
}

// renderSystemPrompt picks between the analyst report prompt (email turns
// always produce a formal report body) and the dual-purpose assistant prompt
// that also handles greetings and small talk.
func renderSystemPrompt(ctx context.Context, needsEmail bool, clock Clock) (string, error) {
	if needsEmail {
		return prompts.RenderReportSystem(ctx, clock())
	}
	return prompts.RenderAssistantSystem(ctx, clock())
}
