package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/propchat-core/server/internal/agent/model"
	"github.com/propchat-core/server/internal/cache"
	logx "github.com/propchat-core/server/pkg/logger"
)

// NewRetrieveNode creates the context-retrieval node. Results are memoized in
// the similarity namespace keyed by the exact question text; the cached form
// keeps content and metadata so a replay restores the full document list. A
// search failure never aborts the turn — the state continues with empty
// context.
func NewRetrieveNode(searcher model.Searcher, c model.Cache, k int, ttl time.Duration) *compose.Lambda {
	return compose.InvokableLambda(retrieve(searcher, c, k, ttl))
}

func retrieve(searcher model.Searcher, c model.Cache, k int, ttl time.Duration) func(context.Context, *model.State) (*model.State, error) {
	if k <= 0 {
		k = 1
	}
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		next := s.Clone()

		var docs []model.Document
		if c.GetJSON(ctx, cache.NamespaceSimilarity, s.Question, &docs) && len(docs) > 0 {
			next.Context = docContents(docs)
			return next, nil
		}

		docs, err := searcher.Search(ctx, s.Question, k)
		if err != nil {
			logx.Warn().Err(err).Str("question", s.Question).Msg("similarity search failed, continuing without context")
			next.Context = []string{}
			return next, nil
		}

		if len(docs) > 0 {
			c.SetJSON(ctx, cache.NamespaceSimilarity, s.Question, docs, ttl)
		}
		next.Context = docContents(docs)
		return next, nil
	}
}

func docContents(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Content)
	}
	return out
}
