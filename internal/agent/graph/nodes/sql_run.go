package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/propchat-core/server/internal/agent/model"
)

// NoSQLMessage is the result recorded when the node runs without a statement.
const NoSQLMessage = "No SQL query to execute"

// NewRunSQLNode creates the SQL-execution node. Safety filtering, result
// memoization and error-to-text conversion all live in the database
// collaborator; this node only short-circuits when there is nothing to run.
func NewRunSQLNode(db model.Database) *compose.Lambda {
	return compose.InvokableLambda(runSQL(db))
}

func runSQL(db model.Database) func(context.Context, *model.State) (*model.State, error) {
	return func(ctx context.Context, s *model.State) (*model.State, error) {
		next := s.Clone()

		if s.LLMSQL == "" {
			next.SQLResult = NoSQLMessage
			return next, nil
		}

		next.SQLResult = db.RunSQL(ctx, s.LLMSQL)
		return next, nil
	}
}
