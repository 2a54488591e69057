package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/propchat-core/server/internal/agent/model"
)

// StateListener receives the state snapshot produced at each node boundary,
// in execution order. Listeners are called synchronously from the graph
// runner, so a slow listener slows the turn; copy out and return.
type StateListener func(node string, snapshot *model.State)

// NewStateProgressHandler builds a per-invoke callbacks handler that forwards
// every node's output state to the listener. The sequence is finite, bounded
// by the node count and the graph's max-steps ceiling.
func NewStateProgressHandler(listener StateListener) einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			if listener == nil || info == nil {
				return ctx
			}
			// only node boundaries, not the enclosing graph's own completion
			if info.Component != compose.ComponentOfLambda {
				return ctx
			}
			if snapshot, ok := output.(*model.State); ok && snapshot != nil {
				listener(info.Name, snapshot.Clone())
			}
			return ctx
		}).
		Build()
}
