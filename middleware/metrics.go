package middleware

import (
	"context"

	"github.com/cogflow/cog"
)

// MetricsCollector receives node lifecycle events.
type MetricsCollector interface {
	RecordStepStart(nodeName, step string)
	RecordStepEnd(nodeName, step string, err error)
	RecordRouting(nodeName, action string)
}

// Metrics reports every lifecycle step and routing decision to a collector.
func Metrics(collector MetricsCollector) Middleware {
	return func(node cog.Node) cog.Node {
		return wrap(node,
			func(ctx context.Context, shared cog.Store) (any, error) {
				collector.RecordStepStart(node.Name(), "prep")
				result, err := node.Prep(ctx, shared)
				collector.RecordStepEnd(node.Name(), "prep", err)
				return result, err
			},
			func(ctx context.Context, prepResult any) (any, error) {
				collector.RecordStepStart(node.Name(), "exec")
				result, err := node.Exec(ctx, prepResult)
				collector.RecordStepEnd(node.Name(), "exec", err)
				return result, err
			},
			func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
				collector.RecordStepStart(node.Name(), "post")
				action, err := node.Post(ctx, shared, prepResult, execResult)
				collector.RecordStepEnd(node.Name(), "post", err)
				collector.RecordRouting(node.Name(), action)
				return action, err
			},
		)
	}
}
