package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/cogflow/cog"
)

// Logging logs each lifecycle step of a node: prep and post at debug level,
// exec at info with its duration.
func Logging(logger cog.Logger) Middleware {
	return func(node cog.Node) cog.Node {
		return wrap(node,
			func(ctx context.Context, shared cog.Store) (any, error) {
				logger.Debug(ctx, "prep starting", "node", node.Name())
				result, err := node.Prep(ctx, shared)
				logger.Debug(ctx, "prep completed", "node", node.Name(), "error", err)
				return result, err
			},
			func(ctx context.Context, prepResult any) (any, error) {
				logger.Info(ctx, "exec starting", "node", node.Name())
				start := time.Now()
				result, err := node.Exec(ctx, prepResult)
				if err != nil {
					logger.Error(ctx, "exec failed",
						"node", node.Name(),
						"duration", time.Since(start),
						"error", err)
				} else {
					logger.Info(ctx, "exec completed",
						"node", node.Name(),
						"duration", time.Since(start),
						"result_type", fmt.Sprintf("%T", result))
				}
				return result, err
			},
			func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
				action, err := node.Post(ctx, shared, prepResult, execResult)
				logger.Debug(ctx, "post completed",
					"node", node.Name(),
					"action", action,
					"error", err)
				return action, err
			},
		)
	}
}
