package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/cogflow/cog"
)

// Timing records exec durations in the shared store under
// "timing:<node>:last", ":total", ":count", and ":avg".
func Timing() Middleware {
	return func(node cog.Node) cog.Node {
		return wrap(node, nil,
			func(ctx context.Context, prepResult any) (any, error) {
				start := time.Now()
				result, err := node.Exec(ctx, prepResult)
				// Exec has no store access; the duration rides on the
				// result until post unwraps it.
				return timedResult{result: result, duration: time.Since(start)}, err
			},
			func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
				tr, ok := execResult.(timedResult)
				if !ok {
					return node.Post(ctx, shared, prepResult, execResult)
				}
				recordTiming(shared, node.Name(), tr.duration)
				return node.Post(ctx, shared, prepResult, tr.result)
			},
		)
	}
}

type timedResult struct {
	result   any
	duration time.Duration
}

func recordTiming(shared cog.Store, name string, d time.Duration) {
	prefix := fmt.Sprintf("timing:%s:", name)

	total := cog.GetOr(shared, prefix+"total", time.Duration(0)) + d
	count := cog.GetOr(shared, prefix+"count", int64(0)) + 1

	shared.Set(prefix+"last", d)
	shared.Set(prefix+"total", total)
	shared.Set(prefix+"count", count)
	shared.Set(prefix+"avg", total/time.Duration(count))
}
