// Package batch processes collections of items inside a single node: extract
// items from the shared store, transform each one, and reduce the results.
// The engine itself runs nodes one at a time; concurrency here is scoped to
// the items of one batch.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cogflow/cog"
)

// Processor runs a batch of items of type T producing results of type R.
type Processor[T, R any] struct {
	// Extract retrieves the items to process.
	Extract func(ctx context.Context, shared cog.Store) ([]T, error)

	// Transform processes a single item.
	Transform func(ctx context.Context, item T) (R, error)

	// Reduce combines the results into the node's output.
	Reduce func(ctx context.Context, results []R) (any, error)

	maxConcurrency int
}

// Option configures a batch processor.
type Option func(*config)

type config struct {
	maxConcurrency int
}

// WithConcurrency caps the number of items transformed at once. The default
// of 1 processes items sequentially in input order.
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.maxConcurrency = n
	}
}

// NewProcessor creates a batch processor.
func NewProcessor[T, R any](
	extract func(context.Context, cog.Store) ([]T, error),
	transform func(context.Context, T) (R, error),
	reduce func(context.Context, []R) (any, error),
	opts ...Option,
) *Processor[T, R] {
	c := &config{maxConcurrency: 1}
	for _, opt := range opts {
		opt(c)
	}
	return &Processor[T, R]{
		Extract:        extract,
		Transform:      transform,
		Reduce:         reduce,
		maxConcurrency: c.maxConcurrency,
	}
}

// AsNode wraps the processor in a node. Prep extracts the items, exec
// transforms them, post stores the reduced output under outputKey and routes
// via the default edge.
func (p *Processor[T, R]) AsNode(name, outputKey string, nodeOpts ...cog.Option) cog.Node {
	return cog.NewNode(name, cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return p.Extract(ctx, shared)
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			items, _ := prepResult.([]T)
			results, err := p.run(ctx, items)
			if err != nil {
				return nil, err
			}
			return p.Reduce(ctx, results)
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			if outputKey != "" {
				shared.Set(outputKey, execResult)
			}
			return "", nil
		},
	}, nodeOpts...)
}

func (p *Processor[T, R]) run(ctx context.Context, items []T) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if p.maxConcurrency <= 1 {
		return p.runSequential(ctx, items)
	}
	return p.runConcurrent(ctx, items)
}

func (p *Processor[T, R]) runSequential(ctx context.Context, items []T) ([]R, error) {
	results := make([]R, len(items))
	for i, item := range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		result, err := p.Transform(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results[i] = result
	}
	return results, nil
}

func (p *Processor[T, R]) runConcurrent(ctx context.Context, items []T) ([]R, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrency)

	results := make([]R, len(items))
	var mu sync.Mutex

	for i, item := range items {
		g.Go(func() error {
			result, err := p.Transform(ctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ForEach builds a processor that applies a side-effecting function to every
// item and reduces to the item count.
func ForEach[T any](
	extract func(context.Context, cog.Store) ([]T, error),
	process func(context.Context, T) error,
	opts ...Option,
) *Processor[T, struct{}] {
	return NewProcessor(extract,
		func(ctx context.Context, item T) (struct{}, error) {
			return struct{}{}, process(ctx, item)
		},
		func(ctx context.Context, results []struct{}) (any, error) {
			return len(results), nil
		},
		opts...)
}

// Filter builds a processor that keeps the items a predicate accepts.
func Filter[T any](
	extract func(context.Context, cog.Store) ([]T, error),
	predicate func(context.Context, T) (bool, error),
	opts ...Option,
) *Processor[T, filtered[T]] {
	return NewProcessor(extract,
		func(ctx context.Context, item T) (filtered[T], error) {
			keep, err := predicate(ctx, item)
			return filtered[T]{item: item, keep: keep}, err
		},
		func(ctx context.Context, results []filtered[T]) (any, error) {
			kept := make([]T, 0, len(results))
			for _, r := range results {
				if r.keep {
					kept = append(kept, r.item)
				}
			}
			return kept, nil
		},
		opts...)
}

type filtered[T any] struct {
	item T
	keep bool
}
