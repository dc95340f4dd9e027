package cog_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cogflow/cog"
)

// ExampleFlow demonstrates a linear pipeline over a shared store.
func ExampleFlow() {
	read := cog.NewNode("read", cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return cog.GetOr(shared, "text", ""), nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("cleaned", strings.TrimSpace(execResult.(string)))
			return "", nil
		},
	})

	shout := cog.NewNode("shout", cog.Steps{
		Prep: func(ctx context.Context, shared cog.Store) (any, error) {
			return cog.GetOr(shared, "cleaned", ""), nil
		},
		Exec: func(ctx context.Context, prepResult any) (any, error) {
			return strings.ToUpper(prepResult.(string)), nil
		},
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			shared.Set("result", execResult)
			return "done", nil
		},
	})

	read.Connect(shout)

	shared := cog.NewStoreFrom(map[string]any{"text": "  hello world  "})
	flow := cog.NewFlow("shouter", read)

	action, err := flow.Run(context.Background(), shared)
	if err != nil {
		log.Fatal(err)
	}

	result, _ := shared.Get("result")
	fmt.Println(action, result)
	// Output: done HELLO WORLD
}

// ExampleTransition demonstrates declaring a branching graph with labeled
// transitions.
func ExampleTransition() {
	triage := cog.NewNode("triage", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			if cog.GetOr(shared, "priority", 0) > 5 {
				return "urgent", nil
			}
			return "routine", nil
		},
	})

	urgent := cog.NewNode("urgent", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			return "paged", nil
		},
	})
	routine := cog.NewNode("routine", cog.Steps{
		Post: func(ctx context.Context, shared cog.Store, prepResult, execResult any) (string, error) {
			return "queued", nil
		},
	})

	triage.On("urgent").To(urgent)
	triage.On("routine").To(routine)

	shared := cog.NewStoreFrom(map[string]any{"priority": 9})
	action, err := cog.NewFlow("triage", triage).Run(context.Background(), shared)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(action)
	// Output: paged
}
