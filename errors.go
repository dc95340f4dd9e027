package cog

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNoStartNode is returned when a flow is run without a start node.
	ErrNoStartNode = errors.New("cog: no start node defined")

	// ErrInvalidInput is returned when a lifecycle value does not match the
	// type a step expects.
	ErrInvalidInput = errors.New("cog: invalid input type")
)

// Lifecycle step names used in StepError.
const (
	StepPrep = "prep"
	StepExec = "exec"
	StepPost = "post"
)

// StepError records which node and lifecycle step failed, together with the
// last prepared input, so a failure deep in a graph stays diagnosable at the
// top-level caller.
type StepError struct {
	Node       string
	Step       string
	PrepResult any
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("node %q: %s failed: %v", e.Node, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
