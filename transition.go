package cog

// Transition is a pending (source, action) pair produced by On. Completing it
// with To registers the edge and yields the target, so graph declarations
// chain like a literal:
//
//	decide.On("search").To(search)
//	decide.On("answer").To(answer)
//	search.On("decide").To(decide)
//
// A Transition carries no state beyond the pending pair and is only used at
// construction time.
type Transition struct {
	src    Node
	action string
}

// On begins a labeled transition from any node value. Nodes built on
// *BaseNode expose the equivalent method directly.
func On(src Node, action string) *Transition {
	return &Transition{src: src, action: action}
}

// To completes the transition, registering the edge on the source and
// returning the target node.
func (t *Transition) To(target Node) Node {
	return t.src.Next(t.action, target)
}
